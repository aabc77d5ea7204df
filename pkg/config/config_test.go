package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/researchrender/researchrender/pkg/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Listen != ":5000" {
		t.Errorf("expected :5000, got %s", cfg.Listen)
	}
	if cfg.Services.Steps.RPM != 15 || cfg.Services.Code.RPM != 30 {
		t.Errorf("unexpected rpm defaults %d/%d", cfg.Services.Steps.RPM, cfg.Services.Code.RPM)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.Delay != 5*time.Second {
		t.Errorf("unexpected retry defaults %+v", cfg.Retry)
	}
	if cfg.Upload.MaxBytes != 16<<20 || cfg.Upload.RateLimit != 5 {
		t.Errorf("unexpected upload defaults %+v", cfg.Upload)
	}
	if cfg.Storage.Backend != BackendSQLite {
		t.Errorf("expected sqlite backend, got %s", cfg.Storage.Backend)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "g-123")
	t.Setenv("GROQ_API_KEY", "gsk-456")

	path := writeConfig(t, `
listen: ":9090"
db_path: "test.db"
log:
  level: debug
  format: json
services:
  steps:
    provider: gemini
    api_key: ${TEST_GEMINI_KEY}
    rpm: 10
retry:
  max_attempts: 5
  delay: 2s
upload:
  rate_limit: 2
  rate_window: 30s
documents:
  enabled: true
  endpoint: localhost:9000
  bucket: uploads
budget:
  enabled: true
  policies:
    - service: steps
      max_calls: 1000
      period: daily
pipeline:
  short_circuit_non_paper: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":9090" || cfg.DBPath != "test.db" {
		t.Errorf("unexpected listen/db_path %s %s", cfg.Listen, cfg.DBPath)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log config %+v", cfg.Log)
	}
	if cfg.Services.Steps.APIKey != "g-123" {
		t.Errorf("expected expanded key, got %q", cfg.Services.Steps.APIKey)
	}
	if cfg.Services.Steps.RPM != 10 {
		t.Errorf("expected rpm 10, got %d", cfg.Services.Steps.RPM)
	}
	if cfg.Services.Code.APIKey != "gsk-456" {
		t.Errorf("expected GROQ_API_KEY fallback, got %q", cfg.Services.Code.APIKey)
	}
	if cfg.Services.Code.Model != "llama3-8b-8192" {
		t.Errorf("expected default code model kept, got %q", cfg.Services.Code.Model)
	}
	if cfg.Retry.MaxAttempts != 5 || cfg.Retry.Delay != 2*time.Second {
		t.Errorf("unexpected retry %+v", cfg.Retry)
	}
	if cfg.Upload.RateLimit != 2 || cfg.Upload.RateWindow != 30*time.Second {
		t.Errorf("unexpected upload %+v", cfg.Upload)
	}
	if !cfg.Documents.Enabled || cfg.Documents.Endpoint != "localhost:9000" || cfg.Documents.Bucket != "uploads" {
		t.Errorf("unexpected documents %+v", cfg.Documents)
	}
	if len(cfg.Budget.Policies) != 1 || cfg.Budget.Policies[0].Period != models.BudgetDaily {
		t.Errorf("unexpected budget %+v", cfg.Budget)
	}
	if !cfg.Pipeline.ShortCircuitNonPaper {
		t.Error("expected short_circuit_non_paper")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "g")
	t.Setenv("GROQ_API_KEY", "q")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults plus env keys to validate, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = "postgres"
	cfg.Services.Steps.Provider = "anthropic"
	cfg.Retry.MaxAttempts = 0
	cfg.Documents.Enabled = true

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{
		`unknown storage backend "postgres"`,
		`services.steps: unknown provider "anthropic"`,
		"services.code: api_key is required",
		"retry.max_attempts",
		"documents:",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}
