package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/researchrender/researchrender/pkg/docstore"
	"github.com/researchrender/researchrender/pkg/ingest"
	"github.com/researchrender/researchrender/pkg/logger"
	"github.com/researchrender/researchrender/pkg/models"
	"gopkg.in/yaml.v3"
)

// Provider and backend names accepted in the config file.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Config holds all researchrender configuration.
type Config struct {
	Listen         string          `yaml:"listen"`
	DBPath         string          `yaml:"db_path"`
	RequestTimeout time.Duration   `yaml:"request_timeout"`
	Log            logger.Config   `yaml:"log"`
	Storage        StorageConfig   `yaml:"storage"`
	Services       ServicesConfig  `yaml:"services"`
	Retry          RetryConfig     `yaml:"retry"`
	Upload         UploadConfig    `yaml:"upload"`
	Documents      DocumentsConfig `yaml:"documents"`
	Budget         BudgetConfig    `yaml:"budget"`
	Pipeline       PipelineConfig  `yaml:"pipeline"`
}

// StorageConfig selects where cached artifacts and paper records live.
type StorageConfig struct {
	Backend  string `yaml:"backend"`
	MongoURI string `yaml:"mongo_uri"`
	MongoDB  string `yaml:"mongo_db"`
}

// ServicesConfig configures the two generative services.
type ServicesConfig struct {
	Steps ServiceConfig `yaml:"steps"`
	Code  ServiceConfig `yaml:"code"`
}

// ServiceConfig defines one external generative service.
// Provider is "gemini" or "openai" (any OpenAI-compatible endpoint).
type ServiceConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	RPM      int    `yaml:"rpm"`
}

// RetryConfig controls steps-stage retries.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Delay       time.Duration `yaml:"delay"`
}

// UploadConfig bounds accepted uploads and per-client request rate.
type UploadConfig struct {
	MaxBytes          int64         `yaml:"max_bytes"`
	AllowedExtensions []string      `yaml:"allowed_extensions"`
	RateLimit         int           `yaml:"rate_limit"`
	RateWindow        time.Duration `yaml:"rate_window"`
}

// Policy returns the ingest policy for these limits.
func (u UploadConfig) Policy() ingest.Policy {
	return ingest.Policy{MaxBytes: u.MaxBytes, AllowedExtensions: u.AllowedExtensions}
}

// DocumentsConfig controls raw upload retention in object storage.
type DocumentsConfig struct {
	Enabled              bool `yaml:"enabled"`
	docstore.MinioConfig `yaml:",inline"`
}

// BudgetConfig controls call budget enforcement.
type BudgetConfig struct {
	Enabled  bool                  `yaml:"enabled"`
	Policies []models.BudgetPolicy `yaml:"policies"`
}

// PipelineConfig tunes orchestration.
type PipelineConfig struct {
	ShortCircuitNonPaper bool `yaml:"short_circuit_non_paper"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:         ":5000",
		DBPath:         "researchrender.db",
		RequestTimeout: 60 * time.Second,
		Log:            logger.Config{Level: "info", Format: "text"},
		Storage: StorageConfig{
			Backend: BackendSQLite,
			MongoDB: "researchrender_db",
		},
		Services: ServicesConfig{
			Steps: ServiceConfig{Provider: ProviderGemini, Model: "gemini-1.5-flash-001", RPM: 15},
			Code:  ServiceConfig{Provider: ProviderOpenAI, BaseURL: "https://api.groq.com/openai/v1/", Model: "llama3-8b-8192", RPM: 30},
		},
		Retry: RetryConfig{MaxAttempts: 3, Delay: 5 * time.Second},
		Upload: UploadConfig{
			MaxBytes:          ingest.DefaultMaxBytes,
			AllowedExtensions: ingest.DefaultExtensions,
			RateLimit:         5,
			RateWindow:        time.Minute,
		},
		Documents: DocumentsConfig{
			MinioConfig: docstore.MinioConfig{Bucket: "researchrender-uploads"},
		},
	}
}

// Load reads a YAML config file and expands environment variables. An
// empty path yields the defaults. API keys left empty fall back to
// GEMINI_API_KEY and GROQ_API_KEY, and an empty mongo_uri to MONGO_URI.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	fill := func(dst *string, env string) {
		if *dst == "" {
			*dst = os.Getenv(env)
		}
	}
	fill(&c.Services.Steps.APIKey, envKey(c.Services.Steps.Provider))
	fill(&c.Services.Code.APIKey, envKey(c.Services.Code.Provider))
	fill(&c.Storage.MongoURI, "MONGO_URI")
}

func envKey(provider string) string {
	if provider == ProviderGemini {
		return "GEMINI_API_KEY"
	}
	return "GROQ_API_KEY"
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Backend {
	case BackendSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("db_path is required for the sqlite backend"))
		}
	case BackendMongo:
		if c.Storage.MongoURI == "" {
			errs = append(errs, errors.New("storage.mongo_uri is required for the mongo backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}

	for name, svc := range map[string]ServiceConfig{"steps": c.Services.Steps, "code": c.Services.Code} {
		switch svc.Provider {
		case ProviderGemini, ProviderOpenAI:
		default:
			errs = append(errs, fmt.Errorf("services.%s: unknown provider %q", name, svc.Provider))
		}
		if svc.APIKey == "" {
			errs = append(errs, fmt.Errorf("services.%s: api_key is required", name))
		}
		if svc.RPM < 0 {
			errs = append(errs, fmt.Errorf("services.%s: rpm must not be negative", name))
		}
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry.max_attempts must be at least 1"))
	}
	if c.Documents.Enabled && (c.Documents.Endpoint == "" || c.Documents.Bucket == "") {
		errs = append(errs, errors.New("documents: endpoint and bucket are required when enabled"))
	}
	for _, p := range c.Budget.Policies {
		if p.Period != models.BudgetDaily && p.Period != models.BudgetMonthly {
			errs = append(errs, fmt.Errorf("budget: unknown period %q for %s", p.Period, p.Service))
		}
	}

	return errors.Join(errs...)
}
