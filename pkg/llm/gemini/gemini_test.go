package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/researchrender/researchrender/pkg/llm"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want llm.Kind
	}{
		{"internal", genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}, llm.Transient},
		{"unavailable", genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}, llm.Transient},
		{"exhausted", genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}, llm.Permanent},
		{"invalid", genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"}, llm.Permanent},
		{"wrapped internal", fmt.Errorf("generate: %w", genai.APIError{Code: 500}), llm.Transient},
		{"deadline", context.DeadlineExceeded, llm.Transient},
		{"other", errors.New("tls handshake"), llm.Permanent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := llm.Classify("gemini", "", classifyError(tc.err))
			if got.Kind != tc.want {
				t.Errorf("expected %v, got %v (%v)", tc.want, got.Kind, got.Err)
			}
		})
	}
}

func TestQuotaFlag(t *testing.T) {
	err := classifyError(genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"})
	var pe *llm.PermanentError
	if !errors.As(err, &pe) || !pe.Quota {
		t.Errorf("expected quota PermanentError, got %v", err)
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Error("expected error without api key")
	}
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := New(context.Background(), Config{APIKey: "gm-test", Model: "gemini-1.5-flash-001", BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestGenerate(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "gm-test" {
			t.Error("expected api key in upstream request")
		}
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-1.5-flash-001:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 1 || req.Contents[0].Parts[0].Text != "plan this" {
			t.Errorf("unexpected request %s", body)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"1. Load data"}]},"finishReason":"STOP"}]}`)
	})

	out, err := p.Generate(context.Background(), "plan this")
	if err != nil {
		t.Fatal(err)
	}
	if out != "1. Load data" {
		t.Errorf("unexpected completion %q", out)
	}
}

func TestGenerateErrors(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   llm.Kind
		quota  bool
	}{
		{http.StatusInternalServerError, `{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`, llm.Transient, false},
		{http.StatusTooManyRequests, `{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`, llm.Permanent, true},
		{http.StatusBadRequest, `{"error":{"code":400,"message":"bad","status":"INVALID_ARGUMENT"}}`, llm.Permanent, false},
	}
	for _, tc := range cases {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(tc.status)
			io.WriteString(w, tc.body)
		})

		_, err := p.Generate(context.Background(), "x")
		o := llm.Classify(p.Name(), "", err)
		if o.Kind != tc.want {
			t.Errorf("%d: expected %v, got %v (%v)", tc.status, tc.want, o.Kind, err)
		}
		var pe *llm.PermanentError
		if errors.As(err, &pe) && pe.Quota != tc.quota {
			t.Errorf("%d: quota = %v, want %v", tc.status, pe.Quota, tc.quota)
		}
	}
}

func TestEmptyCompletion(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[]},"finishReason":"STOP"}]}`)
	})
	_, err := p.Generate(context.Background(), "x")
	var pe *llm.PermanentError
	if !errors.As(err, &pe) || pe.Quota {
		t.Errorf("expected non-quota PermanentError, got %v", err)
	}
}
