package docstore

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestObjectKey(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	a := ObjectKey("paper.pdf", now)
	b := ObjectKey("paper.pdf", now)

	if !strings.HasPrefix(a, "uploads/2026/03/09/") || !strings.HasSuffix(a, "/paper.pdf") {
		t.Errorf("unexpected key %q", a)
	}
	if a == b {
		t.Error("expected unique keys for the same file")
	}
}

func TestMemoryPutDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Put(ctx, "k", []byte("data"), "text/plain"); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 object, got %d", m.Len())
	}
	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 0 {
		t.Errorf("expected empty store, got %d", m.Len())
	}
	if err := m.Delete(ctx, "k"); err == nil {
		t.Error("expected error deleting a missing key")
	}
}

func TestNewMinioRejectsBadEndpoint(t *testing.T) {
	if _, err := NewMinio(MinioConfig{Endpoint: "http://localhost:9000", Bucket: "papers"}); err == nil {
		t.Error("expected error for endpoint with scheme")
	}
	if _, err := NewMinio(MinioConfig{Endpoint: "localhost:9000", Bucket: "papers"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
