package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	cachemongo "github.com/researchrender/researchrender/pkg/cache/mongo"
	"github.com/researchrender/researchrender/pkg/models"
)

// newTestStore connects to the server named by RESEARCHRENDER_TEST_MONGO_URI
// and uses a throwaway database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("RESEARCHRENDER_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("RESEARCHRENDER_TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, db, err := cachemongo.Dial(ctx, uri, "rr_test_"+uuid.NewString()[:8])
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	s, err := New(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func strPtr(s string) *string { return &s }

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.Get(context.Background(), "nope")
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Errorf("expected nil record, got %+v", rec)
	}
}

func TestSaveStepsThenCode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, &models.PaperRecord{Filename: "paper.pdf", ContentHash: "abc", Steps: strPtr("1. train")}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "abc")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Steps == nil || *got.Steps != "1. train" {
		t.Fatalf("unexpected record %+v", got)
	}
	if got.Code != nil || got.Complete() {
		t.Errorf("expected steps-only record, got code %v", got.Code)
	}
	created := got.CreatedAt

	time.Sleep(5 * time.Millisecond)
	// A fresh record carries a new CreatedAt; the stored one must win.
	err = s.Save(ctx, &models.PaperRecord{
		Filename:    "renamed.pdf",
		ContentHash: "abc",
		Steps:       strPtr("1. train"),
		Code:        strPtr("print('hi')"),
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err = s.Get(ctx, "abc")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Complete() || *got.Code != "print('hi')" || got.Filename != "renamed.pdf" {
		t.Errorf("unexpected record after code save %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created_at changed from %v to %v", created, got.CreatedAt)
	}
	if !got.UpdatedAt.After(created) {
		t.Errorf("expected updated_at after %v, got %v", created, got.UpdatedAt)
	}

	recs, err := s.List(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Errorf("expected a single record after upsert, got %d", len(recs))
	}
}
