// Package mongo stores PaperRecords in a MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/researchrender/researchrender/pkg/models"
)

// Store keeps PaperRecords in the "papers" collection.
type Store struct {
	coll *mongo.Collection
}

// New prepares the papers collection and its unique content_hash index.
func New(ctx context.Context, db *mongo.Database) (*Store, error) {
	coll := db.Collection("papers")
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "content_hash", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("index papers: %w", err)
	}
	return &Store{coll: coll}, nil
}

// Get returns the record for hash, or nil when none exists.
func (s *Store) Get(ctx context.Context, hash string) (*models.PaperRecord, error) {
	var rec models.PaperRecord
	err := s.coll.FindOne(ctx, bson.M{"content_hash": hash}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get paper: %w", err)
	}
	return &rec, nil
}

// Save upserts rec by content hash.
func (s *Store) Save(ctx context.Context, rec *models.PaperRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	set := bson.M{
		"filename":   rec.Filename,
		"steps":      rec.Steps,
		"code":       rec.Code,
		"updated_at": rec.UpdatedAt,
	}
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"content_hash": rec.ContentHash},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"created_at": rec.CreatedAt},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save paper: %w", err)
	}
	return nil
}

// List returns up to limit records, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]models.PaperRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}).SetLimit(int64(limit))
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	var recs []models.PaperRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("decode papers: %w", err)
	}
	return recs, nil
}

// Close is a no-op; the client belongs to the caller.
func (s *Store) Close() error { return nil }
