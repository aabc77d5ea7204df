// Package mongo implements the result store on MongoDB, one collection per
// stage.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/researchrender/researchrender/pkg/cache"
	"github.com/researchrender/researchrender/pkg/models"
)

// Dial connects to MongoDB and verifies the connection.
func Dial(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, client.Database(dbName), nil
}

// Cache is the result store backed by MongoDB. The client lifecycle belongs
// to the caller; Close is a no-op.
type Cache struct {
	steps  *mongo.Collection
	code   *mongo.Collection
	hits   atomic.Int64
	misses atomic.Int64
}

// New prepares the stage collections and their unique indexes.
func New(ctx context.Context, db *mongo.Database) (*Cache, error) {
	c := &Cache{
		steps: db.Collection("steps_cache"),
		code:  db.Collection("code_cache"),
	}
	for _, coll := range []*mongo.Collection{c.steps, c.code} {
		_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "content_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", coll.Name(), err)
		}
	}
	return c, nil
}

func (c *Cache) collection(stage models.Stage) (*mongo.Collection, error) {
	switch stage {
	case models.StageSteps:
		return c.steps, nil
	case models.StageCode:
		return c.code, nil
	}
	return nil, fmt.Errorf("unknown stage %q", stage)
}

// Get retrieves a cached artifact.
func (c *Cache) Get(ctx context.Context, fingerprint string, stage models.Stage) (string, bool, error) {
	coll, err := c.collection(stage)
	if err != nil {
		return "", false, &cache.StorageError{Op: "get", Stage: stage, Err: err}
	}

	var entry models.CacheEntry
	err = coll.FindOne(ctx, bson.M{"content_hash": fingerprint}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		c.misses.Add(1)
		return "", false, nil
	}
	if err != nil {
		c.misses.Add(1)
		return "", false, &cache.StorageError{Op: "get", Stage: stage, Err: err}
	}

	c.hits.Add(1)
	return entry.Data, true, nil
}

// Put upserts an artifact.
func (c *Cache) Put(ctx context.Context, fingerprint string, stage models.Stage, artifact string) error {
	coll, err := c.collection(stage)
	if err != nil {
		return &cache.StorageError{Op: "put", Stage: stage, Err: err}
	}

	_, err = coll.UpdateOne(ctx,
		bson.M{"content_hash": fingerprint},
		bson.M{"$set": bson.M{
			"stage":      stage,
			"data":       artifact,
			"updated_at": time.Now().UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return &cache.StorageError{Op: "put", Stage: stage, Err: err}
	}
	return nil
}

// Stats returns entry counts and hit/miss counters.
func (c *Cache) Stats(ctx context.Context) (models.CacheStats, error) {
	steps, err := c.steps.CountDocuments(ctx, bson.M{})
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	code, err := c.code.CountDocuments(ctx, bson.M{})
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return models.CacheStats{
		StepsEntries: steps,
		CodeEntries:  code,
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
	}, nil
}

// Clear removes entries for one stage, or every stage when stage is empty.
func (c *Cache) Clear(ctx context.Context, stage models.Stage) error {
	stages := models.Stages
	if stage != "" {
		stages = []models.Stage{stage}
	}
	for _, s := range stages {
		coll, err := c.collection(s)
		if err != nil {
			return fmt.Errorf("cache clear: %w", err)
		}
		if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
			return fmt.Errorf("cache clear: %w", err)
		}
	}
	return nil
}

// Close is a no-op; see Cache.
func (c *Cache) Close() error { return nil }
