// Package store provides the document-store collaborator: keyed JSON
// documents grouped into named collections, with merge-set semantics and
// batched writes.
package store

import (
	"context"

	"github.com/akleaf/vendor-pipeline/internal/model"
)

// MaxBatchSize is the provider-imposed cap on operations per batch commit.
const MaxBatchSize = 500

// Document is one keyed record in a collection.
type Document struct {
	ID   string
	Data map[string]any
}

// BatchStats reports the outcome of a batched write. On partial failure,
// already-committed batches remain persisted and are counted in Successful.
type BatchStats struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// Store is the persistence interface for categorized output and the region
// lookup table. Collections behave as keyed document maps; insertion order
// is preserved on read.
type Store interface {
	GetAll(ctx context.Context, collection string) ([]Document, error)
	Set(ctx context.Context, collection, id string, doc map[string]any, merge bool) error
	SetBatch(ctx context.Context, collection string, docs []Document, merge bool) (BatchStats, error)
	Delete(ctx context.Context, collection, id string) error

	// LoadRegions reads the region lookup table in stored order.
	LoadRegions(ctx context.Context) ([]model.Region, error)
	// SaveRegions replaces the region lookup table, preserving list order.
	SaveRegions(ctx context.Context, regions []model.Region) error

	Migrate(ctx context.Context) error
	Close() error
}
