// Package repository persists rank observations in a relational table.
package repository

import (
	"context"

	"github.com/okian/asinrank/internal/domain/model"
)

// Store is the append-only log of rank observations.
type Store interface {
	// Append inserts obs and returns it with the store-assigned ID.
	Append(ctx context.Context, obs model.RankObservation) (model.RankObservation, error)

	// ListByASIN returns every observation whose ASIN matches exactly, in
	// arrival (ID) order. An unknown ASIN yields an empty slice.
	ListByASIN(ctx context.Context, asin string) ([]model.RankObservation, error)

	// Count returns the number of stored observations.
	Count(ctx context.Context) (int, error)

	// Ping reports whether the backing database is reachable.
	Ping(ctx context.Context) error

	Close() error
}
