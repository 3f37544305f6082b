// Package store keeps transcripts, summaries and share records behind a
// narrow keyed interface.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Records lookups for unknown ids.
var ErrNotFound = errors.New("store: not found")

// Store is a keyed byte store. Get reports false for a missing key.
type Store interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
}
