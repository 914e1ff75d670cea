package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by BlobStore.Get when nothing is stored under the key
var ErrNotFound = errors.New("store: blob not found")

// BlobStore is a durable key/value store for whole documents.
// Put replaces the value atomically: readers see the old or the new blob, never a mix.
type BlobStore interface {
	// Put stores data under key and returns a location describing where it lives
	Put(ctx context.Context, key string, data []byte) (string, error)

	// Get returns the data stored under key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Close releases the backend's connections
	Close() error
}
