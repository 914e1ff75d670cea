package store

import (
	"context"
	"encoding/json"
	"errors"

	"sjsage522/soldlistings/internal/listing"
	"sjsage522/soldlistings/logger"
	apperrors "sjsage522/soldlistings/pkg/errors"
)

// ErrNoSnapshot is returned by Get before the first successful ingestion
var ErrNoSnapshot = errors.New("store: no snapshot has been written yet")

// SnapshotStore persists whole listing snapshots as single JSON documents
type SnapshotStore struct {
	blobs   BlobStore
	backend string
}

// NewSnapshotStore creates a snapshot store over blobs. backend names it in logs and errors.
func NewSnapshotStore(backend string, blobs BlobStore) *SnapshotStore {
	return &SnapshotStore{
		blobs:   blobs,
		backend: backend,
	}
}

// Put replaces the snapshot under key and returns its location
func (s *SnapshotStore) Put(ctx context.Context, key string, snapshot listing.Snapshot) (string, error) {
	if err := snapshot.Validate(); err != nil {
		return "", apperrors.NewStore(s.backend, "invalid snapshot", err)
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", apperrors.NewStore(s.backend, "failed to encode snapshot", err)
	}

	location, err := s.blobs.Put(ctx, key, data)
	if err != nil {
		return "", apperrors.NewStore(s.backend, "failed to write snapshot", err)
	}

	logger.ForStore(s.backend).Info().
		Str("key", key).
		Int("listings", snapshot.TotalListings).
		Int("bytes", len(data)).
		Msg("Snapshot written")
	return location, nil
}

// Get returns the snapshot under key, or ErrNoSnapshot if none was written
func (s *SnapshotStore) Get(ctx context.Context, key string) (*listing.Snapshot, error) {
	data, err := s.blobs.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, apperrors.NewStore(s.backend, "failed to read snapshot", err)
	}

	var snapshot listing.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, apperrors.NewStore(s.backend, "failed to decode snapshot", err)
	}
	if snapshot.Listings == nil {
		snapshot.Listings = []listing.Listing{}
	}
	return &snapshot, nil
}

// Close closes the underlying blob store
func (s *SnapshotStore) Close() error {
	return s.blobs.Close()
}
