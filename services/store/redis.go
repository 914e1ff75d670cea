package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBlobStore stores blobs as plain Redis string values
type RedisBlobStore struct {
	client *redis.Client
}

// NewRedisBlobStore creates a blob store over an existing Redis client
func NewRedisBlobStore(client *redis.Client) *RedisBlobStore {
	return &RedisBlobStore{client: client}
}

// Put implements BlobStore. SET replaces the value in one step.
func (r *RedisBlobStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return "", err
	}
	opts := r.client.Options()
	return fmt.Sprintf("redis://%s/%d/%s", opts.Addr, opts.DB, key), nil
}

// Get implements BlobStore
func (r *RedisBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}

// Close closes the Redis connection
func (r *RedisBlobStore) Close() error {
	return r.client.Close()
}
