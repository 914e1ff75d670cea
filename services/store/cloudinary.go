package store

import (
	"context"
	"errors"

	"sjsage522/soldlistings/services/cloudinary"
)

// CloudinaryBlobStore stores blobs as raw Cloudinary resources
type CloudinaryBlobStore struct {
	client *cloudinary.Client
}

// NewCloudinaryBlobStore creates a blob store over a Cloudinary client
func NewCloudinaryBlobStore(client *cloudinary.Client) *CloudinaryBlobStore {
	return &CloudinaryBlobStore{client: client}
}

// Put implements BlobStore. The upload overwrites and invalidates the previous version.
func (c *CloudinaryBlobStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	res, err := c.client.UploadRaw(ctx, key, data, "application/json")
	if err != nil {
		return "", err
	}
	return res.SecureURL, nil
}

// Get implements BlobStore
func (c *CloudinaryBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	res, err := c.client.Resource(ctx, "raw", key)
	if errors.Is(err, cloudinary.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	data, err := c.client.Download(ctx, res.SecureURL)
	if errors.Is(err, cloudinary.ErrNotFound) {
		return nil, ErrNotFound
	}
	return data, err
}

// Close implements BlobStore
func (c *CloudinaryBlobStore) Close() error {
	return nil
}
