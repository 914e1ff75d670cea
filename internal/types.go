package internal

import (
	"sjsage522/soldlistings/logger"
	"sjsage522/soldlistings/services/cache"
	"sjsage522/soldlistings/services/gallery"
	"sjsage522/soldlistings/services/publisher"
	"sjsage522/soldlistings/services/store"
)

// Dependencies holds all service dependencies
type Dependencies struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Snapshots *store.SnapshotStore
	// Gallery is nil when no media store is configured
	Gallery *gallery.Service
}

// Cleanup closes every service that holds connections
func (d *Dependencies) Cleanup() {
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			logger.Warn("Failed to close publisher: %v", err)
		}
	}
	if d.Snapshots != nil {
		if err := d.Snapshots.Close(); err != nil {
			logger.Warn("Failed to close snapshot store: %v", err)
		}
	}
}
