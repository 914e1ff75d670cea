package publisher

import (
	"context"
	"encoding/json"
	"time"
)

// EventKey is the stream field that carries an encoded ingestion event
const EventKey = "b64_ingestion"

// Publisher represents a service for publishing messages
type Publisher interface {
	// Publish publishes a message to a stream
	Publish(ctx context.Context, key string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams(ctx context.Context) error

	// Close closes the publisher connection
	Close() error
}

// IngestionEvent announces a completed ingestion run
type IngestionEvent struct {
	RunID           string    `json:"runId"`
	Strategy        string    `json:"strategy"`
	SnapshotKey     string    `json:"snapshotKey"`
	Location        string    `json:"location"`
	ListingsScraped int       `json:"listingsScraped"`
	LastUpdated     time.Time `json:"lastUpdated"`
}

// PublishEvent encodes event as JSON and publishes it under EventKey
func PublishEvent(ctx context.Context, p Publisher, event IngestionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.Publish(ctx, EventKey, data)
}

// NopPublisher discards everything; used when events are disabled
type NopPublisher struct{}

// Publish implements Publisher
func (NopPublisher) Publish(context.Context, string, []byte) error { return nil }

// TrimStreams implements Publisher
func (NopPublisher) TrimStreams(context.Context) error { return nil }

// Close implements Publisher
func (NopPublisher) Close() error { return nil }
