package ingest

import (
	"context"
	"crypto/subtle"
	"time"

	"sjsage522/soldlistings/internal/crawler"
	"sjsage522/soldlistings/internal/listing"
	"sjsage522/soldlistings/logger"
	apperrors "sjsage522/soldlistings/pkg/errors"
	"sjsage522/soldlistings/services/publisher"

	"github.com/google/uuid"
)

const source = "ingest"

// SnapshotWriter persists a snapshot and returns where it was written
type SnapshotWriter interface {
	Put(ctx context.Context, key string, snapshot listing.Snapshot) (string, error)
}

// namedAcquirer is implemented by strategies that delegate to other strategies
type namedAcquirer interface {
	AcquireNamed(ctx context.Context, query crawler.Query) ([]listing.RawItem, string, error)
}

// Result describes a successful ingestion run
type Result struct {
	RunID           string
	Strategy        string
	ListingsScraped int
	LastUpdated     time.Time
	Location        string
}

// Orchestrator runs one ingestion: acquire, normalize, snapshot, persist
type Orchestrator struct {
	strategy    crawler.Strategy
	store       SnapshotWriter
	publisher   publisher.Publisher
	secret      string
	snapshotKey string
	now         func() time.Time
	newRunID    func() string
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithClock overrides the time source used for acquisition and snapshot timestamps
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithPublisher sets where ingestion events are published
func WithPublisher(p publisher.Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

// NewOrchestrator creates an orchestrator writing snapshots under snapshotKey
func NewOrchestrator(strategy crawler.Strategy, store SnapshotWriter, secret, snapshotKey string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		strategy:    strategy,
		store:       store,
		publisher:   publisher.NopPublisher{},
		secret:      secret,
		snapshotKey: snapshotKey,
		now:         time.Now,
		newRunID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Authorized reports whether credential matches the configured secret.
// An empty secret never authorizes.
func (o *Orchestrator) Authorized(credential string) bool {
	if o.secret == "" || credential == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(credential), []byte(o.secret)) == 1
}

// Run performs one ingestion run. Nothing is written unless every earlier step succeeded.
func (o *Orchestrator) Run(ctx context.Context, query crawler.Query, credential string) (*Result, error) {
	if !o.Authorized(credential) {
		return nil, apperrors.NewUnauthorized(source)
	}

	runID := o.newRunID()
	log := logger.ForIngest().WithField("run_id", runID)
	start := o.now()

	items, strategyName, err := o.acquire(ctx, query)
	if err != nil {
		log.Error().Err(err).Str("strategy", strategyName).Msg("Acquisition failed")
		return nil, apperrors.NewUpstreamFailure(strategyName, err)
	}

	acquiredAt := o.now()
	listings := listing.Normalize(items, acquiredAt)
	snapshot := listing.NewSnapshot(listings, acquiredAt)

	location, err := o.store.Put(ctx, o.snapshotKey, snapshot)
	if err != nil {
		log.Error().Err(err).Str("key", o.snapshotKey).Msg("Snapshot write failed")
		return nil, apperrors.NewPersistence(source, err)
	}

	result := &Result{
		RunID:           runID,
		Strategy:        strategyName,
		ListingsScraped: snapshot.TotalListings,
		LastUpdated:     snapshot.LastUpdated,
		Location:        location,
	}

	o.publish(ctx, log, result)

	log.Info().
		Str("strategy", strategyName).
		Int("raw_items", len(items)).
		Int("listings", result.ListingsScraped).
		Str("location", location).
		Dur("elapsed", o.now().Sub(start)).
		Msg("Ingestion completed")
	return result, nil
}

func (o *Orchestrator) acquire(ctx context.Context, query crawler.Query) ([]listing.RawItem, string, error) {
	if named, ok := o.strategy.(namedAcquirer); ok {
		return named.AcquireNamed(ctx, query)
	}
	items, err := o.strategy.Acquire(ctx, query)
	return items, o.strategy.GetName(), err
}

// publish announces the run; failures are logged and never fail the run
func (o *Orchestrator) publish(ctx context.Context, log *logger.Logger, result *Result) {
	err := publisher.PublishEvent(ctx, o.publisher, publisher.IngestionEvent{
		RunID:           result.RunID,
		Strategy:        result.Strategy,
		SnapshotKey:     o.snapshotKey,
		Location:        result.Location,
		ListingsScraped: result.ListingsScraped,
		LastUpdated:     result.LastUpdated,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to publish ingestion event")
	}
}
