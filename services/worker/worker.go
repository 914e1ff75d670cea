package worker

import (
	"context"
	"time"

	"sjsage522/soldlistings/internal/crawler"
	"sjsage522/soldlistings/logger"
	apperrors "sjsage522/soldlistings/pkg/errors"
	"sjsage522/soldlistings/services/ingest"
	"sjsage522/soldlistings/services/publisher"
)

// Runner performs one ingestion run
type Runner interface {
	Run(ctx context.Context, query crawler.Query, credential string) (*ingest.Result, error)
}

// Worker triggers ingestion runs on a fixed interval
type Worker struct {
	runner     Runner
	publisher  publisher.Publisher
	query      crawler.Query
	credential string
	interval   time.Duration
}

// NewWorker creates a new worker. The credential is presented to the runner like any other trigger.
func NewWorker(
	runner Runner,
	pub publisher.Publisher,
	query crawler.Query,
	credential string,
	interval time.Duration,
) *Worker {
	if pub == nil {
		pub = publisher.NopPublisher{}
	}
	return &Worker{
		runner:     runner,
		publisher:  pub,
		query:      query,
		credential: credential,
		interval:   interval,
	}
}

// Start runs immediately and then every interval until ctx is done
func (w *Worker) Start(ctx context.Context) {
	log := logger.ForWorker()
	log.Info().Dur("interval", w.interval).Msg("Scheduled refresh started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.runOnce(ctx)

		select {
		case <-ctx.Done():
			log.Info().Msg("Scheduled refresh stopped")
			return
		case <-ticker.C:
		}
	}
}

// runOnce runs one ingestion and then trims the event streams
func (w *Worker) runOnce(ctx context.Context) {
	log := logger.ForWorker()
	start := time.Now()

	result, err := w.runner.Run(ctx, w.query, w.credential)
	if err != nil {
		log.Error().Err(err).Bool("retryable", apperrors.IsRetryable(err)).Msg("Scheduled ingestion failed")
	} else {
		log.Info().
			Str("run_id", result.RunID).
			Int("listings", result.ListingsScraped).
			Dur("elapsed", time.Since(start)).
			Msg("Scheduled ingestion completed")
	}

	if err := w.publisher.TrimStreams(ctx); err != nil {
		logger.LogError("StreamTrimming", err, "failed to trim event streams")
	}
}
