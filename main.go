package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sjsage522/soldlistings/config"
	"sjsage522/soldlistings/internal"
	"sjsage522/soldlistings/internal/api"
	"sjsage522/soldlistings/internal/crawler"
	"sjsage522/soldlistings/logger"
	"sjsage522/soldlistings/services/cache"
	"sjsage522/soldlistings/services/cloudinary"
	"sjsage522/soldlistings/services/gallery"
	"sjsage522/soldlistings/services/ingest"
	"sjsage522/soldlistings/services/publisher"
	"sjsage522/soldlistings/services/store"
	"sjsage522/soldlistings/services/worker"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("strategy", cfg.Strategy).
		Bool("fallback", cfg.StrategyFallback).
		Str("store", cfg.StoreBackend).
		Dur("schedule_interval", cfg.ScheduleInterval).
		Msg("Starting application")

	// Cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer deps.Cleanup()

	strategy, err := crawler.CreateStrategy(cfg, deps.Cache)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create acquisition strategy")
	}

	orchestrator := ingest.NewOrchestrator(
		strategy,
		deps.Snapshots,
		cfg.CronSecret,
		cfg.SnapshotKey,
		ingest.WithPublisher(deps.Publisher),
	)
	query := crawler.Query{Keywords: cfg.SearchKeywords}

	var galleryLister api.GalleryLister
	if deps.Gallery != nil {
		galleryLister = deps.Gallery
	}
	handler := api.NewHandler(orchestrator, deps.Snapshots, galleryLister, query, cfg.SnapshotKey)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.ScheduleInterval > 0 {
		w := worker.NewWorker(orchestrator, deps.Publisher, query, cfg.CronSecret, cfg.ScheduleInterval)
		go w.Start(ctx)
	}

	serverDone := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		serverDone <- server.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("Received shutdown signal")
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server exited with error")
		}
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*internal.Dependencies, error) {
	deps := &internal.Dependencies{}

	// Initialize cache service
	memcacheSvc := cache.NewMemcacheService(cfg.MemcacheAddr, "soldlistings:")
	if err := memcacheSvc.Ping(); err != nil {
		// scrape blocking and gallery caching degrade to no-ops until memcached is back
		logger.Warn("Memcache at %s is unreachable: %v", cfg.MemcacheAddr, err)
	} else {
		logger.Info("Using Memcache at %s", cfg.MemcacheAddr)
	}
	deps.Cache = memcacheSvc

	var media *cloudinary.Client
	if cfg.HasCloudinary() {
		media = cloudinary.NewClient(cfg.CloudinaryAPIURL, cfg.CloudinaryCloudName,
			cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.HTTPTimeout)
		deps.Gallery = gallery.NewService(media, deps.Cache, cfg.GalleryPrefix, cfg.GalleryMaxResults, cfg.GalleryCacheTTL)
	}

	// Initialize snapshot store
	var blobs store.BlobStore
	switch cfg.StoreBackend {
	case config.BackendRedis:
		blobs = store.NewRedisBlobStore(newRedisClient(cfg))
	case config.BackendCloudinary:
		blobs = store.NewCloudinaryBlobStore(media)
	case config.BackendPostgres:
		pg, err := store.NewPostgresBlobStore(ctx, cfg.PostgresDSN, 2)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		blobs = pg
	case config.BackendMemory:
		blobs = store.NewMemoryBlobStore()
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	deps.Snapshots = store.NewSnapshotStore(cfg.StoreBackend, blobs)
	logger.Info("Snapshot store backend: %s", cfg.StoreBackend)

	// Initialize publisher
	if cfg.EventsEnabled {
		deps.Publisher = publisher.NewRedisPublisher(
			newRedisClient(cfg),
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		logger.Info("Publishing ingestion events to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	} else {
		deps.Publisher = publisher.NopPublisher{}
	}

	return deps, nil
}

func newRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
}
