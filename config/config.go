package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "sjsage522/soldlistings/pkg/errors"
)

const (
	StrategyStructured = "structured"
	StrategyScrape     = "scrape"

	BackendRedis      = "redis"
	BackendCloudinary = "cloudinary"
	BackendPostgres   = "postgres"
	BackendMemory     = "memory"
)

// Config represents the application configuration
type Config struct {
	// HTTP server
	HTTPAddr    string
	HTTPTimeout time.Duration

	// Trigger credential
	CronSecret string

	// Query and snapshot identity
	SearchKeywords string
	SnapshotKey    string

	// Strategy selection
	Strategy         string
	StrategyFallback bool

	// Structured query API
	FindingAPIURL string
	EbayAppID     string
	PageSize      int

	// Rendered page scrape
	ScrapeURL           string
	ScrapePageSize      int
	ScrapeSelectorsFile string
	ScrapeUseChrome     bool
	ChromeWSURL         string
	ScrapeBlockTime     time.Duration

	// Snapshot store
	StoreBackend string
	PostgresDSN  string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int
	EventsEnabled        bool

	// Memcache configuration
	MemcacheAddr string

	// Cloudinary configuration
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryAPIURL    string

	// Gallery
	GalleryPrefix     string
	GalleryMaxResults int
	GalleryCacheTTL   time.Duration

	// Scheduled refresh; zero disables it
	ScheduleInterval time.Duration

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":"+getEnv("PORT", "8080")),
		HTTPTimeout: time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 15)) * time.Second,

		CronSecret: getEnv("CRON_SECRET", ""),

		SearchKeywords: getEnv("SEARCH_KEYWORDS", "alkaline trio"),
		SnapshotKey:    getEnv("SNAPSHOT_KEY", "ebay-listings/alkaline-trio-sold"),

		Strategy:         strings.ToLower(getEnv("STRATEGY", StrategyStructured)),
		StrategyFallback: getEnvBool("STRATEGY_FALLBACK", false),

		FindingAPIURL: getEnv("FINDING_API_URL", "https://svcs.ebay.com/services/search/FindingService/v1"),
		EbayAppID:     getEnv("EBAY_APP_ID", ""),
		PageSize:      getEnvInt("PAGE_SIZE", 100),

		ScrapeURL:           getEnv("SCRAPE_URL", "https://www.ebay.com/sch/i.html"),
		ScrapePageSize:      getEnvInt("SCRAPE_PAGE_SIZE", 240),
		ScrapeSelectorsFile: getEnv("SCRAPE_SELECTORS_FILE", ""),
		ScrapeUseChrome:     getEnvBool("SCRAPE_USE_CHROME", false),
		ChromeWSURL:         getEnv("CHROME_WS_URL", ""),
		ScrapeBlockTime:     time.Duration(getEnvInt("SCRAPE_BLOCK_SECONDS", 600)) * time.Second,

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendRedis)),
		PostgresDSN:  getEnv("PG_DSN", ""),

		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "soldlistings:events"),
		RedisStreamCount:     getEnvInt("REDIS_STREAM_COUNT", 1),
		RedisStreamMaxLength: getEnvInt("REDIS_STREAM_MAX_LENGTH", 1000),
		EventsEnabled:        getEnvBool("EVENTS_ENABLED", false),

		MemcacheAddr: getEnv("MEMCACHE_ADDR", "localhost:11211"),

		CloudinaryCloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		CloudinaryAPIURL:    getEnv("CLOUDINARY_API_URL", "https://api.cloudinary.com/v1_1"),

		GalleryPrefix:     getEnv("GALLERY_PREFIX", "screenshots"),
		GalleryMaxResults: getEnvInt("GALLERY_MAX_RESULTS", 500),
		GalleryCacheTTL:   time.Duration(getEnvInt("GALLERY_CACHE_SECONDS", 60)) * time.Second,

		ScheduleInterval: time.Duration(getEnvInt("SCHEDULE_INTERVAL_SECONDS", 0)) * time.Second,

		Environment: getEnv("SOLDLISTINGS_ENVIRONMENT", "development"),
	}
}

// Validate checks that the configuration can run an ingestion
func (c *Config) Validate() error {
	if c.CronSecret == "" {
		return apperrors.NewConfiguration("CRON_SECRET must be set", nil)
	}
	if strings.TrimSpace(c.SearchKeywords) == "" || c.SnapshotKey == "" {
		return apperrors.NewConfiguration("SEARCH_KEYWORDS and SNAPSHOT_KEY must be set", nil)
	}

	switch c.Strategy {
	case StrategyStructured, StrategyScrape:
	default:
		return apperrors.NewConfiguration(fmt.Sprintf("unknown STRATEGY %q", c.Strategy), nil)
	}
	if c.usesStrategy(StrategyStructured) && c.EbayAppID == "" {
		return apperrors.NewConfiguration("EBAY_APP_ID is required for the structured strategy", nil)
	}
	if c.usesStrategy(StrategyScrape) && c.ScrapeUseChrome && c.ChromeWSURL == "" {
		return apperrors.NewConfiguration("CHROME_WS_URL is required when SCRAPE_USE_CHROME is set", nil)
	}
	if c.PageSize <= 0 || c.ScrapePageSize <= 0 {
		return apperrors.NewConfiguration("page sizes must be positive", nil)
	}

	switch c.StoreBackend {
	case BackendRedis, BackendMemory:
	case BackendCloudinary:
		if !c.HasCloudinary() {
			return apperrors.NewConfiguration("cloudinary backend needs CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET", nil)
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return apperrors.NewConfiguration("PG_DSN is required for the postgres backend", nil)
		}
	default:
		return apperrors.NewConfiguration(fmt.Sprintf("unknown STORE_BACKEND %q", c.StoreBackend), nil)
	}

	if c.RedisStreamCount <= 0 {
		return apperrors.NewConfiguration("REDIS_STREAM_COUNT must be positive", nil)
	}
	return nil
}

// HasCloudinary reports whether Cloudinary credentials are configured
func (c *Config) HasCloudinary() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func (c *Config) usesStrategy(name string) bool {
	return c.Strategy == name || c.StrategyFallback
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}
