package crawler

import (
	"time"

	"sjsage522/soldlistings/config"
	"sjsage522/soldlistings/logger"
	apperrors "sjsage522/soldlistings/pkg/errors"
	"sjsage522/soldlistings/services/cache"
)

const scrapeCacheKey = "scrape_rate_limited"

// CreateStrategy builds the acquisition strategy selected by the configuration.
// With fallback enabled, the other strategy is tried after the primary one.
func CreateStrategy(cfg *config.Config, cacheSvc cache.CacheService) (Strategy, error) {
	primary, err := createStrategy(cfg.Strategy, cfg, cacheSvc)
	if err != nil {
		return nil, err
	}
	if !cfg.StrategyFallback {
		logger.ForStrategy(primary.GetName()).Info().Msg("Created acquisition strategy")
		return primary, nil
	}

	secondaryName := config.StrategyScrape
	if cfg.Strategy == config.StrategyScrape {
		secondaryName = config.StrategyStructured
	}
	secondary, err := createStrategy(secondaryName, cfg, cacheSvc)
	if err != nil {
		return nil, err
	}

	fallback := NewFallbackStrategy(primary, secondary)
	logger.ForStrategy(fallback.GetName()).Info().Msg("Created acquisition strategy with fallback")
	return fallback, nil
}

func createStrategy(name string, cfg *config.Config, cacheSvc cache.CacheService) (Strategy, error) {
	switch name {
	case config.StrategyStructured:
		return NewStructuredStrategy(cfg.FindingAPIURL, cfg.EbayAppID, cfg.PageSize, cfg.HTTPTimeout), nil
	case config.StrategyScrape:
		return createScrapeStrategy(cfg, cacheSvc)
	default:
		return nil, apperrors.NewConfiguration("unknown strategy "+name, nil)
	}
}

func createScrapeStrategy(cfg *config.Config, cacheSvc cache.CacheService) (Strategy, error) {
	scrapeConfig := ScrapeConfig{
		URL:       cfg.ScrapeURL,
		PageSize:  cfg.ScrapePageSize,
		CacheKey:  scrapeCacheKey,
		BlockTime: int(cfg.ScrapeBlockTime / time.Second),
		Selectors: DefaultSelectors,
	}

	if cfg.ScrapeSelectorsFile != "" {
		selectors, transformers, err := LoadSelectors(cfg.ScrapeSelectorsFile)
		if err != nil {
			return nil, apperrors.NewConfiguration("invalid SCRAPE_SELECTORS_FILE", err)
		}
		scrapeConfig.Selectors = selectors
		scrapeConfig.ElementTransformers = transformers
	}

	var fetcher Fetcher = NewHTTPFetcher(cfg.HTTPTimeout)
	if cfg.ScrapeUseChrome {
		logger.ForStrategy(scrapeName).Info().Str("chrome", cfg.ChromeWSURL).Msg("Using remote Chrome for scrape")
		fetcher = NewChromeFetcher(cfg.ChromeWSURL)
	}

	return NewScrapeStrategy(scrapeConfig, cacheSvc, fetcher), nil
}
