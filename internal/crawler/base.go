package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"sjsage522/soldlistings/helpers"
	"sjsage522/soldlistings/internal/listing"
	"sjsage522/soldlistings/logger"
	apperrors "sjsage522/soldlistings/pkg/errors"
	"sjsage522/soldlistings/services/cache"

	"github.com/PuerkitoBio/goquery"
)

// HTTPFetcher fetches pages over plain HTTP with browser headers
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher creates a fetcher whose requests are bounded by timeout
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}}
}

// Fetch implements Fetcher
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.Reader, error) {
	return helpers.FetchWithBrowserHeaders(ctx, f.Client, url)
}

// BaseCrawler provides the fetch and parse plumbing shared by page strategies
type BaseCrawler struct {
	Name      string
	CacheKey  string
	CacheSvc  cache.CacheService
	BlockTime time.Duration
	Fetcher   Fetcher
}

// fetchWithCache fetches a URL unless the strategy is currently blocked.
// An upstream rate limit sets the block key for BlockTime.
func (c *BaseCrawler) fetchWithCache(ctx context.Context, url string) (io.Reader, error) {
	if c.blocked() {
		return nil, apperrors.NewRateLimit(c.Name, c.BlockTime)
	}

	fetcher := c.Fetcher
	if fetcher == nil {
		fetcher = &HTTPFetcher{}
	}

	body, err := fetcher.Fetch(ctx, url)
	if err != nil {
		if errors.Is(err, helpers.ErrRateLimited) {
			c.block()
			return nil, apperrors.New(apperrors.ErrorTypeRateLimit, c.Name, "upstream rate limited", err)
		}
		return nil, apperrors.NewTransport(c.Name, "fetch failed", err)
	}

	return body, nil
}

func (c *BaseCrawler) blocked() bool {
	if c.CacheSvc == nil || c.CacheKey == "" {
		return false
	}
	// a cache that is down is treated as "not blocked"
	_, err := c.CacheSvc.Get(c.CacheKey)
	return err == nil
}

func (c *BaseCrawler) block() {
	if c.CacheSvc == nil || c.CacheKey == "" || c.BlockTime <= 0 {
		return
	}
	value := []byte(fmt.Sprintf("%d", c.BlockTime/time.Second))
	if err := c.CacheSvc.Set(c.CacheKey, value, c.BlockTime); err != nil {
		logger.ForStrategy(c.Name).Warn().Err(err).Msg("Failed to set rate limit block")
	}
}

// createDocument creates a goquery document from a reader
func (c *BaseCrawler) createDocument(reader io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, apperrors.NewTransport(c.Name, "failed to parse HTML", err)
	}
	return doc, nil
}

// processItems maps result nodes to items in document order, dropping skipped nodes
func (c *BaseCrawler) processItems(selections *goquery.Selection, processor func(*goquery.Selection) *listing.ScrapedItem) []listing.RawItem {
	items := make([]listing.RawItem, 0, selections.Length())

	selections.Each(func(_ int, s *goquery.Selection) {
		if item := processor(s); item != nil {
			items = append(items, *item)
		}
	})

	return items
}

// GetName returns the strategy name
func (c *BaseCrawler) GetName() string {
	return c.Name
}
