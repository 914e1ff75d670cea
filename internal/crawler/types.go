package crawler

import (
	"context"
	"io"

	"sjsage522/soldlistings/internal/listing"

	"github.com/PuerkitoBio/goquery"
)

// Query describes what a strategy should search for
type Query struct {
	Keywords string
	PageSize int
}

// Strategy interface defines the contract for all acquisition strategies
type Strategy interface {
	// Acquire retrieves sold items for the query, in upstream order
	Acquire(ctx context.Context, query Query) ([]listing.RawItem, error)

	// GetName returns the strategy's name for logging and identification
	GetName() string
}

// Fetcher retrieves a page body as UTF-8
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.Reader, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, url string) (io.Reader, error)

// Fetch implements Fetcher
func (f FetcherFunc) Fetch(ctx context.Context, url string) (io.Reader, error) {
	return f(ctx, url)
}

// CustomElementHandlerFunc defines a function to customize extraction logic for elements
type CustomElementHandlerFunc func(*goquery.Selection) string

// ElementRemoval defines elements to remove from a selection before extracting text
type ElementRemoval struct {
	Selector    string `yaml:"selector"`      // Selector to find elements to remove
	ApplyToPath string `yaml:"apply_to_path"` // The path to apply this to (e.g., "title", "seller")
}

// Selectors contains CSS selectors for each role in a search result node
type Selectors struct {
	ItemList    string `yaml:"item_list"`
	Title       string `yaml:"title"`
	Link        string `yaml:"link"`
	Price       string `yaml:"price"`
	Shipping    string `yaml:"shipping"`
	Seller      string `yaml:"seller"`
	EndTime     string `yaml:"end_time"`
	Tag         string `yaml:"tag"`
	Status      string `yaml:"status"`
	Condition   string `yaml:"condition"`
	ClassFilter string `yaml:"class_filter"`
}

// CustomHandlers contains custom handlers for element processing
type CustomHandlers struct {
	// Map paths to custom handlers
	ElementHandlers map[string]CustomElementHandlerFunc
}

// ElementTransformers contains configurations for transforming elements
type ElementTransformers struct {
	// Elements to remove from selections
	RemoveElements []ElementRemoval `yaml:"remove_elements"`
}

// ScrapeConfig contains configuration for the scrape strategy
type ScrapeConfig struct {
	URL                 string
	PageSize            int
	CacheKey            string
	BlockTime           int
	Selectors           Selectors
	CustomHandlers      CustomHandlers
	ElementTransformers ElementTransformers
}
