package crawler

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sjsage522/soldlistings/internal/listing"
	"sjsage522/soldlistings/logger"
	apperrors "sjsage522/soldlistings/pkg/errors"
	"sjsage522/soldlistings/services/cache"

	"github.com/PuerkitoBio/goquery"
)

const scrapeName = "scrape"

// DefaultSelectors matches the sold-items search results page
var DefaultSelectors = Selectors{
	ItemList:    "li.s-item",
	Title:       ".s-item__title",
	Link:        "a.s-item__link",
	Price:       ".s-item__price",
	Shipping:    ".s-item__shipping, .s-item__logisticsCost",
	Seller:      ".s-item__seller-info-text",
	EndTime:     ".s-item__ended-date, .s-item__endedDate",
	Tag:         ".s-item__title--tag .POSITIVE, .s-item__caption--signal",
	Status:      ".s-item__caption",
	Condition:   ".SECONDARY_INFO",
	ClassFilter: "s-item__pl-on-bottom",
}

// DefaultRemovals strips title decorations such as the "New Listing" badge
var DefaultRemovals = []ElementRemoval{
	{Selector: ".LIGHT_HIGHLIGHT", ApplyToPath: "title"},
	{Selector: ".clipped", ApplyToPath: "title"},
}

// ScrapeStrategy acquires items by parsing the rendered search results page
type ScrapeStrategy struct {
	BaseCrawler
	URL                 string
	PageSize            int
	Selectors           Selectors
	CustomHandlers      CustomHandlers
	ElementTransformers ElementTransformers
}

// NewScrapeStrategy creates a new scrape strategy. A nil fetcher uses plain HTTP with browser headers.
func NewScrapeStrategy(config ScrapeConfig, cacheSvc cache.CacheService, fetcher Fetcher) *ScrapeStrategy {
	selectors := config.Selectors
	if selectors.ItemList == "" {
		selectors = DefaultSelectors
	}
	transformers := config.ElementTransformers
	if len(transformers.RemoveElements) == 0 {
		transformers.RemoveElements = DefaultRemovals
	}

	return &ScrapeStrategy{
		BaseCrawler: BaseCrawler{
			Name:      scrapeName,
			CacheKey:  config.CacheKey,
			CacheSvc:  cacheSvc,
			BlockTime: time.Duration(config.BlockTime) * time.Second,
			Fetcher:   fetcher,
		},
		URL:                 config.URL,
		PageSize:            config.PageSize,
		Selectors:           selectors,
		CustomHandlers:      config.CustomHandlers,
		ElementTransformers: transformers,
	}
}

// Acquire fetches the results page and extracts one item per result node
func (c *ScrapeStrategy) Acquire(ctx context.Context, query Query) ([]listing.RawItem, error) {
	target, err := c.searchURL(query)
	if err != nil {
		return nil, err
	}

	log := logger.ForStrategy(c.Name)
	log.Debug().Str("url", target).Msg("Fetching search results page")

	utf8Body, err := c.fetchWithCache(ctx, target)
	if err != nil {
		return nil, err
	}

	doc, err := c.createDocument(utf8Body)
	if err != nil {
		return nil, err
	}

	selections := doc.Find(c.Selectors.ItemList)
	items := c.processItems(selections, c.processItem)

	log.Info().Int("nodes", selections.Length()).Int("items", len(items)).Msg("Parsed search results page")
	return items, nil
}

func (c *ScrapeStrategy) searchURL(query Query) (string, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return "", apperrors.NewTransport(c.Name, "invalid search URL", err)
	}

	pageSize := c.PageSize
	if query.PageSize > 0 && (pageSize <= 0 || query.PageSize < pageSize) {
		pageSize = query.PageSize
	}

	params := u.Query()
	params.Set("_nkw", query.Keywords)
	params.Set("LH_Sold", "1")
	params.Set("LH_Complete", "1")
	params.Set("_ipg", strconv.Itoa(pageSize))
	params.Set("_sop", "13")
	u.RawQuery = params.Encode()

	return u.String(), nil
}

// cleanSelection removes specified elements from a selection before getting text
func (c *ScrapeStrategy) cleanSelection(sel *goquery.Selection, path string) *goquery.Selection {
	if sel.Length() == 0 {
		return sel
	}

	// Clone the selection to avoid modifying the original
	clone := sel.Clone()

	for _, removal := range c.ElementTransformers.RemoveElements {
		if removal.ApplyToPath == path {
			clone.Find(removal.Selector).Remove()
		}
	}

	return clone
}

// processElement extracts text from an element using custom handlers or default method
func (c *ScrapeStrategy) processElement(s *goquery.Selection, path string, selector string) string {
	if c.CustomHandlers.ElementHandlers != nil {
		if handler, exists := c.CustomHandlers.ElementHandlers[path]; exists && handler != nil {
			return strings.TrimSpace(handler(s))
		}
	}

	if selector == "" {
		return ""
	}

	elementSel := s.Find(selector).First()
	if elementSel.Length() > 0 {
		cleanSel := c.cleanSelection(elementSel, path)
		return strings.Join(strings.Fields(cleanSel.Text()), " ")
	}

	return ""
}

// processItem maps one result node to a scraped item
func (c *ScrapeStrategy) processItem(s *goquery.Selection) *listing.ScrapedItem {
	// Skip the header/placeholder node
	if c.Selectors.ClassFilter != "" && s.HasClass(c.Selectors.ClassFilter) {
		return nil
	}

	item := &listing.ScrapedItem{
		Title:     c.processElement(s, "title", c.Selectors.Title),
		PriceText: c.processElement(s, "price", c.Selectors.Price),
		Shipping:  c.processElement(s, "shipping", c.Selectors.Shipping),
		Seller:    c.processElement(s, "seller", c.Selectors.Seller),
		EndTime:   c.processElement(s, "endTime", c.Selectors.EndTime),
		Tag:       c.processElement(s, "tag", c.Selectors.Tag),
		Status:    c.processElement(s, "status", c.Selectors.Status),
		Condition: c.processElement(s, "condition", c.Selectors.Condition),
	}

	if c.Selectors.Link != "" {
		if href, exists := s.Find(c.Selectors.Link).First().Attr("href"); exists {
			item.URL = strings.TrimSpace(href)
		}
	}

	return item
}
