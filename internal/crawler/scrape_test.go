package crawler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"sjsage522/soldlistings/internal/listing"
	apperrors "sjsage522/soldlistings/pkg/errors"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `<html><body><ul class="srp-results">
  <li class="s-item s-item__pl-on-bottom">
    <div class="s-item__title">Shop on eBay</div>
    <span class="s-item__price">$20.00</span>
  </li>
  <li class="s-item">
    <a class="s-item__link" href="https://www.ebay.com/itm/333?hash=abc">
      <div class="s-item__title"><span class="LIGHT_HIGHLIGHT">New Listing</span>Alkaline Trio - Crimson CD</div>
    </a>
    <div class="s-item__caption"><span class="s-item__caption--signal POSITIVE">Sold  Oct 5, 2024</span></div>
    <span class="SECONDARY_INFO">Pre-Owned</span>
    <span class="s-item__price">$1,234.56</span>
    <span class="s-item__shipping">Free shipping</span>
    <span class="s-item__seller-info-text">Seller: cdbarn</span>
  </li>
  <li class="s-item">
    <a class="s-item__link" href="https://www.ebay.com/itm/444"><div class="s-item__title">Alkaline Trio pin</div></a>
    <span class="s-item__price">$3.00</span>
    <span class="s-item__shipping">+ $5.00 shipping</span>
  </li>
  <li class="s-item">
    <div class="s-item__title">Alkaline Trio mystery</div>
    <span class="s-item__price">Price unavailable</span>
  </li>
</ul></body></html>`

func newResultsServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32, *string) {
	t.Helper()
	var calls atomic.Int32
	var rawQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		rawQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &calls, &rawQuery
}

func TestScrapeStrategy_Acquire(t *testing.T) {
	server, _, rawQuery := newResultsServer(t, http.StatusOK, resultsPage)
	strategy := NewScrapeStrategy(ScrapeConfig{URL: server.URL, PageSize: 240}, nil, nil)
	assert.Equal(t, "scrape", strategy.GetName())

	items, err := strategy.Acquire(context.Background(), Query{Keywords: "alkaline trio"})
	require.NoError(t, err)
	// the placeholder node is skipped by the class filter
	require.Len(t, items, 3)

	crimson := items[0].(listing.ScrapedItem)
	assert.Equal(t, "Alkaline Trio - Crimson CD", crimson.Title)
	assert.Equal(t, "$1,234.56", crimson.PriceText)
	assert.Equal(t, "Free shipping", crimson.Shipping)
	assert.Equal(t, "Seller: cdbarn", crimson.Seller)
	assert.Equal(t, "Sold Oct 5, 2024", crimson.Tag)
	assert.Equal(t, "Pre-Owned", crimson.Condition)
	assert.Equal(t, "https://www.ebay.com/itm/333?hash=abc", crimson.URL)

	assert.Contains(t, *rawQuery, "_nkw=alkaline+trio")
	assert.Contains(t, *rawQuery, "LH_Sold=1")
	assert.Contains(t, *rawQuery, "LH_Complete=1")
	assert.Contains(t, *rawQuery, "_ipg=240")
	assert.Contains(t, *rawQuery, "_sop=13")

	acquiredAt := time.Date(2024, 10, 18, 12, 0, 0, 0, time.UTC)
	listings := listing.Normalize(items, acquiredAt)
	require.Len(t, listings, 2)
	assert.Equal(t, "1234.56", listings[0].Price)
	assert.Equal(t, "0", listings[0].ShippingCost)
	assert.Equal(t, "cdbarn", listings[0].Seller)
	assert.Equal(t, "2024-10-05T00:00:00Z", *listings[0].SoldDate)
	assert.Equal(t, "5.00", listings[1].ShippingCost)
	assert.Equal(t, acquiredAt.Format(time.RFC3339), *listings[1].SoldDate)
}

func TestScrapeStrategy_NonSuccessStatus(t *testing.T) {
	server, _, _ := newResultsServer(t, http.StatusServiceUnavailable, "down")
	strategy := NewScrapeStrategy(ScrapeConfig{URL: server.URL, PageSize: 240}, nil, nil)

	_, err := strategy.Acquire(context.Background(), Query{Keywords: "x"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeTransport, apperrors.KindOf(err))
}

func TestScrapeStrategy_RateLimitBlock(t *testing.T) {
	server, calls, _ := newResultsServer(t, http.StatusTooManyRequests, "slow down")
	mockCache := NewMockCacheService()
	strategy := NewScrapeStrategy(ScrapeConfig{
		URL:       server.URL,
		PageSize:  240,
		CacheKey:  "test_rate_limited",
		BlockTime: 600,
	}, mockCache, nil)

	_, err := strategy.Acquire(context.Background(), Query{Keywords: "x"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeRateLimit, apperrors.KindOf(err))
	assert.Equal(t, 10*time.Minute, mockCache.ttl["test_rate_limited"])

	// blocked: fails fast without calling upstream
	_, err = strategy.Acquire(context.Background(), Query{Keywords: "x"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeRateLimit, apperrors.KindOf(err))
	assert.Equal(t, int32(1), calls.Load())

	require.NoError(t, mockCache.Delete("test_rate_limited"))
	_, _ = strategy.Acquire(context.Background(), Query{Keywords: "x"})
	assert.Equal(t, int32(2), calls.Load())
}

func TestScrapeStrategy_CustomFetcher(t *testing.T) {
	var fetched string
	fetcher := FetcherFunc(func(ctx context.Context, url string) (io.Reader, error) {
		fetched = url
		return strings.NewReader(resultsPage), nil
	})
	strategy := NewScrapeStrategy(ScrapeConfig{URL: "https://www.ebay.com/sch/i.html", PageSize: 240}, nil, fetcher)

	items, err := strategy.Acquire(context.Background(), Query{Keywords: "alkaline trio", PageSize: 50})
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.True(t, strings.HasPrefix(fetched, "https://www.ebay.com/sch/i.html?"))
	assert.Contains(t, fetched, "_ipg=50")
}

func TestScrapeStrategy_ProcessElement(t *testing.T) {
	strategy := NewScrapeStrategy(ScrapeConfig{
		URL: "https://example.com",
		CustomHandlers: CustomHandlers{
			ElementHandlers: map[string]CustomElementHandlerFunc{
				"seller": func(s *goquery.Selection) string {
					return s.Find("span.user").AttrOr("data-name", "")
				},
			},
		},
	}, nil, nil)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<li class="s-item"><div class="s-item__title"><span class="LIGHT_HIGHLIGHT">New Listing</span>  Skeleton   Key </div><span class="user" data-name=" vinylhub "></span></li>`))
	require.NoError(t, err)
	node := doc.Find("li.s-item")

	assert.Equal(t, "Skeleton Key", strategy.processElement(node, "title", ".s-item__title"))
	assert.Equal(t, "vinylhub", strategy.processElement(node, "seller", ".missing"))
	assert.Equal(t, "", strategy.processElement(node, "status", ".s-item__caption"))

	// the original node is left untouched by removals
	assert.Contains(t, node.Find(".s-item__title").Text(), "New Listing")
}

func TestLoadSelectors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
selectors:
  item_list: "div.result"
  price: "span.amount"
remove_elements:
  - selector: "em"
    apply_to_path: "title"
`), 0o600))

	selectors, transformers, err := LoadSelectors(path)
	require.NoError(t, err)
	assert.Equal(t, "div.result", selectors.ItemList)
	assert.Equal(t, "span.amount", selectors.Price)
	assert.Equal(t, DefaultSelectors.Title, selectors.Title)
	require.Len(t, transformers.RemoveElements, 1)
	assert.Equal(t, ElementRemoval{Selector: "em", ApplyToPath: "title"}, transformers.RemoveElements[0])

	_, _, err = LoadSelectors(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
