package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sjsage522/soldlistings/config"
	"sjsage522/soldlistings/internal/api"
	"sjsage522/soldlistings/internal/crawler"
	"sjsage522/soldlistings/services/ingest"
	"sjsage522/soldlistings/services/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const findingJSON = `{
  "findCompletedItemsResponse": [{
    "ack": ["Success"],
    "searchResult": [{
      "@count": "2",
      "item": [
        {
          "itemId": ["111"],
          "title": ["Alkaline Trio - Goddamnit LP"],
          "viewItemURL": ["https://www.ebay.com/itm/111"],
          "sellingStatus": [{"currentPrice": [{"@currencyId": "USD", "__value__": "45.0"}]}],
          "shippingInfo": [{"shippingServiceCost": [{"@currencyId": "USD", "__value__": "5.0"}]}],
          "sellerInfo": [{"sellerUserName": ["punkrecords"]}],
          "listingInfo": [{"endTime": ["2024-03-01T18:22:10.000Z"]}]
        },
        {
          "itemId": ["222"],
          "title": ["Alkaline Trio - From Here to Infirmary CD"],
          "viewItemURL": ["https://www.ebay.com/itm/222"],
          "sellingStatus": [{"currentPrice": [{"@currencyId": "USD", "__value__": "8.0"}]}]
        }
      ]
    }]
  }]
}`

// This is a simple test HTML that mimics a sold results page
const testHTML = `
<!DOCTYPE html>
<html>
<body>
  <ul class="srp-results">
    <li class="s-item s-item__pl-on-bottom"><div class="s-item__title">Shop on eBay</div><span class="s-item__price">$20.00</span></li>
    <li class="s-item">
      <a class="s-item__link" href="https://www.ebay.com/itm/333"><div class="s-item__title">Alkaline Trio - Agony &amp; Irony LP</div></a>
      <span class="s-item__price">$31.00</span>
      <span class="s-item__shipping">Free shipping</span>
    </li>
  </ul>
</body>
</html>
`

type testEnv struct {
	router    http.Handler
	snapshots *store.SnapshotStore
	finding   *httptest.Server
	results   *httptest.Server
}

func newTestEnv(t *testing.T, findingStatus int, strategy string, fallback bool) *testEnv {
	t.Helper()

	finding := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(findingStatus)
		w.Write([]byte(findingJSON))
	}))
	t.Cleanup(finding.Close)

	results := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(testHTML))
	}))
	t.Cleanup(results.Close)

	cfg := config.LoadConfig()
	cfg.CronSecret = "s3cret"
	cfg.EbayAppID = "app-id"
	cfg.FindingAPIURL = finding.URL
	cfg.ScrapeURL = results.URL
	cfg.Strategy = strategy
	cfg.StrategyFallback = fallback
	cfg.StoreBackend = config.BackendMemory
	cfg.HTTPTimeout = 5 * time.Second
	require.NoError(t, cfg.Validate())

	strategyImpl, err := crawler.CreateStrategy(cfg, nil)
	require.NoError(t, err)

	snapshots := store.NewSnapshotStore(cfg.StoreBackend, store.NewMemoryBlobStore())
	orchestrator := ingest.NewOrchestrator(strategyImpl, snapshots, cfg.CronSecret, cfg.SnapshotKey)
	query := crawler.Query{Keywords: cfg.SearchKeywords}
	handler := api.NewHandler(orchestrator, snapshots, nil, query, cfg.SnapshotKey)

	return &testEnv{
		router:    handler.Router(),
		snapshots: snapshots,
		finding:   finding,
		results:   results,
	}
}

func (e *testEnv) get(t *testing.T, target string, header map[string]string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestIntegration_StructuredIngestThenRead(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, config.StrategyStructured, false)

	// nothing written yet
	code, body := env.get(t, "/api/listings", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), body["totalListings"])
	assert.Nil(t, body["lastUpdated"])
	assert.NotEmpty(t, body["message"])

	// bad credential writes nothing
	code, body = env.get(t, "/api/scrape-ebay?secret=nope", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Unauthorized", body["error"])
	code, body = env.get(t, "/api/listings", nil)
	assert.Equal(t, float64(0), body["totalListings"])

	code, body = env.get(t, "/api/scrape-ebay", map[string]string{"X-Cron-Secret": "s3cret"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["listingsScraped"])
	assert.Equal(t, "structured", body["strategy"])
	assert.NotEmpty(t, body["runId"])
	lastUpdated := body["lastUpdated"]

	code, body = env.get(t, "/api/listings", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["totalListings"])
	assert.Equal(t, lastUpdated, body["lastUpdated"])

	listings := body["listings"].([]interface{})
	require.Len(t, listings, 2)
	first := listings[0].(map[string]interface{})
	assert.Equal(t, "Alkaline Trio - Goddamnit LP", first["title"])
	assert.Equal(t, "45.0", first["price"])
	assert.Equal(t, "5.0", first["shippingCost"])
	assert.Equal(t, "punkrecords", first["seller"])
	assert.Equal(t, "2024-03-01T18:22:10Z", first["soldDate"])
	second := listings[1].(map[string]interface{})
	assert.Nil(t, second["soldDate"])
	assert.Equal(t, "Unknown", second["seller"])
}

func TestIntegration_ScrapeExcludesPlaceholder(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, config.StrategyScrape, false)

	code, body := env.get(t, "/api/scrape-ebay?secret=s3cret", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["listingsScraped"])
	assert.Equal(t, "scrape", body["strategy"])

	_, body = env.get(t, "/api/listings", nil)
	listings := body["listings"].([]interface{})
	require.Len(t, listings, 1)
	only := listings[0].(map[string]interface{})
	assert.Equal(t, "Alkaline Trio - Agony & Irony LP", only["title"])
	assert.Equal(t, "31.00", only["price"])
	assert.Equal(t, "0", only["shippingCost"])
	assert.Equal(t, "333", only["itemId"])
	assert.NotNil(t, only["soldDate"])
}

func TestIntegration_UpstreamFailureKeepsSnapshot(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, config.StrategyStructured, false)
	code, _ := env.get(t, "/api/scrape-ebay?secret=s3cret", nil)
	require.Equal(t, http.StatusOK, code)

	env.finding.Close()

	code, body := env.get(t, "/api/scrape-ebay?secret=s3cret", nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Failed to scrape eBay listings", body["error"])
	assert.Equal(t, "upstream_failure", body["kind"])

	_, body = env.get(t, "/api/listings", nil)
	assert.Equal(t, float64(2), body["totalListings"])
}

func TestIntegration_FallbackToScrape(t *testing.T) {
	env := newTestEnv(t, http.StatusInternalServerError, config.StrategyStructured, true)

	code, body := env.get(t, "/api/scrape-ebay?secret=s3cret", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "scrape", body["strategy"])
	assert.Equal(t, float64(1), body["listingsScraped"])
}
