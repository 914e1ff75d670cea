package crawler

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"sjsage522/soldlistings/helpers"
	"sjsage522/soldlistings/logger"

	"github.com/chromedp/chromedp"
)

// ChromeFetcher renders pages in a remote headless Chrome before extraction
type ChromeFetcher struct {
	WSURL   string
	Wait    time.Duration
	Timeout time.Duration
}

// NewChromeFetcher creates a fetcher bound to the DevTools endpoint at wsURL
func NewChromeFetcher(wsURL string) *ChromeFetcher {
	return &ChromeFetcher{
		WSURL:   wsURL,
		Wait:    3 * time.Second,
		Timeout: 45 * time.Second,
	}
}

// Fetch implements Fetcher
func (f *ChromeFetcher) Fetch(ctx context.Context, url string) (io.Reader, error) {
	log := logger.ForStrategy(scrapeName)

	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(ctx, f.WSURL)
	defer cancelAlloc()

	// silence chromedp's own logging of unhandled CDP events
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.Timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(f.Wait),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome render %s: %w", url, err)
	}

	log.Debug().Int("bytes", len(html)).Msg("Rendered page in Chrome")

	if strings.Contains(html, "Pardon Our Interruption") {
		return nil, fmt.Errorf("chrome render %s: %w", url, helpers.ErrRateLimited)
	}
	return strings.NewReader(html), nil
}
