package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/fenilmodi00/ipo-alert-bot/shared"
	"github.com/sirupsen/logrus"
)

const nseBrowserSourceName = "nse-browser"

// nseFetchScript runs inside the NSE page so the request carries the cookies the page obtained
const nseFetchScript = `fetch(%q, {credentials: "include", headers: {"Accept": "application/json, text/plain, */*"}})
	.then(function (response) {
		if (!response.ok) { throw new Error("HTTP " + response.status); }
		return response.text();
	})`

// NSEBrowserListingSource fetches the NSE current-issue API from inside a headless Chrome page.
// It is the fallback for hosts where NSE's bot protection rejects the plain HTTP handshake.
type NSEBrowserListingSource struct {
	baseURL string
	timeout time.Duration
}

// NewNSEBrowserListingSource creates a headless-browser NSE listing source
func NewNSEBrowserListingSource(baseURL string, timeout time.Duration) *NSEBrowserListingSource {
	return &NSEBrowserListingSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
	}
}

// Name implements ListingSource
func (s *NSEBrowserListingSource) Name() string {
	return nseBrowserSourceName
}

// FetchListings implements ListingSource
func (s *NSEBrowserListingSource) FetchListings(ctx context.Context) shared.FetchResult {
	pageURL := s.baseURL + NSEReferrerPath

	logger := logrus.WithFields(logrus.Fields{
		"component": "NSEBrowserListingSource",
		"method":    "FetchListings",
		"url":       pageURL,
	})

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(shared.BrowserUserAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// Chrome start-up and page load take longer than a plain API call
	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, 3*s.timeout)
	defer cancelTimeout()

	logger.Info("Fetching current IPO issues through headless browser")

	var body string
	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(1920, 1080),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(fmt.Sprintf(nseFetchScript, NSECurrentIssuePath), &body, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	)
	if err != nil {
		serviceErr := shared.NewServiceError(shared.ErrorCategoryNetwork, shared.CodeBrowserFailed,
			"headless browser fetch failed", "NSEBrowserListingSource", "FetchListings", true, err)
		logger.WithFields(serviceErr.Fields()).Warn("NSE browser fetch failed, continuing with no listings")
		return shared.FetchFailure(s.Name(), serviceErr)
	}

	listings, err := DecodeNSEPayload([]byte(body))
	if err != nil {
		serviceErr := shared.NewServiceError(shared.ErrorCategoryValidation, shared.CodeDecodeFailed,
			"current issue API returned malformed JSON", "NSEBrowserListingSource", "FetchListings", false, err)
		logger.WithFields(serviceErr.Fields()).Warn("NSE browser fetch failed, continuing with no listings")
		return shared.FetchFailure(s.Name(), serviceErr)
	}

	logger.WithField("listing_count", len(listings)).Info("Fetched current IPO issues through headless browser")
	return shared.FetchResult{Source: s.Name(), Listings: listings}
}
