package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fenilmodi00/ipo-alert-bot/models"
	"github.com/fenilmodi00/ipo-alert-bot/shared"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

const (
	// NSECurrentIssuePath is the NSE API path listing issues currently in their subscription window
	NSECurrentIssuePath = "/api/ipo-current-issue"
	// NSEReferrerPath is the page a browser would be on when it calls the API
	NSEReferrerPath = "/market-data/all-upcoming-issues-ipo"

	nseSourceName = "nse"
)

// NSEListingSource fetches current IPO issues from the NSE API.
// NSE rejects API calls without session cookies, so every fetch first loads the site root with a
// single collector and then requests the API inside the same cookie session.
type NSEListingSource struct {
	baseURL     string
	timeout     time.Duration
	rateLimiter *shared.HTTPRequestRateLimiter
}

// NewNSEListingSource creates an NSE listing source
func NewNSEListingSource(baseURL string, timeout, handshakeDelay time.Duration) *NSEListingSource {
	return &NSEListingSource{
		baseURL:     strings.TrimRight(baseURL, "/"),
		timeout:     timeout,
		rateLimiter: shared.NewHTTPRequestRateLimiter(handshakeDelay),
	}
}

// Name implements ListingSource
func (s *NSEListingSource) Name() string {
	return nseSourceName
}

// FetchListings implements ListingSource
func (s *NSEListingSource) FetchListings(ctx context.Context) shared.FetchResult {
	apiURL := s.baseURL + NSECurrentIssuePath

	logger := logrus.WithFields(logrus.Fields{
		"component": "NSEListingSource",
		"method":    "FetchListings",
		"url":       apiURL,
	})

	collector := colly.NewCollector(
		colly.UserAgent(shared.BrowserUserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(s.timeout)

	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		if strings.HasSuffix(r.URL.Path, NSECurrentIssuePath) {
			shared.ApplyBrowserLikeHeaders(*r.Headers, "application/json, text/plain, */*")
			r.Headers.Set("Referer", s.baseURL+NSEReferrerPath)
			r.Headers.Set("X-Requested-With", "XMLHttpRequest")
		} else {
			shared.ApplyBrowserLikeHeaders(*r.Headers, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		}
		logger.WithField("request_url", r.URL.String()).Debug("Requesting NSE resource")
	})

	var statusCode int
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			statusCode = r.StatusCode
		}
	})

	var payload []byte
	collector.OnResponse(func(r *colly.Response) {
		statusCode = r.StatusCode
		if strings.HasSuffix(r.Request.URL.Path, NSECurrentIssuePath) {
			payload = r.Body
		}
	})

	if err := s.rateLimiter.Wait(ctx); err != nil {
		return s.fail(logger, shared.ErrorCategoryTimeout, shared.CodeRequestFailed, "fetch cancelled before handshake", true, err)
	}
	if err := collector.Visit(s.baseURL + "/"); err != nil {
		return s.fail(logger, shared.ErrorCategoryNetwork, shared.CodeHandshakeFailed,
			fmt.Sprintf("session handshake failed (status %d)", statusCode), true, err)
	}

	if err := s.rateLimiter.Wait(ctx); err != nil {
		return s.fail(logger, shared.ErrorCategoryTimeout, shared.CodeRequestFailed, "fetch cancelled after handshake", true, err)
	}
	statusCode = 0
	if err := collector.Visit(apiURL); err != nil {
		if statusCode != 0 && statusCode != http.StatusOK {
			return s.fail(logger, shared.ErrorCategoryNetwork, shared.CodeHTTPStatus,
				fmt.Sprintf("current issue API returned HTTP %d", statusCode), statusCode >= 500, err)
		}
		return s.fail(logger, shared.ErrorCategoryNetwork, shared.CodeRequestFailed, "current issue API request failed", true, err)
	}
	if ctx.Err() != nil {
		return s.fail(logger, shared.ErrorCategoryTimeout, shared.CodeRequestFailed, "fetch cancelled", true, ctx.Err())
	}

	listings, err := DecodeNSEPayload(payload)
	if err != nil {
		return s.fail(logger, shared.ErrorCategoryValidation, shared.CodeDecodeFailed, "current issue API returned malformed JSON", false, err)
	}

	logger.WithField("listing_count", len(listings)).Info("Fetched current IPO issues from NSE")
	return shared.FetchResult{Source: s.Name(), Listings: listings}
}

func (s *NSEListingSource) fail(logger *logrus.Entry, category shared.ErrorCategory, code, message string, retryable bool, cause error) shared.FetchResult {
	serviceErr := shared.NewServiceError(category, code, message, "NSEListingSource", "FetchListings", retryable, cause)
	logger.WithFields(serviceErr.Fields()).Warn("NSE fetch failed, continuing with no listings")
	return shared.FetchFailure(s.Name(), serviceErr)
}

// DecodeNSEPayload decodes the current-issue response. NSE serves a bare JSON array; some mirrors
// wrap it in {"data": [...]}. Records that fail to decode are skipped so one bad record never drops the batch.
func DecodeNSEPayload(payload []byte) ([]models.RawListing, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	var elements []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &elements); err != nil {
			return nil, fmt.Errorf("failed to decode listing array: %w", err)
		}
		return decodeListingElements(elements), nil
	}

	var wrapped struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode listing object: %w", err)
	}
	if wrapped.Data == nil {
		return nil, fmt.Errorf("response object has no data field")
	}
	return decodeListingElements(wrapped.Data), nil
}

func decodeListingElements(elements []json.RawMessage) []models.RawListing {
	listings := make([]models.RawListing, 0, len(elements))
	for index, element := range elements {
		var listing models.RawListing
		if err := json.Unmarshal(element, &listing); err != nil {
			logrus.WithFields(logrus.Fields{
				"component": "NSEListingSource",
				"method":    "DecodeNSEPayload",
				"index":     index,
				"error":     err.Error(),
			}).Warn("Skipping malformed listing record")
			continue
		}
		listings = append(listings, listing)
	}
	return listings
}
