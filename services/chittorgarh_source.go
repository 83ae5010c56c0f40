package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/fenilmodi00/ipo-alert-bot/models"
	"github.com/fenilmodi00/ipo-alert-bot/shared"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

const chittorgarhSourceName = "chittorgarh"

// listingTableColumns holds the column index of each field in a listing table, -1 when absent
type listingTableColumns struct {
	company int
	open    int
	close   int
	size    int
	status  int
}

func (c listingTableColumns) usable() bool {
	return c.company >= 0 && c.open >= 0 && c.close >= 0
}

// ChittorgarhListingSource scrapes the Chittorgarh mainboard IPO list page.
// The page has no status column for most layouts, so status is derived from the subscription window.
type ChittorgarhListingSource struct {
	pageURL string
	timeout time.Duration
	utility *UtilityService
	now     func() time.Time
}

// NewChittorgarhListingSource creates a Chittorgarh listing source
func NewChittorgarhListingSource(pageURL string, timeout time.Duration, now func() time.Time) *ChittorgarhListingSource {
	if now == nil {
		now = time.Now
	}
	return &ChittorgarhListingSource{
		pageURL: pageURL,
		timeout: timeout,
		utility: NewUtilityService(),
		now:     now,
	}
}

// Name implements ListingSource
func (s *ChittorgarhListingSource) Name() string {
	return chittorgarhSourceName
}

// FetchListings implements ListingSource
func (s *ChittorgarhListingSource) FetchListings(ctx context.Context) shared.FetchResult {
	logger := logrus.WithFields(logrus.Fields{
		"component": "ChittorgarhListingSource",
		"method":    "FetchListings",
		"url":       s.pageURL,
	})

	collector := colly.NewCollector(colly.UserAgent(shared.BrowserUserAgent))
	collector.SetRequestTimeout(s.timeout)

	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		shared.ApplyBrowserLikeHeaders(*r.Headers, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	})

	var statusCode int
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			statusCode = r.StatusCode
		}
	})

	runDate := s.now()
	var listings []models.RawListing
	tableFound := false
	collector.OnHTML("table", func(e *colly.HTMLElement) {
		if tableFound {
			return
		}
		if rows, ok := s.ParseListingTable(e.DOM, runDate); ok {
			tableFound = true
			listings = rows
		}
	})

	if err := collector.Visit(s.pageURL); err != nil {
		code := shared.CodeRequestFailed
		message := "listing page request failed"
		if statusCode != 0 {
			code = shared.CodeHTTPStatus
			message = fmt.Sprintf("listing page returned HTTP %d", statusCode)
		}
		return s.fail(logger, shared.ErrorCategoryNetwork, code, message, true, err)
	}
	if ctx.Err() != nil {
		return s.fail(logger, shared.ErrorCategoryTimeout, shared.CodeRequestFailed, "fetch cancelled", true, ctx.Err())
	}
	if !tableFound {
		return s.fail(logger, shared.ErrorCategoryValidation, shared.CodeNoTable, "no IPO listing table found on page", false, nil)
	}

	logger.WithField("listing_count", len(listings)).Info("Fetched IPO listings from Chittorgarh")
	return shared.FetchResult{Source: s.Name(), Listings: listings}
}

// ParseListingTable extracts listings from a table whose header names company, open and close columns
func (s *ChittorgarhListingSource) ParseListingTable(table *goquery.Selection, runDate time.Time) ([]models.RawListing, bool) {
	headerCells := table.Find("thead tr").First().Find("th, td")
	if headerCells.Length() == 0 {
		headerCells = table.Find("tr").First().Find("th")
	}

	columns := listingTableColumns{company: -1, open: -1, close: -1, size: -1, status: -1}
	headerCells.Each(func(index int, cell *goquery.Selection) {
		header := strings.ToLower(s.utility.NormalizeTextContent(cell.Text()))
		switch {
		case columns.company < 0 && (strings.Contains(header, "company") || strings.Contains(header, "issuer") || header == "name"):
			columns.company = index
		case columns.open < 0 && strings.Contains(header, "open"):
			columns.open = index
		case columns.close < 0 && strings.Contains(header, "close"):
			columns.close = index
		case columns.size < 0 && strings.Contains(header, "size"):
			columns.size = index
		case columns.status < 0 && strings.Contains(header, "status"):
			columns.status = index
		}
	})
	if !columns.usable() {
		return nil, false
	}

	listings := []models.RawListing{}
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}
		cellText := func(index int) string {
			if index < 0 || index >= cells.Length() {
				return ""
			}
			return s.utility.NormalizeTextContent(cells.Eq(index).Text())
		}

		company := strings.TrimSpace(strings.TrimSuffix(cellText(columns.company), " IPO"))
		start := s.canonicalDate(cellText(columns.open))
		end := s.canonicalDate(cellText(columns.close))

		status := cellText(columns.status)
		if status == "" {
			status = string(s.utility.DeriveStatus(start, end, runDate))
		}

		listings = append(listings, models.RawListing{
			CompanyName:    models.FlexString(company),
			IssueStartDate: models.FlexString(start),
			IssueEndDate:   models.FlexString(end),
			IssueSize:      models.FlexString(cellText(columns.size)),
			Status:         models.FlexString(status),
		})
	})

	return listings, true
}

// canonicalDate rewrites a parseable date in the NSE day-month-year layout so messages look the same
// whichever source produced them
func (s *ChittorgarhListingSource) canonicalDate(text string) string {
	if parsed, ok := s.utility.ParseListingDate(text); ok {
		return parsed.Format(RunDateLayout)
	}
	return text
}

func (s *ChittorgarhListingSource) fail(logger *logrus.Entry, category shared.ErrorCategory, code, message string, retryable bool, cause error) shared.FetchResult {
	serviceErr := shared.NewServiceError(category, code, message, "ChittorgarhListingSource", "FetchListings", retryable, cause)
	logger.WithFields(serviceErr.Fields()).Warn("Chittorgarh fetch failed, continuing with no listings")
	return shared.FetchFailure(s.Name(), serviceErr)
}
