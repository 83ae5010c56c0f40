package services

import (
	"regexp"
	"strings"
	"time"

	"github.com/fenilmodi00/ipo-alert-bot/models"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// RunDateLayout is the day-month-year layout NSE uses for subscription window dates
const RunDateLayout = "02-Jan-2006"

var (
	whitespaceRegex      = regexp.MustCompile(`\s+`)
	currencyPrefixRegex  = regexp.MustCompile(`(?i)^(₹|rs\.?|inr)\s*`)
	currencyUnitRegex    = regexp.MustCompile(`(?i)\s*(crores?|cr\.?)$`)
	thousandsSeparators  = strings.NewReplacer(",", "", "_", "")
	plainMagnitudeRegex  = regexp.MustCompile(`^-?\d{1,20}(\.\d{1,10})?$`)
	notAvailablePatterns = []string{"", "-", "--", "na", "n/a", "tba", "to be announced"}
)

var listingDateFormats = []string{
	RunDateLayout,       // 05-Jan-2025
	"2-Jan-2006",        // 5-Jan-2025
	"02-Jan-06",         // 05-Jan-25
	"02 Jan 2006",       // 05 Jan 2025
	"Jan 2, 2006",       // Jan 5, 2025
	"Mon, Jan 2, 2006",  // Sun, Jan 5, 2025
	"January 2, 2006",   // January 5, 2025
	"2006-01-02",        // 2025-01-05
	"02/01/2006",        // 05/01/2025
	"Mon, 02 Jan 2006",  // Sun, 05 Jan 2025
	"Monday, 02-Jan-06", // Sunday, 05-Jan-25
}

// UtilityService provides normalization and parsing for raw listing fields
type UtilityService struct{}

// NewUtilityService creates a new utility service instance
func NewUtilityService() *UtilityService {
	return &UtilityService{}
}

// fold case-folds text for comparisons. A Caser keeps internal state, so one is created per call.
func (s *UtilityService) fold(text string) string {
	return cases.Fold().String(s.NormalizeTextContent(text))
}

// NormalizeTextContent trims and collapses whitespace
func (s *UtilityService) NormalizeTextContent(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\u00a0", " ")
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

// ExtractCompanyName returns the listing identity: the company name with surrounding whitespace removed
func (s *UtilityService) ExtractCompanyName(raw string) string {
	return strings.TrimSpace(raw)
}

// ParseIssueSize converts issue size text such as "1,200 Cr" into a magnitude.
// Anything unparsable yields zero so the listing falls below any positive threshold.
// Only plain decimal notation is accepted; exponent forms yield zero.
func (s *UtilityService) ParseIssueSize(text string) decimal.Decimal {
	cleaned := s.NormalizeTextContent(text)
	cleaned = currencyPrefixRegex.ReplaceAllString(cleaned, "")
	cleaned = currencyUnitRegex.ReplaceAllString(cleaned, "")
	cleaned = thousandsSeparators.Replace(cleaned)
	cleaned = strings.TrimSpace(cleaned)

	if !plainMagnitudeRegex.MatchString(cleaned) {
		return decimal.Zero
	}

	size, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return size
}

// FormatIssueSize renders a magnitude for notification text
func (s *UtilityService) FormatIssueSize(size decimal.Decimal) string {
	return size.String()
}

// NormalizeStatus maps free-text provider status onto the listing status set
func (s *UtilityService) NormalizeStatus(status string) models.ListingStatus {
	folded := s.fold(status)

	switch folded {
	case "open", "active", "live", "open for subscription", "subscription open":
		return models.ListingStatusOpen
	case "closed", "close", "subscription closed":
		return models.ListingStatusClosed
	case "upcoming", "forthcoming":
		return models.ListingStatusUpcoming
	default:
		return models.ListingStatusUnknown
	}
}

// IsNotAvailable reports whether text is a placeholder for missing data
func (s *UtilityService) IsNotAvailable(text string) bool {
	folded := s.fold(text)
	for _, pattern := range notAvailablePatterns {
		if folded == pattern {
			return true
		}
	}
	return false
}

// ParseListingDate parses a subscription window date in any of the supported provider layouts
func (s *UtilityService) ParseListingDate(text string) (time.Time, bool) {
	normalized := s.NormalizeTextContent(text)
	if s.IsNotAvailable(normalized) {
		return time.Time{}, false
	}

	for _, layout := range listingDateFormats {
		if parsed, err := time.Parse(layout, normalized); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// FormatRunDate renders the run date the way listing end dates are written
func (s *UtilityService) FormatRunDate(runDate time.Time) string {
	return runDate.Format(RunDateLayout)
}

// IsSameCalendarDay reports whether dateText names the calendar day of runDate.
// Exact text equality with the run date is checked first; otherwise the text is parsed and
// compared by year, month and day without any timezone conversion.
func (s *UtilityService) IsSameCalendarDay(dateText string, runDate time.Time) bool {
	trimmed := strings.TrimSpace(dateText)
	if trimmed == "" {
		return false
	}
	if trimmed == s.FormatRunDate(runDate) {
		return true
	}

	parsed, ok := s.ParseListingDate(trimmed)
	if !ok {
		return false
	}

	year, month, day := runDate.Date()
	parsedYear, parsedMonth, parsedDay := parsed.Date()
	return year == parsedYear && month == parsedMonth && day == parsedDay
}

// DeriveStatus computes a status from the subscription window for sources that do not publish one
func (s *UtilityService) DeriveStatus(startText, endText string, runDate time.Time) models.ListingStatus {
	start, startOK := s.ParseListingDate(startText)
	end, endOK := s.ParseListingDate(endText)
	if !startOK || !endOK {
		return models.ListingStatusUnknown
	}

	year, month, day := runDate.Date()
	today := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)

	switch {
	case today.Before(start):
		return models.ListingStatusUpcoming
	case today.After(end):
		return models.ListingStatusClosed
	default:
		return models.ListingStatusOpen
	}
}
