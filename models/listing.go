package models

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// ListingStatus is the normalized lifecycle status of an IPO listing
type ListingStatus string

const (
	ListingStatusOpen     ListingStatus = "open"
	ListingStatusClosed   ListingStatus = "closed"
	ListingStatusUpcoming ListingStatus = "upcoming"
	ListingStatusUnknown  ListingStatus = "unknown"
)

// FlexString decodes a JSON string or number into its textual form.
// Listing providers are inconsistent about quoting numeric fields such as issue size.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}

	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*f = FlexString(text)
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err != nil {
		return err
	}
	*f = FlexString(number.String())
	return nil
}

// String returns the raw text
func (f FlexString) String() string {
	return string(f)
}

// RawListing is a listing record exactly as a listing source delivered it.
// Field names follow the NSE current-issue API.
type RawListing struct {
	Symbol         FlexString `json:"symbol"`
	CompanyName    FlexString `json:"companyName"`
	Series         FlexString `json:"series"`
	IssueStartDate FlexString `json:"issueStartDate"`
	IssueEndDate   FlexString `json:"issueEndDate"`
	Status         FlexString `json:"status"`
	IssueSize      FlexString `json:"issueSize"`
	IssuePrice     FlexString `json:"issuePrice"`
}

// ListingRecord is a normalized listing produced by the evaluation engine for a single pass
type ListingRecord struct {
	CompanyName    string
	IssueSize      decimal.Decimal
	IssueStartDate string
	IssueEndDate   string
	Status         ListingStatus
}

// Identity returns the key the notification store uses for this listing
func (r ListingRecord) Identity() string {
	return strings.TrimSpace(r.CompanyName)
}
