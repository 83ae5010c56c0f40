package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fenilmodi00/ipo-alert-bot/shared"
)

const nseSessionCookie = "nsit"

// newNSEServer serves a site root that issues a session cookie and an API that requires it
func newNSEServer(t *testing.T, apiStatus int, apiBody string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: nseSessionCookie, Value: "session-1", Path: "/"})
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>NSE</body></html>"))
	})
	mux.HandleFunc(NSECurrentIssuePath, func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(nseSessionCookie); err != nil || cookie.Value != "session-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Referer") == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(apiStatus)
		w.Write([]byte(apiBody))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestNSEListingSourceUsesSessionCookie(t *testing.T) {
	body := `[
		{"symbol":"ACME","companyName":"Acme Ltd","series":"EQ","issueStartDate":"01-Jan-2025","issueEndDate":"05-Jan-2025","status":"Active","issueSize":"12000000","issuePrice":"Rs.100 to Rs.110"},
		{"symbol":"BETA","companyName":"Beta Corp","issueStartDate":"02-Jan-2025","issueEndDate":"06-Jan-2025","status":"Active","issueSize":750.5}
	]`
	server := newNSEServer(t, http.StatusOK, body)

	source := NewNSEListingSource(server.URL, 5*time.Second, 0)
	result := source.FetchListings(context.Background())

	if result.Failed() {
		t.Fatalf("unexpected fetch failure: %v", result.Err)
	}
	if result.Source != "nse" {
		t.Errorf("unexpected source name %q", result.Source)
	}
	if len(result.Listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(result.Listings))
	}
	if result.Listings[0].CompanyName != "Acme Ltd" || result.Listings[0].IssueEndDate != "05-Jan-2025" {
		t.Errorf("unexpected first listing: %+v", result.Listings[0])
	}
	if result.Listings[1].IssueSize != "750.5" {
		t.Errorf("numeric issue size should decode as text, got %q", result.Listings[1].IssueSize)
	}
}

func TestNSEListingSourceNon2xx(t *testing.T) {
	server := newNSEServer(t, http.StatusServiceUnavailable, `{"error":"busy"}`)

	result := NewNSEListingSource(server.URL, 5*time.Second, 0).FetchListings(context.Background())

	if !result.Failed() {
		t.Fatal("expected fetch failure")
	}
	if result.Err.Code != shared.CodeHTTPStatus {
		t.Errorf("expected %s, got %s", shared.CodeHTTPStatus, result.Err.Code)
	}
	if result.Listings == nil || len(result.Listings) != 0 {
		t.Errorf("failed fetch must yield an empty listing sequence, got %v", result.Listings)
	}
}

func TestNSEListingSourceMalformedJSON(t *testing.T) {
	server := newNSEServer(t, http.StatusOK, `{"data": [ {"companyName": `)

	result := NewNSEListingSource(server.URL, 5*time.Second, 0).FetchListings(context.Background())

	if !result.Failed() || result.Err.Code != shared.CodeDecodeFailed {
		t.Fatalf("expected %s failure, got %+v", shared.CodeDecodeFailed, result.Err)
	}
	if len(result.Listings) != 0 {
		t.Errorf("expected no listings, got %d", len(result.Listings))
	}
}

func TestNSEListingSourceUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	result := NewNSEListingSource(server.URL, time.Second, 0).FetchListings(context.Background())

	if !result.Failed() || result.Err.Code != shared.CodeHandshakeFailed {
		t.Fatalf("expected %s failure, got %+v", shared.CodeHandshakeFailed, result.Err)
	}
}

func TestDecodeNSEPayload(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
		count   int
		wantErr bool
	}{
		{"bare array", `[{"companyName":"Acme Ltd"}]`, 1, false},
		{"wrapped", `{"data":[{"companyName":"Acme Ltd"},{"companyName":"Beta"}]}`, 2, false},
		{"empty array", `[]`, 0, false},
		{"null fields", `[{"companyName":"Acme Ltd","issueSize":null}]`, 1, false},
		{"bool field skipped", `[{"companyName":"Bad Co","issueSize":true},{"companyName":"Acme Ltd"}]`, 1, false},
		{"object field skipped", `{"data":[{"companyName":{"x":1}},{"companyName":"Acme Ltd"},{"status":[1]}]}`, 1, false},
		{"non-object element skipped", `[42,"text",{"companyName":"Acme Ltd"}]`, 1, false},
		{"empty body", ``, 0, true},
		{"object without data", `{"message":"denied"}`, 0, true},
		{"html", `<html></html>`, 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			listings, err := DecodeNSEPayload([]byte(tc.payload))
			if (err != nil) != tc.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if len(listings) != tc.count {
				t.Errorf("expected %d listings, got %d", tc.count, len(listings))
			}
		})
	}
}

func TestDecodeNSEPayloadKeepsGoodRecordsAroundMalformedOne(t *testing.T) {
	payload := `[
		{"companyName":"Bad Co","issueSize":true},
		{"companyName":"Acme Ltd","issueSize":"1,200 Cr","issueStartDate":"01-Jan-2025","issueEndDate":"05-Jan-2025","status":"Active"}
	]`

	listings, err := DecodeNSEPayload([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(listings))
	}
	if listings[0].CompanyName != "Acme Ltd" || listings[0].IssueSize != "1,200 Cr" {
		t.Errorf("unexpected listing: %+v", listings[0])
	}
}
