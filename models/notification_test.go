package models

import (
	"encoding/json"
	"testing"
)

func TestNotificationStateReadsLegacyKeys(t *testing.T) {
	testCases := []struct {
		name     string
		payload  string
		expected NotificationState
	}{
		{"current keys", `{"notifiedOpen":true,"notifiedLastDay":false}`, NotificationState{NotifiedOpen: true}},
		{"legacy keys", `{"notified_open":true,"notified_last_day":true}`, NotificationState{NotifiedOpen: true, NotifiedLastDay: true}},
		{"mixed keys", `{"notifiedOpen":false,"notified_open":true}`, NotificationState{NotifiedOpen: true}},
		{"unknown keys", `{"notifiedOpen":true,"lastSeen":"2025-01-01","extra":{"a":1}}`, NotificationState{NotifiedOpen: true}},
		{"empty object", `{}`, NotificationState{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var state NotificationState
			if err := json.Unmarshal([]byte(tc.payload), &state); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if state != tc.expected {
				t.Errorf("got %+v, want %+v", state, tc.expected)
			}
		})
	}
}

func TestNotificationStateWritesCamelCase(t *testing.T) {
	encoded, err := json.Marshal(NotificationState{NotifiedOpen: true})
	if err != nil {
		t.Fatal(err)
	}
	if string(encoded) != `{"notifiedOpen":true,"notifiedLastDay":false}` {
		t.Errorf("unexpected encoding %s", encoded)
	}
}

func TestNotificationStoreGetOrCreate(t *testing.T) {
	store := NewNotificationStore()

	state := store.GetOrCreate("Acme Ltd")
	if *state != (NotificationState{}) {
		t.Fatalf("new entry must start with both latches clear, got %+v", *state)
	}

	state.MarkOpen()
	if again := store.GetOrCreate("Acme Ltd"); !again.NotifiedOpen {
		t.Error("GetOrCreate must return the existing entry")
	}

	copied, _ := store.Lookup("Acme Ltd")
	copied.MarkLastDay()
	if original, _ := store.Lookup("Acme Ltd"); original.NotifiedLastDay {
		t.Error("mutating a looked-up copy must not affect the store")
	}
}

func TestNotificationStateMergeNeverClears(t *testing.T) {
	state := NotificationState{NotifiedOpen: true, NotifiedLastDay: true}
	state.Merge(NotificationState{})
	if !state.NotifiedOpen || !state.NotifiedLastDay {
		t.Errorf("merge cleared a latch: %+v", state)
	}
}

func TestFlexStringAcceptsNumbers(t *testing.T) {
	var listing RawListing
	payload := `{"companyName":"Acme Ltd","issueSize":1200.5,"issuePrice":null,"symbol":"ACME"}`
	if err := json.Unmarshal([]byte(payload), &listing); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if listing.IssueSize != "1200.5" || listing.IssuePrice != "" || listing.CompanyName != "Acme Ltd" {
		t.Errorf("unexpected listing %+v", listing)
	}
}
