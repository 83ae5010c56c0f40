package models

import (
	"encoding/json"
	"sort"
)

// NotificationState holds the one-way notification latches for a single listing.
// Once a flag is true it stays true.
type NotificationState struct {
	NotifiedOpen    bool `json:"notifiedOpen"`
	NotifiedLastDay bool `json:"notifiedLastDay"`
}

// MarkOpen latches the open notification flag
func (s *NotificationState) MarkOpen() {
	s.NotifiedOpen = true
}

// MarkLastDay latches the last-day notification flag
func (s *NotificationState) MarkLastDay() {
	s.NotifiedLastDay = true
}

// Merge ORs another state into this one
func (s *NotificationState) Merge(other NotificationState) {
	s.NotifiedOpen = s.NotifiedOpen || other.NotifiedOpen
	s.NotifiedLastDay = s.NotifiedLastDay || other.NotifiedLastDay
}

// UnmarshalJSON accepts the current camelCase keys and the snake_case keys written by
// earlier versions of the bot. Unknown keys are ignored.
func (s *NotificationState) UnmarshalJSON(data []byte) error {
	var wire struct {
		NotifiedOpen          bool `json:"notifiedOpen"`
		NotifiedLastDay       bool `json:"notifiedLastDay"`
		LegacyNotifiedOpen    bool `json:"notified_open"`
		LegacyNotifiedLastDay bool `json:"notified_last_day"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*s = NotificationState{NotifiedOpen: wire.NotifiedOpen, NotifiedLastDay: wire.NotifiedLastDay}
	s.Merge(NotificationState{NotifiedOpen: wire.LegacyNotifiedOpen, NotifiedLastDay: wire.LegacyNotifiedLastDay})
	return nil
}

// NotificationStore maps company name to its notification state
type NotificationStore map[string]*NotificationState

// NewNotificationStore returns an empty store
func NewNotificationStore() NotificationStore {
	return make(NotificationStore)
}

// GetOrCreate returns the state for name, creating a {false, false} entry on first sighting
func (s NotificationStore) GetOrCreate(name string) *NotificationState {
	if state, exists := s[name]; exists && state != nil {
		return state
	}
	state := &NotificationState{}
	s[name] = state
	return state
}

// Lookup returns a copy of the state for name
func (s NotificationStore) Lookup(name string) (NotificationState, bool) {
	state, exists := s[name]
	if !exists || state == nil {
		return NotificationState{}, false
	}
	return *state, true
}

// Names returns the company names in the store in sorted order
func (s NotificationStore) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
