package shared

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RunSummary is a point-in-time copy of a run's counters
type RunSummary struct {
	RunID              string        `json:"run_id"`
	Source             string        `json:"source"`
	StartedAt          time.Time     `json:"started_at"`
	Duration           time.Duration `json:"duration"`
	ListingsFetched    int64         `json:"listings_fetched"`
	SkippedNoName      int64         `json:"skipped_no_name"`
	FilteredBySize     int64         `json:"filtered_by_size"`
	Evaluated          int64         `json:"evaluated"`
	OpenNotified       int64         `json:"open_notified"`
	LastDayNotified    int64         `json:"last_day_notified"`
	DeliveryFailures   int64         `json:"delivery_failures"`
	RecordFailures     int64         `json:"record_failures"`
	FetchFailed        bool          `json:"fetch_failed"`
	StoreLoadRecovered bool          `json:"store_load_recovered"`
	StoreSaveFailed    bool          `json:"store_save_failed"`
}

// RunMetrics counts what happened during one fetch-evaluate-persist run
type RunMetrics struct {
	summary RunSummary
	mutex   sync.RWMutex
}

// NewRunMetrics creates a new metrics tracker for a run
func NewRunMetrics(runID string) *RunMetrics {
	return &RunMetrics{
		summary: RunSummary{
			RunID:     runID,
			StartedAt: time.Now(),
		},
	}
}

func (m *RunMetrics) update(fn func()) {
	if m == nil {
		return
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	fn()
}

// RecordFetch records the outcome of the listing fetch
func (m *RunMetrics) RecordFetch(result FetchResult) {
	m.update(func() {
		m.summary.Source = result.Source
		m.summary.ListingsFetched = int64(len(result.Listings))
		m.summary.FetchFailed = result.Failed()
	})
}

// RecordSkippedNoName counts a record dropped for an empty company name
func (m *RunMetrics) RecordSkippedNoName() {
	m.update(func() { m.summary.SkippedNoName++ })
}

// RecordFilteredBySize counts a record below the issue size threshold
func (m *RunMetrics) RecordFilteredBySize() {
	m.update(func() { m.summary.FilteredBySize++ })
}

// RecordEvaluated counts a record that reached the state machine
func (m *RunMetrics) RecordEvaluated() {
	m.update(func() { m.summary.Evaluated++ })
}

// RecordOpenNotification counts an open notification attempt
func (m *RunMetrics) RecordOpenNotification(delivered bool) {
	m.update(func() {
		m.summary.OpenNotified++
		if !delivered {
			m.summary.DeliveryFailures++
		}
	})
}

// RecordLastDayNotification counts a last-day notification attempt
func (m *RunMetrics) RecordLastDayNotification(delivered bool) {
	m.update(func() {
		m.summary.LastDayNotified++
		if !delivered {
			m.summary.DeliveryFailures++
		}
	})
}

// RecordRecordFailure counts a record whose processing failed unexpectedly
func (m *RunMetrics) RecordRecordFailure() {
	m.update(func() { m.summary.RecordFailures++ })
}

// RecordStoreLoad records whether the store load fell back to an empty store
func (m *RunMetrics) RecordStoreLoad(recovered bool) {
	m.update(func() { m.summary.StoreLoadRecovered = recovered })
}

// RecordStoreSave records whether the store save failed
func (m *RunMetrics) RecordStoreSave(failed bool) {
	m.update(func() { m.summary.StoreSaveFailed = failed })
}

// Finish stamps the run duration
func (m *RunMetrics) Finish() {
	m.update(func() { m.summary.Duration = time.Since(m.summary.StartedAt) })
}

// GetSnapshot returns a copy of the current counters
func (m *RunMetrics) GetSnapshot() RunSummary {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.summary
}

// LogSummary logs the run summary
func (m *RunMetrics) LogSummary() {
	snapshot := m.GetSnapshot()

	logrus.WithFields(logrus.Fields{
		"run_id":               snapshot.RunID,
		"source":               snapshot.Source,
		"duration":             snapshot.Duration,
		"listings_fetched":     snapshot.ListingsFetched,
		"skipped_no_name":      snapshot.SkippedNoName,
		"filtered_by_size":     snapshot.FilteredBySize,
		"evaluated":            snapshot.Evaluated,
		"open_notified":        snapshot.OpenNotified,
		"last_day_notified":    snapshot.LastDayNotified,
		"delivery_failures":    snapshot.DeliveryFailures,
		"record_failures":      snapshot.RecordFailures,
		"fetch_failed":         snapshot.FetchFailed,
		"store_load_recovered": snapshot.StoreLoadRecovered,
		"store_save_failed":    snapshot.StoreSaveFailed,
	}).Info("IPO alert run summary")
}
