package jobs

import (
	"context"
	"errors"
	"sync"

	"github.com/fenilmodi00/ipo-alert-bot/database"
	"github.com/fenilmodi00/ipo-alert-bot/services"
	"github.com/fenilmodi00/ipo-alert-bot/shared"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrRunInProgress is returned when Run is called while another run is still executing
var ErrRunInProgress = errors.New("an IPO alert run is already in progress")

// IPOAlertJob performs one load-fetch-evaluate-save pass over the current IPO listings
type IPOAlertJob struct {
	Source services.ListingSource
	Store  database.StateStore
	Engine *services.EvaluationEngine

	mutex       sync.Mutex
	running     bool
	lastSummary *shared.RunSummary
}

func NewIPOAlertJob(source services.ListingSource, store database.StateStore, engine *services.EvaluationEngine) *IPOAlertJob {
	return &IPOAlertJob{
		Source: source,
		Store:  store,
		Engine: engine,
	}
}

// Run executes a single pass. The returned error is non-nil only when the run could not start
// or the notification store could not be saved; fetch and delivery failures are logged and counted.
func (j *IPOAlertJob) Run(ctx context.Context) (shared.RunSummary, error) {
	if !j.begin() {
		return shared.RunSummary{}, ErrRunInProgress
	}
	defer j.end()

	runID := uuid.New().String()
	metrics := shared.NewRunMetrics(runID)
	logger := logrus.WithFields(logrus.Fields{
		"component": "IPOAlertJob",
		"run_id":    runID,
		"source":    j.Source.Name(),
		"store":     j.Store.Name(),
	})
	logger.Info("Starting IPO alert run")

	loaded := j.Store.Load(ctx)
	store := loaded.Store
	if loaded.Err != nil && !shared.HasCode(loaded.Err, shared.CodeNotFound) {
		metrics.RecordStoreLoad(true)
		logger.WithFields(loaded.Err.Fields()).Warn("Notification store recovered as empty")
	}
	logger.WithField("entry_count", len(store)).Debug("Notification store loaded")

	fetched := j.Source.FetchListings(ctx)
	metrics.RecordFetch(fetched)
	if fetched.Failed() {
		logger.WithFields(fetched.Err.Fields()).Warn("Listing fetch failed, evaluating no listings")
	} else {
		logger.WithField("listing_count", len(fetched.Listings)).Info("Fetched listings")
	}

	j.Engine.Evaluate(ctx, store, fetched.Listings, metrics)

	saveErr := j.Store.Save(ctx, store)
	metrics.RecordStoreSave(saveErr != nil)
	if saveErr != nil {
		logger.WithError(saveErr).Error("Failed to save notification store")
	}

	metrics.Finish()
	metrics.LogSummary()

	summary := metrics.GetSnapshot()
	j.mutex.Lock()
	j.lastSummary = &summary
	j.mutex.Unlock()

	if saveErr != nil {
		return summary, saveErr
	}
	logger.Info("IPO alert run completed")
	return summary, nil
}

// LastSummary returns the summary of the most recent completed run
func (j *IPOAlertJob) LastSummary() (shared.RunSummary, bool) {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	if j.lastSummary == nil {
		return shared.RunSummary{}, false
	}
	return *j.lastSummary, true
}

// IsRunning reports whether a run is executing
func (j *IPOAlertJob) IsRunning() bool {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	return j.running
}

func (j *IPOAlertJob) begin() bool {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	if j.running {
		return false
	}
	j.running = true
	return true
}

func (j *IPOAlertJob) end() {
	j.mutex.Lock()
	j.running = false
	j.mutex.Unlock()
}
