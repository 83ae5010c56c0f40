package services

import (
	"context"
	"fmt"
	"time"

	"github.com/fenilmodi00/ipo-alert-bot/models"
	"github.com/fenilmodi00/ipo-alert-bot/shared"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ListingSource fetches the current candidate listings from a provider
type ListingSource interface {
	Name() string
	FetchListings(ctx context.Context) shared.FetchResult
}

// Notifier delivers a text notification. Implementations never panic and never retry.
type Notifier interface {
	Deliver(ctx context.Context, text string) shared.DeliveryResult
}

// NotifierFunc is a function adapter for Notifier
type NotifierFunc func(ctx context.Context, text string) shared.DeliveryResult

// Deliver implements Notifier
func (f NotifierFunc) Deliver(ctx context.Context, text string) shared.DeliveryResult {
	return f(ctx, text)
}

// EvaluationEngine advances each listing's notification state machine and sends the
// notifications its transitions call for
type EvaluationEngine struct {
	notifier     Notifier
	utility      *UtilityService
	messages     *MessageBuilder
	minIssueSize decimal.Decimal
	now          func() time.Time
}

// NewEvaluationEngine creates an engine. now supplies the run date and defaults to time.Now.
func NewEvaluationEngine(notifier Notifier, minIssueSize decimal.Decimal, now func() time.Time) *EvaluationEngine {
	if now == nil {
		now = time.Now
	}
	utility := NewUtilityService()
	return &EvaluationEngine{
		notifier:     notifier,
		utility:      utility,
		messages:     NewMessageBuilder(utility),
		minIssueSize: minIssueSize,
		now:          now,
	}
}

// Evaluate processes every listing against store, mutating it in place.
// A failure in one listing is logged and never stops the others. Cancelling ctx stops the pass
// before the next listing or delivery; latches already advanced stay advanced.
func (e *EvaluationEngine) Evaluate(ctx context.Context, store models.NotificationStore, listings []models.RawListing, metrics *shared.RunMetrics) {
	runDate := e.now()

	logger := logrus.WithFields(logrus.Fields{
		"component":      "EvaluationEngine",
		"run_date":       e.utility.FormatRunDate(runDate),
		"listing_count":  len(listings),
		"min_issue_size": e.minIssueSize.String(),
	})
	logger.Debug("Evaluating listings")

	for index, raw := range listings {
		if ctx.Err() != nil {
			logger.WithFields(logrus.Fields{
				"listing_index": index,
				"remaining":     len(listings) - index,
			}).WithError(ctx.Err()).Warn("Evaluation interrupted, leaving remaining listings for the next run")
			return
		}
		if err := e.processListing(ctx, store, raw, runDate, metrics); err != nil {
			metrics.RecordRecordFailure()
			logger.WithFields(logrus.Fields{
				"listing_index": index,
				"company_name":  raw.CompanyName.String(),
			}).WithError(err).Error("Failed to evaluate listing, continuing with next")
		}
	}
}

// Normalize converts a raw listing into a ListingRecord. ok is false when the identity is empty.
func (e *EvaluationEngine) Normalize(raw models.RawListing) (models.ListingRecord, bool) {
	name := e.utility.ExtractCompanyName(raw.CompanyName.String())
	if name == "" {
		return models.ListingRecord{}, false
	}

	return models.ListingRecord{
		CompanyName:    name,
		IssueSize:      e.utility.ParseIssueSize(raw.IssueSize.String()),
		IssueStartDate: e.utility.NormalizeTextContent(raw.IssueStartDate.String()),
		IssueEndDate:   e.utility.NormalizeTextContent(raw.IssueEndDate.String()),
		Status:         e.utility.NormalizeStatus(raw.Status.String()),
	}, true
}

// Qualifies reports whether a record meets the issue size threshold
func (e *EvaluationEngine) Qualifies(record models.ListingRecord) bool {
	return !record.IssueSize.LessThan(e.minIssueSize)
}

func (e *EvaluationEngine) processListing(ctx context.Context, store models.NotificationStore, raw models.RawListing, runDate time.Time, metrics *shared.RunMetrics) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = shared.NewServiceError(shared.ErrorCategoryProcessing, shared.CodeRecordFailed,
				fmt.Sprintf("panic while evaluating listing: %v", recovered), "EvaluationEngine", "processListing", false, nil)
		}
	}()

	record, ok := e.Normalize(raw)
	if !ok {
		metrics.RecordSkippedNoName()
		return nil
	}

	logger := logrus.WithFields(logrus.Fields{
		"component":    "EvaluationEngine",
		"company_name": record.CompanyName,
		"issue_size":   record.IssueSize.String(),
		"status":       record.Status,
	})

	if !e.Qualifies(record) {
		metrics.RecordFilteredBySize()
		logger.Debug("Listing below issue size threshold, skipping")
		return nil
	}
	metrics.RecordEvaluated()

	state := store.GetOrCreate(record.Identity())

	if record.Status == models.ListingStatusOpen && !state.NotifiedOpen {
		if ctx.Err() != nil {
			return nil
		}
		delivered := e.deliver(ctx, e.messages.OpenMessage(record), logger)
		state.MarkOpen()
		metrics.RecordOpenNotification(delivered)
		logger.WithField("delivered", delivered).Info("Open notification sent")
	}

	if state.NotifiedOpen && !state.NotifiedLastDay && e.utility.IsSameCalendarDay(record.IssueEndDate, runDate) {
		if ctx.Err() != nil {
			return nil
		}
		delivered := e.deliver(ctx, e.messages.LastDayMessage(record), logger)
		state.MarkLastDay()
		metrics.RecordLastDayNotification(delivered)
		logger.WithField("delivered", delivered).Info("Last day notification sent")
	}

	return nil
}

// deliver makes the single best-effort delivery attempt. A panicking notifier counts as a failed delivery.
func (e *EvaluationEngine) deliver(ctx context.Context, text string, logger *logrus.Entry) (delivered bool) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.WithField("panic", recovered).Error("Notifier panicked during delivery")
			delivered = false
		}
	}()

	if e.notifier == nil {
		logger.Warn("No notifier configured, dropping notification")
		return false
	}

	result := e.notifier.Deliver(ctx, text)
	if result.Err != nil {
		logger.WithFields(result.Err.Fields()).Warn("Notification delivery failed")
	}
	return result.Delivered
}
