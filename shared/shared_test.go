package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestRateLimiterFirstRequestIsImmediate(t *testing.T) {
	limiter := NewHTTPRequestRateLimiter(time.Hour)

	start := time.Now()
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("first request must not be delayed")
	}
	if limiter.GetRequestCount() != 1 {
		t.Errorf("expected request count 1, got %d", limiter.GetRequestCount())
	}
}

func TestRateLimiterHonoursCancellation(t *testing.T) {
	limiter := NewHTTPRequestRateLimiter(time.Hour)
	limiter.Wait(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestRateLimiterSpacesRequests(t *testing.T) {
	limiter := NewHTTPRequestRateLimiter(50 * time.Millisecond)
	limiter.Wait(context.Background())

	start := time.Now()
	limiter.Wait(context.Background())
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("expected second request to wait, waited %v", elapsed)
	}
}

func TestServiceErrorHelpers(t *testing.T) {
	cause := errors.New("connection reset")
	serviceErr := NewServiceError(ErrorCategoryNetwork, CodeRequestFailed, "request failed", "NSEListingSource", "FetchListings", true, cause)
	wrapped := fmt.Errorf("run failed: %w", serviceErr)

	if !HasCode(wrapped, CodeRequestFailed) {
		t.Error("expected HasCode to see through wrapping")
	}
	if !serviceErr.Retryable {
		t.Error("expected retryable error")
	}
	if !errors.Is(serviceErr, cause) {
		t.Error("expected cause to be unwrappable")
	}
	if WrapError(wrapped, ErrorCategoryProcessing, CodeRecordFailed, "x", "y", false) != serviceErr {
		t.Error("WrapError must return an existing ServiceError unchanged")
	}
	if WrapError(nil, ErrorCategoryProcessing, CodeRecordFailed, "x", "y", false) != nil {
		t.Error("WrapError(nil) must be nil")
	}
}

func TestRunMetricsNilSafe(t *testing.T) {
	var metrics *RunMetrics
	metrics.RecordEvaluated()
	metrics.RecordOpenNotification(false)

	live := NewRunMetrics("run-1")
	live.RecordFetch(FetchFailure("nse", NewServiceError(ErrorCategoryNetwork, CodeHTTPStatus, "HTTP 503", "nse", "FetchListings", true, nil)))
	live.RecordOpenNotification(true)
	live.RecordLastDayNotification(false)
	live.Finish()

	snapshot := live.GetSnapshot()
	if !snapshot.FetchFailed || snapshot.Source != "nse" || snapshot.ListingsFetched != 0 {
		t.Errorf("unexpected fetch counters: %+v", snapshot)
	}
	if snapshot.OpenNotified != 1 || snapshot.LastDayNotified != 1 || snapshot.DeliveryFailures != 1 {
		t.Errorf("unexpected notification counters: %+v", snapshot)
	}
}
