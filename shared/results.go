package shared

import "github.com/fenilmodi00/ipo-alert-bot/models"

// FetchResult is the outcome of a listing source fetch.
// Err is set when the fetch failed; Listings is then empty.
type FetchResult struct {
	Source   string
	Listings []models.RawListing
	Err      *ServiceError
}

// Failed reports whether the fetch failed
func (r FetchResult) Failed() bool {
	return r.Err != nil
}

// FetchFailure builds an empty FetchResult tagged with err
func FetchFailure(source string, err *ServiceError) FetchResult {
	return FetchResult{Source: source, Listings: []models.RawListing{}, Err: err}
}

// DeliveryResult is the outcome of a single notification delivery attempt
type DeliveryResult struct {
	Delivered bool
	Err       *ServiceError
}

// DeliveryFailure builds an undelivered DeliveryResult tagged with err
func DeliveryFailure(err *ServiceError) DeliveryResult {
	return DeliveryResult{Delivered: false, Err: err}
}

// LoadResult is the outcome of loading the notification store.
// Store is never nil; Err explains why an empty store was substituted.
type LoadResult struct {
	Store models.NotificationStore
	Err   *ServiceError
}
