package jobs

import (
	"context"
	"time"

	"github.com/fenilmodi00/ipo-alert-bot/config"
	"github.com/fenilmodi00/ipo-alert-bot/database"
	"github.com/fenilmodi00/ipo-alert-bot/services"
	"github.com/fenilmodi00/ipo-alert-bot/shared"
	"github.com/sirupsen/logrus"
)

// RunClock returns the clock that supplies the run date in the configured timezone
func RunClock(cfg *config.Config) func() time.Time {
	location := runLocation(cfg)
	return func() time.Time {
		return time.Now().In(location)
	}
}

// NewIPOAlertJobFromConfig wires the listing source, notifier, evaluation engine and state store
// selected by cfg. The returned close function releases the store and HTTP clients.
func NewIPOAlertJobFromConfig(ctx context.Context, cfg *config.Config) (*IPOAlertJob, func(), error) {
	clock := RunClock(cfg)

	store, closeStore, err := database.OpenStateStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	clientFactory := shared.NewHTTPClientFactory(cfg.HTTPTimeout)
	notifier := services.NewTelegramNotifier(cfg.TelegramAPIURL, cfg.BotToken, cfg.ChatID, clientFactory, cfg.HTTPTimeout)
	source := services.NewListingSource(cfg, clock)
	engine := services.NewEvaluationEngine(notifier, cfg.MinIssueSize, clock)

	logrus.WithFields(logrus.Fields{
		"component":      "IPOAlertJob",
		"listing_source": source.Name(),
		"state_backend":  store.Name(),
		"min_issue_size": cfg.MinIssueSize.String(),
		"http_timeout":   cfg.HTTPTimeout,
		"run_timezone":   runLocation(cfg).String(),
	}).Info("IPO alert job initialized")

	closeAll := func() {
		closeStore()
		clientFactory.CleanupAllClients()
	}
	return NewIPOAlertJob(source, store, engine), closeAll, nil
}

func runLocation(cfg *config.Config) *time.Location {
	if cfg.RunLocation == nil {
		return time.Local
	}
	return cfg.RunLocation
}
