package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fenilmodi00/ipo-alert-bot/config"
	"github.com/fenilmodi00/ipo-alert-bot/jobs"
	"github.com/sirupsen/logrus"
)

// runTimeout bounds a whole run, including every notification attempt
const runTimeout = 15 * time.Minute

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.LoadConfig()
	config.ConfigureLogging(cfg)

	// No network activity happens before the credentials are known to be present
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Error("Invalid configuration")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	job, closeJob, err := jobs.NewIPOAlertJobFromConfig(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Error("Failed to initialize IPO alert job")
		return 1
	}
	defer closeJob()

	if _, err := job.Run(ctx); err != nil {
		logrus.WithError(err).Error("IPO alert run failed")
		return 1
	}
	return 0
}
