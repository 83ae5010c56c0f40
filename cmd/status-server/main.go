package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fenilmodi00/ipo-alert-bot/config"
	"github.com/fenilmodi00/ipo-alert-bot/handlers"
	"github.com/fenilmodi00/ipo-alert-bot/jobs"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.LoadConfig()
	config.ConfigureLogging(cfg)

	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	job, closeJob, err := jobs.NewIPOAlertJobFromConfig(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize IPO alert job")
	}
	defer closeJob()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(logger.New())
	app.Use(cors.New())

	handlers.RegisterRoutes(app, job.Store, job, cfg.AdminToken)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("Status server shutdown was not clean")
		}
	}()

	logrus.WithFields(logrus.Fields{
		"port":          cfg.ServerPort,
		"admin_enabled": cfg.AdminToken != "",
	}).Info("Status server starting")
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logrus.WithError(err).Fatal("Status server failed to start")
	}
}
