package handlers

import (
	"time"

	"github.com/fenilmodi00/ipo-alert-bot/database"
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the status API on app
func RegisterRoutes(app *fiber.App, store database.StateStore, runner AlertRunner, adminToken string) {
	notificationHandler := NewNotificationHandler(store)
	metricsHandler := NewMetricsHandler(runner)
	adminHandler := NewAdminHandler(runner, adminToken)

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := store.Ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":    "degraded",
				"store":     store.Name(),
				"timestamp": time.Now().Unix(),
			})
		}
		return c.JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	api := app.Group("/api/v1")

	api.Get("/notifications", notificationHandler.GetNotifications)
	api.Get("/notifications/:name", notificationHandler.GetNotificationByName)
	api.Get("/metrics", metricsHandler.GetRunMetrics)

	admin := api.Group("/admin", adminHandler.RequireAdminToken)
	admin.Post("/run", adminHandler.TriggerRun)
}
