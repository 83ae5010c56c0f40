package handlers

import (
	"github.com/gofiber/fiber/v2"
)

type MetricsHandler struct {
	Runner AlertRunner
}

func NewMetricsHandler(runner AlertRunner) *MetricsHandler {
	return &MetricsHandler{Runner: runner}
}

// GetRunMetrics returns the summary of the most recent run
func (h *MetricsHandler) GetRunMetrics(c *fiber.Ctx) error {
	summary, ok := h.Runner.LastSummary()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "No run has completed yet",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    summary,
	})
}
