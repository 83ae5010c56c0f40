package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/fenilmodi00/ipo-alert-bot/jobs"
	"github.com/fenilmodi00/ipo-alert-bot/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// AlertRunner runs the alert job and reports its last result
type AlertRunner interface {
	Run(ctx context.Context) (shared.RunSummary, error)
	LastSummary() (shared.RunSummary, bool)
}

type AdminHandler struct {
	Runner     AlertRunner
	AdminToken string
	RunTimeout time.Duration
}

func NewAdminHandler(runner AlertRunner, adminToken string) *AdminHandler {
	return &AdminHandler{
		Runner:     runner,
		AdminToken: adminToken,
		RunTimeout: 5 * time.Minute,
	}
}

// RequireAdminToken rejects requests without the configured bearer token.
// With no token configured every admin request is refused.
func (h *AdminHandler) RequireAdminToken(c *fiber.Ctx) error {
	if h.AdminToken == "" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"error":   "Admin endpoints are disabled",
		})
	}

	header := c.Get(fiber.HeaderAuthorization)
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || subtle.ConstantTimeCompare([]byte(token), []byte(h.AdminToken)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid or missing admin token",
		})
	}

	return c.Next()
}

// TriggerRun manually runs the alert job and returns its summary
func (h *AdminHandler) TriggerRun(c *fiber.Ctx) error {
	logrus.WithField("component", "AdminHandler").Info("Manual IPO alert run triggered via admin endpoint")

	ctx, cancel := context.WithTimeout(c.UserContext(), h.RunTimeout)
	defer cancel()

	summary, err := h.Runner.Run(ctx)
	if errors.Is(err, jobs.ErrRunInProgress) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
			"data":    summary,
		})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "IPO alert run completed",
		"data":      summary,
		"timestamp": time.Now(),
	})
}
