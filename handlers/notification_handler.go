package handlers

import (
	"net/url"

	"github.com/fenilmodi00/ipo-alert-bot/database"
	"github.com/fenilmodi00/ipo-alert-bot/models"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// NotificationEntry is the API view of one company's notification latches
type NotificationEntry struct {
	CompanyName     string `json:"company_name"`
	NotifiedOpen    bool   `json:"notified_open"`
	NotifiedLastDay bool   `json:"notified_last_day"`
}

type NotificationHandler struct {
	Store database.StateStore
}

func NewNotificationHandler(store database.StateStore) *NotificationHandler {
	return &NotificationHandler{Store: store}
}

// GetNotifications returns every entry of the persisted notification store, sorted by company name
func (h *NotificationHandler) GetNotifications(c *fiber.Ctx) error {
	loaded := h.Store.Load(c.UserContext())
	if loaded.Err != nil {
		logrus.WithFields(loaded.Err.Fields()).Debug("Notification store load reported an error")
	}

	entries := make([]NotificationEntry, 0, len(loaded.Store))
	for _, name := range loaded.Store.Names() {
		state, _ := loaded.Store.Lookup(name)
		entries = append(entries, toEntry(name, state))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    entries,
		"count":   len(entries),
		"store":   h.Store.Name(),
	})
}

// GetNotificationByName returns the latches of a single company
func (h *NotificationHandler) GetNotificationByName(c *fiber.Ctx) error {
	name, err := companyNameParam(c)
	if err != nil || name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid company name",
		})
	}

	loaded := h.Store.Load(c.UserContext())
	state, found := loaded.Store.Lookup(name)
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "No notification state for " + name,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    toEntry(name, state),
	})
}

// companyNameParam decodes the name segment exactly once. With UnescapePath set fiber has already decoded it.
func companyNameParam(c *fiber.Ctx) (string, error) {
	raw := c.Params("name")
	if c.App().Config().UnescapePath {
		return raw, nil
	}
	return url.PathUnescape(raw)
}

func toEntry(name string, state models.NotificationState) NotificationEntry {
	return NotificationEntry{
		CompanyName:     name,
		NotifiedOpen:    state.NotifiedOpen,
		NotifiedLastDay: state.NotifiedLastDay,
	}
}
