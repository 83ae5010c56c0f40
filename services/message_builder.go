package services

import (
	"fmt"
	"strings"

	"github.com/fenilmodi00/ipo-alert-bot/models"
)

const (
	OpenHeadline    = "📢 IPO OPEN"
	LastDayHeadline = "⚠️ LAST DAY TO APPLY"
)

// MessageBuilder renders notification text for listing transitions
type MessageBuilder struct {
	utility *UtilityService
}

// NewMessageBuilder creates a message builder
func NewMessageBuilder(utility *UtilityService) *MessageBuilder {
	return &MessageBuilder{utility: utility}
}

// OpenMessage renders the notification for a listing that has opened for subscription
func (b *MessageBuilder) OpenMessage(record models.ListingRecord) string {
	return b.render(OpenHeadline, record, "Interested? Reply YES/NO.")
}

// LastDayMessage renders the notification for a listing on its final subscription day
func (b *MessageBuilder) LastDayMessage(record models.ListingRecord) string {
	return b.render(LastDayHeadline, record, "Subscription info may be available on NSE site.")
}

func (b *MessageBuilder) render(headline string, record models.ListingRecord, footer string) string {
	var message strings.Builder
	message.WriteString(headline)
	message.WriteString("\n\n")
	fmt.Fprintf(&message, "Name: %s\n", record.CompanyName)
	fmt.Fprintf(&message, "Size: ₹%s Cr\n", b.utility.FormatIssueSize(record.IssueSize))
	fmt.Fprintf(&message, "Dates: %s → %s\n", displayDate(record.IssueStartDate), displayDate(record.IssueEndDate))
	message.WriteString(footer)
	return message.String()
}

func displayDate(date string) string {
	if date == "" {
		return "N/A"
	}
	return date
}
