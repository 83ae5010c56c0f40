package services

import (
	"time"

	"github.com/fenilmodi00/ipo-alert-bot/config"
)

// NewListingSource builds the listing source selected by LISTING_SOURCE
func NewListingSource(cfg *config.Config, now func() time.Time) ListingSource {
	switch cfg.ListingSource {
	case config.ListingSourceNSEBrowser:
		return NewNSEBrowserListingSource(cfg.NSEBaseURL, cfg.HTTPTimeout)
	case config.ListingSourceChittorgarh:
		return NewChittorgarhListingSource(cfg.ChittorgarhURL, cfg.HTTPTimeout, now)
	default:
		return NewNSEListingSource(cfg.NSEBaseURL, cfg.HTTPTimeout, cfg.HandshakeDelay)
	}
}
