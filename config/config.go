package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/fenilmodi00/ipo-alert-bot/shared"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Listing source names accepted by LISTING_SOURCE
const (
	ListingSourceNSE         = "nse"
	ListingSourceNSEBrowser  = "nse-browser"
	ListingSourceChittorgarh = "chittorgarh"
)

// State backends accepted by STATE_BACKEND
const (
	StateBackendFile     = "file"
	StateBackendPostgres = "postgres"
)

const (
	DefaultMinIssueSize     = "500"
	DefaultStatusFile       = "ipo_status.json"
	DefaultNSEBaseURL       = "https://www.nseindia.com"
	DefaultChittorgarhURL   = "https://www.chittorgarh.com/report/ipo-in-india-list-main-board-sme/82/mainboard/"
	DefaultTelegramAPIURL   = "https://api.telegram.org"
	DefaultHTTPTimeout      = 20 * time.Second
	DefaultHandshakeDelay   = 500 * time.Millisecond
	DefaultRunTimezone      = "Local"
	DefaultServerPort       = "8080"
	defaultHTTPTimeoutSecs  = "20"
	defaultHandshakeDelayMs = "500"
)

type Config struct {
	BotToken       string
	ChatID         string
	MinIssueSize   decimal.Decimal
	StatusFile     string
	StateBackend   string
	DatabaseURL    string
	ListingSource  string
	NSEBaseURL     string
	ChittorgarhURL string
	TelegramAPIURL string
	HTTPTimeout    time.Duration
	HandshakeDelay time.Duration
	RunLocation    *time.Location
	LogLevel       string
	LogFormat      string
	ServerPort     string
	AdminToken     string

	// problems collects values that could not be parsed; Validate reports them
	problems []string
}

// LoadConfig reads configuration from the environment, loading a .env file first when present
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file loaded, using system environment variables")
	}

	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an environment lookup function
func FromLookup(lookup func(string) (string, bool)) *Config {
	getEnv := func(key, fallback string) string {
		if value, exists := lookup(key); exists && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
		return fallback
	}

	cfg := &Config{
		BotToken:       getEnv("BOT_TOKEN", ""),
		ChatID:         getEnv("CHAT_ID", ""),
		StatusFile:     getEnv("STATUS_FILE", DefaultStatusFile),
		StateBackend:   strings.ToLower(getEnv("STATE_BACKEND", StateBackendFile)),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		ListingSource:  strings.ToLower(getEnv("LISTING_SOURCE", ListingSourceNSE)),
		NSEBaseURL:     strings.TrimRight(getEnv("NSE_BASE_URL", DefaultNSEBaseURL), "/"),
		ChittorgarhURL: getEnv("CHITTORGARH_URL", DefaultChittorgarhURL),
		TelegramAPIURL: strings.TrimRight(getEnv("TELEGRAM_API_URL", DefaultTelegramAPIURL), "/"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "text")),
		ServerPort:     getEnv("SERVER_PORT", DefaultServerPort),
		AdminToken:     getEnv("ADMIN_TOKEN", ""),
	}

	minIssueSize := getEnv("MIN_ISSUE_SIZE", DefaultMinIssueSize)
	threshold, err := decimal.NewFromString(minIssueSize)
	if err != nil {
		cfg.problems = append(cfg.problems, fmt.Sprintf("MIN_ISSUE_SIZE %q is not a number", minIssueSize))
		threshold = decimal.RequireFromString(DefaultMinIssueSize)
	}
	cfg.MinIssueSize = threshold

	timeoutSecs := getEnv("HTTP_TIMEOUT_SECONDS", defaultHTTPTimeoutSecs)
	if seconds, err := strconv.Atoi(timeoutSecs); err == nil && seconds > 0 {
		cfg.HTTPTimeout = time.Duration(seconds) * time.Second
	} else {
		logrus.Warnf("Invalid HTTP_TIMEOUT_SECONDS value: %s, using default %v", timeoutSecs, DefaultHTTPTimeout)
		cfg.HTTPTimeout = DefaultHTTPTimeout
	}

	delayMs := getEnv("HANDSHAKE_DELAY_MS", defaultHandshakeDelayMs)
	if millis, err := strconv.Atoi(delayMs); err == nil && millis >= 0 {
		cfg.HandshakeDelay = time.Duration(millis) * time.Millisecond
	} else {
		logrus.Warnf("Invalid HANDSHAKE_DELAY_MS value: %s, using default %v", delayMs, DefaultHandshakeDelay)
		cfg.HandshakeDelay = DefaultHandshakeDelay
	}

	timezone := getEnv("RUN_TIMEZONE", DefaultRunTimezone)
	location, err := time.LoadLocation(timezone)
	if err != nil {
		cfg.problems = append(cfg.problems, fmt.Sprintf("RUN_TIMEZONE %q is not a known location", timezone))
		location = time.Local
	}
	cfg.RunLocation = location

	return cfg
}

// Validate checks required settings. It must pass before any network activity.
func (c *Config) Validate() error {
	fail := func(code, message string) error {
		return shared.NewServiceError(shared.ErrorCategoryConfiguration, code, message, "Config", "Validate", false, nil)
	}

	if c.BotToken == "" {
		return fail(shared.CodeMissingSetting, "BOT_TOKEN is required")
	}
	if c.ChatID == "" {
		return fail(shared.CodeMissingSetting, "CHAT_ID is required")
	}
	if len(c.problems) > 0 {
		return fail(shared.CodeInvalidSetting, strings.Join(c.problems, "; "))
	}
	if c.MinIssueSize.IsNegative() {
		return fail(shared.CodeInvalidSetting, "MIN_ISSUE_SIZE must not be negative")
	}

	switch c.ListingSource {
	case ListingSourceNSE, ListingSourceNSEBrowser, ListingSourceChittorgarh:
	default:
		return fail(shared.CodeInvalidSetting, fmt.Sprintf("LISTING_SOURCE %q is not one of nse, nse-browser, chittorgarh", c.ListingSource))
	}

	switch c.StateBackend {
	case StateBackendFile:
		if c.StatusFile == "" {
			return fail(shared.CodeMissingSetting, "STATUS_FILE is required for the file backend")
		}
	case StateBackendPostgres:
		if c.DatabaseURL == "" {
			return fail(shared.CodeMissingSetting, "DATABASE_URL is required for the postgres backend")
		}
	default:
		return fail(shared.CodeInvalidSetting, fmt.Sprintf("STATE_BACKEND %q is not one of file, postgres", c.StateBackend))
	}

	return nil
}

// ConfigureLogging applies LOG_LEVEL and LOG_FORMAT to the global logrus logger
func ConfigureLogging(c *Config) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logrus.Warnf("Invalid LOG_LEVEL value: %s, using info", c.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if c.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
