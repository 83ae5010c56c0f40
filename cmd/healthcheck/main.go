package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fenilmodi00/ipo-alert-bot/config"
	"github.com/fenilmodi00/ipo-alert-bot/database"
	"github.com/fenilmodi00/ipo-alert-bot/jobs"
	"github.com/fenilmodi00/ipo-alert-bot/services"
	"github.com/fenilmodi00/ipo-alert-bot/shared"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.LoadConfig()
	config.ConfigureLogging(cfg)
	logrus.SetLevel(logrus.WarnLevel)

	fmt.Printf("🏥 IPO Alert Bot Health Check - %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Println(strings.Repeat("=", 50))

	if err := cfg.Validate(); err != nil {
		fmt.Printf("❌ CONFIGURATION INVALID (%v)\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	healthScore := 0
	totalTests := 3

	// Test 1: listing source
	source := services.NewListingSource(cfg, jobs.RunClock(cfg))
	fmt.Printf("📡 Listing source (%s): ", source.Name())
	if result := source.FetchListings(ctx); result.Failed() {
		fmt.Printf("❌ FAILED (%v)\n", result.Err)
	} else {
		fmt.Printf("✅ OK (%d listings)\n", len(result.Listings))
		healthScore++
	}

	// Test 2: bot credentials
	fmt.Print("🤖 Telegram bot: ")
	clientFactory := shared.NewHTTPClientFactory(cfg.HTTPTimeout)
	defer clientFactory.CleanupAllClients()
	notifier := services.NewTelegramNotifier(cfg.TelegramAPIURL, cfg.BotToken, cfg.ChatID, clientFactory, cfg.HTTPTimeout)
	if username, err := notifier.GetMe(ctx); err != nil {
		fmt.Printf("❌ FAILED (%v)\n", err)
	} else {
		fmt.Printf("✅ OK (@%s)\n", username)
		healthScore++
	}

	// Test 3: notification store
	fmt.Printf("🗄️  State store (%s): ", cfg.StateBackend)
	if store, closeStore, err := database.OpenStateStore(ctx, cfg); err != nil {
		fmt.Printf("❌ FAILED (%v)\n", err)
	} else {
		if err := store.Ping(ctx); err != nil {
			fmt.Printf("❌ FAILED (%v)\n", err)
		} else if loaded := store.Load(ctx); loaded.Err != nil && !shared.HasCode(loaded.Err, shared.CodeNotFound) {
			fmt.Printf("❌ FAILED (%v)\n", loaded.Err)
		} else {
			fmt.Printf("✅ OK (%d entries)\n", len(loaded.Store))
			healthScore++
		}
		closeStore()
	}

	fmt.Println(strings.Repeat("-", 50))
	healthPercent := float64(healthScore) / float64(totalTests) * 100

	switch {
	case healthScore == totalTests:
		fmt.Printf("🎉 SYSTEM HEALTHY: %d/%d checks passed (%.0f%%)\n", healthScore, totalTests, healthPercent)
	case healthScore >= 2:
		fmt.Printf("⚠️  SYSTEM DEGRADED: %d/%d checks passed (%.0f%%)\n", healthScore, totalTests, healthPercent)
	default:
		fmt.Printf("❌ SYSTEM UNHEALTHY: %d/%d checks passed (%.0f%%)\n", healthScore, totalTests, healthPercent)
	}

	fmt.Printf("⏰ Check completed at: %s\n", time.Now().Format("15:04:05"))
	if healthScore != totalTests {
		os.Exit(1)
	}
}
