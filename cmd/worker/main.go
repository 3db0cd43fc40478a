/**
 * @description
 * Worker Service Entry Point.
 * Responsible for the two scheduled pipelines:
 * 1. Station ingestion from the fuel pricing provider.
 * 2. Alert rule evaluation and notification dispatch.
 * Each runs synchronously to completion on its own ticker.
 *
 * @dependencies
 * - backend/internal/config
 * - backend/internal/db
 * - backend/internal/fuelapi
 * - backend/internal/services
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fuelwatch-project/backend/internal/cache"
	"github.com/fuelwatch-project/backend/internal/config"
	"github.com/fuelwatch-project/backend/internal/db"
	"github.com/fuelwatch-project/backend/internal/fuelapi"
	"github.com/fuelwatch-project/backend/internal/logger"
	"github.com/fuelwatch-project/backend/internal/postcodes"
	"github.com/fuelwatch-project/backend/internal/services"
	"github.com/fuelwatch-project/backend/internal/store"
)

func main() {
	logger.Info("🔥 Starting FuelWatch Worker...")

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	// 2. Connect DBs
	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		logger.Fatal("Postgres connection failed: %v", err)
	}
	if err := store.AutoMigrate(pgDB); err != nil {
		logger.Fatal("Database migration failed: %v", err)
	}

	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		logger.Fatal("Redis connection failed: %v", err)
	}

	// 3. Initialize Services
	dataStore := store.NewGormStore(pgDB)
	kv := cache.NewRedisCache(redisClient)

	tokens := fuelapi.NewTokenProvider(cfg, kv)
	fuelClient := fuelapi.NewClient(cfg, tokens)
	postcodeClient := postcodes.NewClient(cfg)

	geocodeService := services.NewGeocodeService(dataStore, postcodeClient)
	searchService := services.NewSearchService(dataStore, geocodeService)
	syncService := services.NewSyncService(dataStore, dataStore, fuelClient)
	notificationService := services.NewNotificationService(dataStore)
	alertService := services.NewAlertService(dataStore, dataStore, searchService, notificationService, cfg)

	// 4. Context with Cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Ingestion Loop
	go func() {
		ticker := time.NewTicker(cfg.Jobs.SyncInterval)
		defer ticker.Stop()

		runSync(ctx, syncService)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runSync(ctx, syncService)
			}
		}
	}()

	// 6. Alert Evaluation Loop
	go func() {
		ticker := time.NewTicker(cfg.Jobs.AlertInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runAlerts(ctx, alertService)
			}
		}
	}()

	// 7. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	cancel()

	time.Sleep(1 * time.Second) // Give in-flight runs time to notice cancellation
	logger.Info("Worker exited.")
}

func runSync(ctx context.Context, s *services.SyncService) {
	logger.Info("🔄 Running station sync...")
	result, err := s.RunSync(ctx)
	if err != nil {
		logger.Error("Station sync failed: %v", err)
		return
	}
	logger.Info("Station sync finished: %s (%d stations, %d price updates)",
		result.Status, result.StationsProcessed, result.PricesUpdated)
}

func runAlerts(ctx context.Context, s *services.AlertService) {
	logger.Info("🔔 Running alert evaluation...")
	summary, err := s.EvaluateAll(ctx)
	if err != nil {
		logger.Error("Alert evaluation failed: %v", err)
		return
	}
	logger.Info("Alert evaluation finished: %s (%d rules, %d triggered)",
		summary.Status, summary.RulesEvaluated, summary.Triggered)
}
