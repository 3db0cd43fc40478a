/**
 * @description
 * API Route definitions.
 * Sets up the router groups, wires services to their handlers.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/api/handlers
 * - backend/internal/services
 * - backend/internal/fuelapi
 * - backend/internal/postcodes
 */

package api

import (
	"github.com/fuelwatch-project/backend/internal/api/handlers"
	"github.com/fuelwatch-project/backend/internal/cache"
	"github.com/fuelwatch-project/backend/internal/config"
	"github.com/fuelwatch-project/backend/internal/fuelapi"
	"github.com/fuelwatch-project/backend/internal/postcodes"
	"github.com/fuelwatch-project/backend/internal/services"
	"github.com/fuelwatch-project/backend/internal/store"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, db *gorm.DB, rdb *redis.Client, cfg *config.Config) {
	// 1. Initialize Stores and Caches
	dataStore := store.NewGormStore(db)
	kv := cache.NewRedisCache(rdb)

	// 2. Initialize Clients and Services
	tokens := fuelapi.NewTokenProvider(cfg, kv)
	fuelClient := fuelapi.NewClient(cfg, tokens)
	postcodeClient := postcodes.NewClient(cfg)

	geocodeService := services.NewGeocodeService(dataStore, postcodeClient)
	searchService := services.NewSearchService(dataStore, geocodeService)
	syncService := services.NewSyncService(dataStore, dataStore, fuelClient)
	notificationService := services.NewNotificationService(dataStore)
	alertService := services.NewAlertService(dataStore, dataStore, searchService, notificationService, cfg)

	// 3. Initialize Handlers
	stationHandler := handlers.NewStationHandler(searchService, kv)
	jobsHandler := handlers.NewJobsHandler(syncService, alertService, cfg.Jobs.TriggerSecret)

	// 4. Define Routes
	api := app.Group("/api")
	v1 := api.Group("/v1")

	v1.Get("/health", func(c *fiber.Ctx) error {
		dbStatus := "ok"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Context()) != nil {
			dbStatus = "down"
		}
		redisStatus := "ok"
		if err := rdb.Ping(c.Context()).Err(); err != nil {
			redisStatus = "down"
		}
		status, overall := fiber.StatusOK, "ok"
		if dbStatus != "ok" || redisStatus != "ok" {
			status, overall = fiber.StatusServiceUnavailable, "degraded"
		}
		return c.Status(status).JSON(fiber.Map{
			"status": overall,
			"db":     dbStatus,
			"redis":  redisStatus,
		})
	})

	// Station Routes (Public)
	stations := v1.Group("/stations")
	stations.Get("/search", stationHandler.SearchStations)
	stations.Get("/:id", stationHandler.GetStationDetail)

	// Internal job triggers (shared-secret guarded)
	jobs := v1.Group("/internal/jobs")
	jobs.Post("/sync", jobsHandler.RunSync)
	jobs.Post("/alerts", jobsHandler.RunAlerts)
}
