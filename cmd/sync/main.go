package main

import (
	"context"
	"log"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/fuelwatch-project/backend/internal/cache"
	"github.com/fuelwatch-project/backend/internal/config"
	"github.com/fuelwatch-project/backend/internal/db"
	"github.com/fuelwatch-project/backend/internal/fuelapi"
	"github.com/fuelwatch-project/backend/internal/models"
	"github.com/fuelwatch-project/backend/internal/services"
	"github.com/fuelwatch-project/backend/internal/store"
	"github.com/redis/go-redis/v9"
)

func main() {
	log.Println("🚀 Starting manual station sync...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	if err := store.AutoMigrate(pgDB); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	mr, err := miniredis.Run()
	if err != nil {
		log.Fatalf("failed to start in-memory redis: %v", err)
	}
	defer mr.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	kv := cache.NewRedisCache(redisClient)

	dataStore := store.NewGormStore(pgDB)
	tokens := fuelapi.NewTokenProvider(cfg, kv)
	fuelClient := fuelapi.NewClient(cfg, tokens)
	service := services.NewSyncService(dataStore, dataStore, fuelClient)

	ctx := context.Background()

	result, err := service.RunSync(ctx)
	if err != nil {
		log.Fatalf("station sync failed: %v", err)
	}

	var stationCount int64
	if err := pgDB.Model(&models.Station{}).Count(&stationCount).Error; err == nil {
		log.Printf("✅ Stations stored in Postgres: %d", stationCount)
	} else {
		log.Printf("⚠️ Failed to count stations: %v", err)
	}

	log.Printf("✅ Manual station sync completed: %s (%d stations, %d price updates)",
		result.Status, result.StationsProcessed, result.PricesUpdated)
}
