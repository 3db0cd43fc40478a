/**
 * @description
 * Station API Handlers.
 * Exposes proximity search and station detail reads, with a short-lived
 * cache-aside layer over search responses.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 * - backend/internal/cache
 */

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fuelwatch-project/backend/internal/cache"
	"github.com/fuelwatch-project/backend/internal/logger"
	"github.com/fuelwatch-project/backend/internal/models"
	"github.com/fuelwatch-project/backend/internal/postcodes"
	"github.com/fuelwatch-project/backend/internal/services"
	"github.com/fuelwatch-project/backend/internal/store"
	"github.com/gofiber/fiber/v2"
)

const (
	searchCacheTTL     = 60 * time.Second
	defaultRadiusMiles = 5
)

// StationHandler handles station read requests
type StationHandler struct {
	search *services.SearchService
	cache  cache.Cache
}

// NewStationHandler creates a new StationHandler
func NewStationHandler(search *services.SearchService, c cache.Cache) *StationHandler {
	return &StationHandler{
		search: search,
		cache:  c,
	}
}

// SearchStations ranks stations near a postcode or explicit coordinates.
// GET /api/v1/stations/search?postcode=SW1A1AA&radius=5&fuel=petrol
// GET /api/v1/stations/search?lat=51.5&lng=-0.12&radius=5&fuel=diesel
func (h *StationHandler) SearchStations(c *fiber.Ctx) error {
	fuelType := c.Query("fuel", models.FuelPetrol)
	radius, err := strconv.ParseFloat(c.Query("radius", strconv.Itoa(defaultRadiusMiles)), 64)
	if err != nil || radius <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid radius"})
	}

	postcode := c.Query("postcode")
	latStr, lngStr := c.Query("lat"), c.Query("lng")

	var cacheKey string
	var results []services.SearchResult

	switch {
	case postcode != "":
		cacheKey = fmt.Sprintf("search:%s:%.1f:%s", postcodes.Normalize(postcode), radius, fuelType)
		if cached := h.readCached(c, cacheKey); cached != nil {
			return c.JSON(fiber.Map{"results": cached, "cached": true})
		}
		results, err = h.search.SearchByPostcode(c.Context(), postcode, radius, fuelType)
	case latStr != "" && lngStr != "":
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lng, lngErr := strconv.ParseFloat(lngStr, 64)
		if latErr != nil || lngErr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid coordinates"})
		}
		cacheKey = fmt.Sprintf("search:%.4f:%.4f:%.1f:%s", lat, lng, radius, fuelType)
		if cached := h.readCached(c, cacheKey); cached != nil {
			return c.JSON(fiber.Map{"results": cached, "cached": true})
		}
		results, err = h.search.SearchByCoordinates(c.Context(), lat, lng, radius, fuelType)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Either postcode or lat/lng is required",
		})
	}

	if err != nil {
		if errors.Is(err, postcodes.ErrPostcodeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Postcode not found"})
		}
		logger.Error("StationHandler: search failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Search failed"})
	}

	if data, marshalErr := json.Marshal(results); marshalErr == nil {
		if cacheErr := h.cache.Set(c.Context(), cacheKey, string(data), searchCacheTTL); cacheErr != nil {
			logger.Error("StationHandler: failed to cache search results: %v", cacheErr)
		}
	}

	return c.JSON(fiber.Map{"results": results, "cached": false})
}

// GetStationDetail returns the full station view.
// GET /api/v1/stations/:id
func (h *StationHandler) GetStationDetail(c *fiber.Ctx) error {
	stationID := c.Params("id")

	detail, err := h.search.GetStationDetail(c.Context(), stationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Station not found"})
		}
		logger.Error("StationHandler: detail lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Lookup failed"})
	}

	return c.JSON(detail)
}

func (h *StationHandler) readCached(c *fiber.Ctx, key string) []services.SearchResult {
	val, ok, err := h.cache.Get(c.Context(), key)
	if err != nil || !ok {
		return nil
	}
	var results []services.SearchResult
	if err := json.Unmarshal([]byte(val), &results); err != nil {
		return nil
	}
	return results
}
