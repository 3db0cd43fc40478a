/**
 * @description
 * Geocode Service: resolves raw postcodes to coordinates through the durable
 * geocode cache. Hits refresh the entry's last-access marker; misses call the
 * geocoding API and persist the result. Entries never go stale, postcodes do
 * not move.
 *
 * @dependencies
 * - backend/internal/postcodes
 * - backend/internal/store
 */

package services

import (
	"context"
	"errors"
	"time"

	"github.com/fuelwatch-project/backend/internal/logger"
	"github.com/fuelwatch-project/backend/internal/models"
	"github.com/fuelwatch-project/backend/internal/postcodes"
	"github.com/fuelwatch-project/backend/internal/store"
)

// PostcodeLookup is the upstream geocoding call, satisfied by postcodes.Client.
type PostcodeLookup interface {
	Lookup(ctx context.Context, postcode string) (postcodes.Coordinates, error)
}

// GeocodeService handles postcode resolution with caching
type GeocodeService struct {
	store  store.GeocodeStore
	client PostcodeLookup
}

// NewGeocodeService creates a new GeocodeService
func NewGeocodeService(geocodeStore store.GeocodeStore, client PostcodeLookup) *GeocodeService {
	return &GeocodeService{
		store:  geocodeStore,
		client: client,
	}
}

// Resolve normalizes raw and returns its coordinates, cache-first.
func (s *GeocodeService) Resolve(ctx context.Context, raw string) (postcodes.Coordinates, error) {
	canonical := postcodes.Normalize(raw)

	entry, err := s.store.GetGeocode(ctx, canonical)
	if err == nil {
		// Recency marker only; the returned coordinates are unaffected
		if touchErr := s.store.TouchGeocode(ctx, canonical, time.Now()); touchErr != nil {
			logger.Error("GeocodeService: failed to touch %s: %v", canonical, touchErr)
		}
		return postcodes.Coordinates{Latitude: entry.Latitude, Longitude: entry.Longitude}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return postcodes.Coordinates{}, err
	}

	coords, err := s.client.Lookup(ctx, canonical)
	if err != nil {
		return postcodes.Coordinates{}, err
	}

	if putErr := s.store.PutGeocode(ctx, &models.GeocodeCache{
		Postcode:       canonical,
		Latitude:       coords.Latitude,
		Longitude:      coords.Longitude,
		LastAccessedAt: time.Now(),
	}); putErr != nil {
		// The lookup already succeeded; a cache write failure only costs a
		// repeat lookup next time
		logger.Error("GeocodeService: failed to cache %s: %v", canonical, putErr)
	}

	return coords, nil
}
