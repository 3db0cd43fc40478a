package services

import (
	"context"
	"testing"

	"github.com/fuelwatch-project/backend/internal/postcodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCachesLookup(t *testing.T) {
	geocodeStore := newMemGeocodeStore()
	lookup := &fakeLookup{coords: postcodes.Coordinates{Latitude: 51.501, Longitude: -0.141}}
	svc := NewGeocodeService(geocodeStore, lookup)
	ctx := context.Background()

	first, err := svc.Resolve(ctx, "sw1a1aa")
	require.NoError(t, err)
	second, err := svc.Resolve(ctx, "SW1A 1AA")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, lookup.calls, "second resolve must be served from cache")

	entry, ok := geocodeStore.entries["SW1A 1AA"]
	require.True(t, ok, "entry must be stored under the canonical postcode")
	assert.InDelta(t, 51.501, entry.Latitude, 1e-9)
}

func TestResolveTouchesOnHit(t *testing.T) {
	geocodeStore := newMemGeocodeStore()
	lookup := &fakeLookup{coords: postcodes.Coordinates{Latitude: 53.48, Longitude: -2.24}}
	svc := NewGeocodeService(geocodeStore, lookup)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, "M1 1AE")
	require.NoError(t, err)
	assert.Equal(t, 0, geocodeStore.touches)

	_, err = svc.Resolve(ctx, "M1 1AE")
	require.NoError(t, err)
	assert.Equal(t, 1, geocodeStore.touches, "a cache hit refreshes the last-access marker")
}

func TestResolveNotFound(t *testing.T) {
	svc := NewGeocodeService(newMemGeocodeStore(), &fakeLookup{err: postcodes.ErrPostcodeNotFound})

	_, err := svc.Resolve(context.Background(), "ZZ99 9ZZ")
	assert.ErrorIs(t, err, postcodes.ErrPostcodeNotFound)
}

func TestResolveDoesNotCacheFailures(t *testing.T) {
	geocodeStore := newMemGeocodeStore()
	lookup := &fakeLookup{err: postcodes.ErrInvalidResponse}
	svc := NewGeocodeService(geocodeStore, lookup)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, "SW1A 1AA")
	require.Error(t, err)
	assert.Empty(t, geocodeStore.entries)

	// A later attempt goes upstream again
	lookup.err = nil
	lookup.coords = postcodes.Coordinates{Latitude: 51.5, Longitude: -0.1}
	_, err = svc.Resolve(ctx, "SW1A 1AA")
	require.NoError(t, err)
	assert.Equal(t, 2, lookup.calls)
}
