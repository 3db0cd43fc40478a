package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fuelwatch-project/backend/internal/cache"
	"github.com/fuelwatch-project/backend/internal/models"
	"github.com/fuelwatch-project/backend/internal/postcodes"
	"github.com/fuelwatch-project/backend/internal/services"
	"github.com/fuelwatch-project/backend/internal/store"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Westminster
const (
	testLat = 51.5074
	testLng = -0.1278
)

// fakeStationStore is a canned store.StationStore
type fakeStationStore struct {
	items   []store.StationWithPrice
	applied int
}

func (f *fakeStationStore) ApplyStationSnapshot(ctx context.Context, snap store.StationSnapshot) (bool, error) {
	f.applied++
	return true, nil
}

func (f *fakeStationStore) ListStationsWithPrices(ctx context.Context) ([]store.StationWithPrice, error) {
	return f.items, nil
}

func (f *fakeStationStore) GetStationWithPrice(ctx context.Context, externalID string) (*store.StationWithPrice, error) {
	for i := range f.items {
		if f.items[i].ExternalID == externalID {
			return &f.items[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStationStore) add(id string, lat, lng float64, petrol, diesel *int) {
	ts := time.Now()
	f.items = append(f.items, store.StationWithPrice{
		Station: models.Station{
			ExternalID: id,
			Brand:      "Shell",
			Name:       "Station " + id,
			Address:    "1 High Street",
			Postcode:   "SW1A 1AA",
			Latitude:   lat,
			Longitude:  lng,
		},
		PetrolPPL:      petrol,
		DieselPPL:      diesel,
		PriceTimestamp: &ts,
	})
}

// fakeGeocodeStore is an empty store.GeocodeStore; every resolve misses.
type fakeGeocodeStore struct{}

func (fakeGeocodeStore) GetGeocode(ctx context.Context, postcode string) (*models.GeocodeCache, error) {
	return nil, store.ErrNotFound
}
func (fakeGeocodeStore) PutGeocode(ctx context.Context, entry *models.GeocodeCache) error { return nil }
func (fakeGeocodeStore) TouchGeocode(ctx context.Context, postcode string, at time.Time) error {
	return nil
}

// fakeLookup is a canned services.PostcodeLookup
type fakeLookup struct {
	coords postcodes.Coordinates
	err    error
}

func (f *fakeLookup) Lookup(ctx context.Context, postcode string) (postcodes.Coordinates, error) {
	if f.err != nil {
		return postcodes.Coordinates{}, f.err
	}
	return f.coords, nil
}

func intPtr(v int) *int { return &v }

func newTestCache(t *testing.T) cache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedisCache(client)
}

func newStationApp(t *testing.T, stations *fakeStationStore, lookup *fakeLookup) *fiber.App {
	t.Helper()
	geocode := services.NewGeocodeService(fakeGeocodeStore{}, lookup)
	search := services.NewSearchService(stations, geocode)
	handler := NewStationHandler(search, newTestCache(t))

	app := fiber.New()
	app.Get("/api/v1/stations/search", handler.SearchStations)
	app.Get("/api/v1/stations/:id", handler.GetStationDetail)
	return app
}

type searchResponse struct {
	Results []services.SearchResult `json:"results"`
	Cached  bool                    `json:"cached"`
}

func doRequest(t *testing.T, app *fiber.App, method, target string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, body
}

func TestSearchStationsByCoordinates(t *testing.T) {
	stations := &fakeStationStore{}
	stations.add("dear", testLat, testLng, intPtr(150), nil)
	stations.add("cheap", testLat+0.01, testLng, intPtr(142), nil)
	app := newStationApp(t, stations, &fakeLookup{})

	resp, body := doRequest(t, app, "GET",
		"/api/v1/stations/search?lat=51.5074&lng=-0.1278&radius=5&fuel=petrol", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var parsed searchResponse
	require.NoError(t, json.Unmarshal(body, &parsed))
	require.Len(t, parsed.Results, 2)
	assert.Equal(t, "cheap", parsed.Results[0].StationID)
	assert.False(t, parsed.Cached)
}

func TestSearchStationsServesSecondHitFromCache(t *testing.T) {
	stations := &fakeStationStore{}
	stations.add("s1", testLat, testLng, intPtr(145), nil)
	app := newStationApp(t, stations, &fakeLookup{})
	target := "/api/v1/stations/search?lat=51.5074&lng=-0.1278&radius=5&fuel=petrol"

	_, _ = doRequest(t, app, "GET", target, nil)
	resp, body := doRequest(t, app, "GET", target, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var parsed searchResponse
	require.NoError(t, json.Unmarshal(body, &parsed))
	assert.True(t, parsed.Cached)
	require.Len(t, parsed.Results, 1)
	assert.Equal(t, "s1", parsed.Results[0].StationID)
}

func TestSearchStationsByPostcode(t *testing.T) {
	stations := &fakeStationStore{}
	stations.add("s1", testLat, testLng, nil, intPtr(151))
	lookup := &fakeLookup{coords: postcodes.Coordinates{Latitude: testLat, Longitude: testLng}}
	app := newStationApp(t, stations, lookup)

	resp, body := doRequest(t, app, "GET",
		"/api/v1/stations/search?postcode=sw1a1aa&radius=5&fuel=diesel", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var parsed searchResponse
	require.NoError(t, json.Unmarshal(body, &parsed))
	require.Len(t, parsed.Results, 1)
	assert.Equal(t, 151, parsed.Results[0].PricePPL)
}

func TestSearchStationsUnknownPostcode(t *testing.T) {
	app := newStationApp(t, &fakeStationStore{}, &fakeLookup{err: postcodes.ErrPostcodeNotFound})

	resp, _ := doRequest(t, app, "GET", "/api/v1/stations/search?postcode=ZZ99+9ZZ", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSearchStationsRequiresOrigin(t *testing.T) {
	app := newStationApp(t, &fakeStationStore{}, &fakeLookup{})

	resp, _ := doRequest(t, app, "GET", "/api/v1/stations/search?radius=5", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSearchStationsRejectsBadInput(t *testing.T) {
	app := newStationApp(t, &fakeStationStore{}, &fakeLookup{})

	resp, _ := doRequest(t, app, "GET", "/api/v1/stations/search?postcode=SW1A1AA&radius=-2", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, app, "GET", "/api/v1/stations/search?lat=abc&lng=-0.1", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetStationDetail(t *testing.T) {
	stations := &fakeStationStore{}
	stations.add("s1", testLat, testLng, intPtr(144), intPtr(152))
	app := newStationApp(t, stations, &fakeLookup{})

	resp, body := doRequest(t, app, "GET", "/api/v1/stations/s1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var detail services.StationDetail
	require.NoError(t, json.Unmarshal(body, &detail))
	assert.Equal(t, "s1", detail.StationID)
	assert.Equal(t, 144, detail.PricePerLitre)

	resp, _ = doRequest(t, app, "GET", "/api/v1/stations/ghost", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
