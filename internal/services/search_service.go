/**
 * @description
 * Proximity Search Service: ranks stations around an origin by price, then
 * distance. Distance uses the great-circle (haversine) formula in miles.
 *
 * @dependencies
 * - backend/internal/store
 * - backend/internal/services (GeocodeService)
 */

package services

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/fuelwatch-project/backend/internal/models"
	"github.com/fuelwatch-project/backend/internal/store"
)

const (
	earthRadiusMiles = 3959
	maxSearchResults = 10
)

// SearchResult is one ranked station in a proximity search response.
type SearchResult struct {
	StationID     string  `json:"station_id"`
	Brand         string  `json:"brand"`
	Name          string  `json:"name"`
	Address       string  `json:"address"`
	Postcode      string  `json:"postcode"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	PricePPL      int     `json:"price_ppl"`
	DistanceMiles float64 `json:"distance_miles"` // rounded to 2dp
}

// StationDetail is the full station view returned by GetStationDetail.
type StationDetail struct {
	StationID    string  `json:"station_id"`
	Brand        string  `json:"brand"`
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	Postcode     string  `json:"postcode"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Amenities    string  `json:"amenities"`
	OpeningHours string  `json:"opening_hours"`
	PetrolPPL    *int    `json:"petrol_ppl"`
	DieselPPL    *int    `json:"diesel_ppl"`
	// PricePerLitre prefers petrol, falls back to diesel, defaults to 0
	PricePerLitre int `json:"price_per_litre"`
}

// SearchService handles proximity-ranked station search
type SearchService struct {
	stations store.StationStore
	geocode  *GeocodeService
}

// NewSearchService creates a new SearchService
func NewSearchService(stations store.StationStore, geocode *GeocodeService) *SearchService {
	return &SearchService{
		stations: stations,
		geocode:  geocode,
	}
}

// SearchByCoordinates returns up to 10 stations within radiusMiles of the
// origin that price the requested fuel, sorted by price then distance.
func (s *SearchService) SearchByCoordinates(ctx context.Context, lat, lng, radiusMiles float64, fuelType string) ([]SearchResult, error) {
	if fuelType != models.FuelPetrol && fuelType != models.FuelDiesel {
		return nil, fmt.Errorf("unknown fuel type %q", fuelType)
	}

	stations, err := s.stations.ListStationsWithPrices(ctx)
	if err != nil {
		return nil, err
	}

	type candidate struct {
		result   SearchResult
		distance float64 // unrounded, for tie-breaking
	}

	var candidates []candidate
	for _, st := range stations {
		price := priceFor(&st, fuelType)
		if price == nil {
			continue
		}
		distance := Haversine(lat, lng, st.Latitude, st.Longitude)
		if distance > radiusMiles {
			continue
		}
		candidates = append(candidates, candidate{
			result: SearchResult{
				StationID:     st.ExternalID,
				Brand:         st.Brand,
				Name:          st.Name,
				Address:       st.Address,
				Postcode:      st.Postcode,
				Latitude:      st.Latitude,
				Longitude:     st.Longitude,
				PricePPL:      *price,
				DistanceMiles: math.Round(distance*100) / 100,
			},
			distance: distance,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].result.PricePPL != candidates[j].result.PricePPL {
			return candidates[i].result.PricePPL < candidates[j].result.PricePPL
		}
		return candidates[i].distance < candidates[j].distance
	})

	if len(candidates) > maxSearchResults {
		candidates = candidates[:maxSearchResults]
	}

	results := make([]SearchResult, len(candidates))
	for i, c := range candidates {
		results[i] = c.result
	}
	return results, nil
}

// SearchByPostcode resolves the postcode through the geocode cache and delegates.
func (s *SearchService) SearchByPostcode(ctx context.Context, postcode string, radiusMiles float64, fuelType string) ([]SearchResult, error) {
	coords, err := s.geocode.Resolve(ctx, postcode)
	if err != nil {
		return nil, err
	}
	return s.SearchByCoordinates(ctx, coords.Latitude, coords.Longitude, radiusMiles, fuelType)
}

// GetStationDetail returns the full station view, or store.ErrNotFound.
func (s *SearchService) GetStationDetail(ctx context.Context, stationID string) (*StationDetail, error) {
	st, err := s.stations.GetStationWithPrice(ctx, stationID)
	if err != nil {
		return nil, err
	}

	detail := &StationDetail{
		StationID:    st.ExternalID,
		Brand:        st.Brand,
		Name:         st.Name,
		Address:      st.Address,
		Postcode:     st.Postcode,
		Latitude:     st.Latitude,
		Longitude:    st.Longitude,
		Amenities:    st.Amenities,
		OpeningHours: st.OpeningHours,
		PetrolPPL:    st.PetrolPPL,
		DieselPPL:    st.DieselPPL,
	}
	switch {
	case st.PetrolPPL != nil:
		detail.PricePerLitre = *st.PetrolPPL
	case st.DieselPPL != nil:
		detail.PricePerLitre = *st.DieselPPL
	}
	return detail, nil
}

func priceFor(st *store.StationWithPrice, fuelType string) *int {
	if fuelType == models.FuelDiesel {
		return st.DieselPPL
	}
	return st.PetrolPPL
}

// Haversine returns the great-circle distance in miles between two points.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLng := (lng2 - lng1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMiles * c
}
