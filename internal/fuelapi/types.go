/**
 * @description
 * Wire types for the upstream fuel pricing API, plus the strict record schema
 * every ingested station must pass. A record failing the schema marks the whole
 * response as malformed: the provider has changed shape and retrying won't help.
 *
 * @dependencies
 * - github.com/go-playground/validator/v10
 */

package fuelapi

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrServiceFormat marks a schema/format failure in the provider payload.
// It is never retried.
var ErrServiceFormat = errors.New("fuel api payload failed schema validation")

var validate = validator.New()

// TokenResponse is the OAuth2 client-credentials grant response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Pagination is the cursor block of a station list page.
// Its absence on a response means there is only one page.
type Pagination struct {
	Cursor  string `json:"cursor"`
	HasMore bool   `json:"has_more"`
}

// ListResponse is one page of the station listing endpoint.
type ListResponse struct {
	Data       []StationRecord `json:"data"`
	Pagination *Pagination     `json:"pagination"`
}

// StationPrices carries the reported pence-per-litre prices.
// Nil means the station does not sell that fuel; negatives are rejected.
type StationPrices struct {
	PetrolPPL *float64 `json:"petrol_ppl" validate:"omitempty,gte=0"`
	DieselPPL *float64 `json:"diesel_ppl" validate:"omitempty,gte=0"`
}

// StationRecord is one station as reported by the provider.
type StationRecord struct {
	SiteID       string        `json:"site_id" validate:"required"`
	Brand        string        `json:"brand"`
	Name         string        `json:"name" validate:"required"`
	Address      string        `json:"address" validate:"required"`
	Postcode     string        `json:"postcode" validate:"required"`
	Latitude     *float64      `json:"latitude" validate:"required"`
	Longitude    *float64      `json:"longitude" validate:"required"`
	Prices       StationPrices `json:"prices"`
	Amenities    string        `json:"amenities"`
	OpeningHours string        `json:"opening_hours"`
	LastUpdated  *time.Time    `json:"last_updated" validate:"required"`
}

// Validate checks the record against the ingestion schema: required identity,
// address and coordinate fields, finite coordinates within ±90/±180, and
// non-negative prices.
func (r *StationRecord) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrServiceFormat, err)
	}
	if !finiteInRange(*r.Latitude, 90) || !finiteInRange(*r.Longitude, 180) {
		return fmt.Errorf("%w: site %s has coordinates out of range", ErrServiceFormat, r.SiteID)
	}
	return nil
}

func finiteInRange(v, bound float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v >= -bound && v <= bound
}
