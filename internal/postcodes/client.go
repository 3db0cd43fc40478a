/**
 * @description
 * HTTP client for the postcode geocoding service.
 * Resolves a canonical postcode to WGS84 coordinates.
 *
 * @dependencies
 * - net/http
 * - encoding/json
 * - backend/internal/httpx
 * - backend/internal/config
 */

package postcodes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fuelwatch-project/backend/internal/config"
	"github.com/fuelwatch-project/backend/internal/httpx"
)

const (
	DefaultTimeout = 5 * time.Second
)

var (
	// ErrPostcodeNotFound means the geocoding service does not know the postcode.
	ErrPostcodeNotFound = errors.New("postcode not found")
	// ErrInvalidResponse means the service answered with an unusable payload.
	ErrInvalidResponse = errors.New("invalid geocoding response")
)

// Coordinates is a resolved WGS84 position.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type lookupResponse struct {
	Result *struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"result"`
}

// Client talks to a postcodes.io compatible API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	retry      httpx.Policy
}

// NewClient creates a geocoding client from config.
func NewClient(cfg *config.Config) *Client {
	timeout := cfg.Postcodes.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL:    cfg.Postcodes.BaseURL,
		HTTPClient: &http.Client{Timeout: timeout},
		retry:      httpx.Policy{MaxAttempts: cfg.FuelAPI.MaxAttempts},
	}
}

// Lookup resolves a canonical postcode to coordinates.
// Returns ErrPostcodeNotFound for an unknown postcode and ErrInvalidResponse
// for a malformed payload; transport errors and 429/5xx are retried.
func (c *Client) Lookup(ctx context.Context, postcode string) (Coordinates, error) {
	u := fmt.Sprintf("%s/postcodes/%s", c.BaseURL, url.PathEscape(postcode))

	status, body, err := httpx.Do(ctx, c.HTTPClient, c.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	})
	if err != nil {
		return Coordinates{}, err
	}

	if status == http.StatusNotFound {
		return Coordinates{}, ErrPostcodeNotFound
	}
	if status != http.StatusOK {
		return Coordinates{}, fmt.Errorf("geocoding error: status %d", status)
	}

	var parsed lookupResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Coordinates{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if parsed.Result == nil || parsed.Result.Latitude == nil || parsed.Result.Longitude == nil {
		return Coordinates{}, ErrInvalidResponse
	}

	return Coordinates{
		Latitude:  *parsed.Result.Latitude,
		Longitude: *parsed.Result.Longitude,
	}, nil
}
