/**
 * @description
 * HTTP client for the upstream fuel pricing API.
 * Fetches the full station listing by following the pagination cursor, with
 * bearer auth, token-bucket rate limiting and retry on transport/429/5xx.
 *
 * @dependencies
 * - net/http
 * - encoding/json
 * - golang.org/x/time/rate
 * - backend/internal/httpx
 * - backend/internal/config
 */

package fuelapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fuelwatch-project/backend/internal/config"
	"github.com/fuelwatch-project/backend/internal/httpx"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout = 30 * time.Second
)

// Client talks to the fuel pricing provider.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	tokens     *TokenProvider
	limiter    *rate.Limiter
	retry      httpx.Policy
}

// NewClient creates a fuel API client with rate limiting.
func NewClient(cfg *config.Config, tokens *TokenProvider) *Client {
	timeout := cfg.FuelAPI.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	perMin := cfg.FuelAPI.RatePerMin
	if perMin <= 0 {
		perMin = 60
	}
	return &Client{
		BaseURL:    cfg.FuelAPI.BaseURL,
		HTTPClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		limiter:    rate.NewLimiter(rate.Limit(float64(perMin)/60.0), 1),
		retry:      httpx.Policy{MaxAttempts: cfg.FuelAPI.MaxAttempts},
	}
}

// ListAllStations pages through the station listing until the provider reports
// no more pages and returns every record, each validated against the strict
// ingestion schema. A schema failure aborts with ErrServiceFormat.
func (c *Client) ListAllStations(ctx context.Context) ([]StationRecord, error) {
	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		return nil, err
	}

	var all []StationRecord
	cursor := ""

	for {
		page, err := c.fetchPage(ctx, token, cursor)
		if err != nil {
			return nil, err
		}

		for i := range page.Data {
			if err := page.Data[i].Validate(); err != nil {
				return nil, err
			}
		}
		all = append(all, page.Data...)

		// Absence of a pagination block means a single page
		if page.Pagination == nil || !page.Pagination.HasMore || page.Pagination.Cursor == "" {
			break
		}
		cursor = page.Pagination.Cursor
	}

	return all, nil
}

// fetchPage performs one rate-limited GET against the listing endpoint.
func (c *Client) fetchPage(ctx context.Context, token, cursor string) (*ListResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u, err := url.Parse(fmt.Sprintf("%s/stations", c.BaseURL))
	if err != nil {
		return nil, err
	}
	if cursor != "" {
		q := u.Query()
		q.Set("cursor", cursor)
		u.RawQuery = q.Encode()
	}
	target := u.String()

	status, body, err := httpx.Do(ctx, c.HTTPClient, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("fuel api error: status %d", status)
	}

	var page ListResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceFormat, err)
	}

	return &page, nil
}
