/**
 * @description
 * Bearer token provider for the upstream fuel pricing API.
 * Performs the OAuth2 client-credentials grant and caches the token in the
 * injected cache with a safety buffer subtracted from the reported lifetime.
 *
 * Concurrent callers may race to refresh; duplicate refreshes are harmless
 * (last write wins) so no mutual exclusion is taken.
 *
 * @dependencies
 * - backend/internal/cache
 * - backend/internal/httpx
 * - backend/internal/config
 */

package fuelapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fuelwatch-project/backend/internal/cache"
	"github.com/fuelwatch-project/backend/internal/config"
	"github.com/fuelwatch-project/backend/internal/httpx"
	"github.com/fuelwatch-project/backend/internal/logger"
)

const (
	tokenCacheKey     = "fuelapi:token"
	tokenExpiryBuffer = 60 * time.Second
)

// ErrMissingCredentials means the client id/secret were never configured.
// This is not retryable.
var ErrMissingCredentials = errors.New("fuel api credentials are not configured")

// TokenProvider obtains and caches the provider bearer token.
type TokenProvider struct {
	tokenURL     string
	clientID     string
	clientSecret string
	cache        cache.Cache
	httpClient   *http.Client
	retry        httpx.Policy
}

// NewTokenProvider creates a TokenProvider backed by the given cache.
func NewTokenProvider(cfg *config.Config, c cache.Cache) *TokenProvider {
	return &TokenProvider{
		tokenURL:     cfg.FuelAPI.TokenURL,
		clientID:     cfg.FuelAPI.ClientID,
		clientSecret: cfg.FuelAPI.ClientSecret,
		cache:        c,
		httpClient:   &http.Client{Timeout: cfg.FuelAPI.TokenTimeout},
		retry:        httpx.Policy{MaxAttempts: cfg.FuelAPI.MaxAttempts},
	}
}

// GetToken returns a valid bearer token, refreshing through the token endpoint
// when the cached one is absent or inside its expiry buffer.
func (p *TokenProvider) GetToken(ctx context.Context) (string, error) {
	if token, ok, err := p.cache.Get(ctx, tokenCacheKey); err == nil && ok {
		return token, nil
	} else if err != nil {
		// Cache trouble is not fatal; fall through to a fresh grant
		logger.Error("TokenProvider: cache read failed: %v", err)
	}

	if p.clientID == "" || p.clientSecret == "" {
		return "", ErrMissingCredentials
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", p.clientID)
	form.Set("client_secret", p.clientSecret)
	encoded := form.Encode()

	status, body, err := httpx.Do(ctx, p.httpClient, p.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	if status != http.StatusOK {
		// 4xx other than 429 lands here and is surfaced immediately
		return "", fmt.Errorf("token endpoint rejected request: status %d", status)
	}

	var parsed TokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("token response decode failed: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	ttl := time.Duration(parsed.ExpiresIn)*time.Second - tokenExpiryBuffer
	if ttl > 0 {
		if err := p.cache.Set(ctx, tokenCacheKey, parsed.AccessToken, ttl); err != nil {
			logger.Error("TokenProvider: cache write failed: %v", err)
		}
	}

	return parsed.AccessToken, nil
}
