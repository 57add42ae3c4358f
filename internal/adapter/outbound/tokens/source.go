// Package tokens fetches the FFBB bearer token pair from the public
// configuration endpoint.
package tokens

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/nickdesi/FFBB-MCP-Server/internal/domain"
	"github.com/nickdesi/FFBB-MCP-Server/internal/usecase"
)

const (
	// DefaultUserAgent is the agent the official mobile app sends. The
	// configuration endpoint rejects unknown agents.
	DefaultUserAgent = "okhttp/4.12.0"

	configurationPath = "/items/configuration"
	cacheKey          = "credentials"
	maxErrorBody      = 512
)

type configurationResponse struct {
	Data struct {
		KeyDH string `json:"key_dh"`
		KeyMS string `json:"key_ms"`
	} `json:"data"`
}

// Source implements usecase.CredentialSource against {baseURL}/items/configuration.
type Source struct {
	client    *http.Client
	baseURL   string
	userAgent string
	cache     *gocache.Cache
	logger    *slog.Logger
}

// NewSource creates a Source. Fetched tokens are remembered for ttl and
// served again when the caller allows it.
func NewSource(client *http.Client, baseURL, userAgent string, ttl time.Duration, logger *slog.Logger) *Source {
	if client == nil {
		client = http.DefaultClient
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Source{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		cache:     gocache.New(ttl, 2*ttl),
		logger:    logger.With("component", "token_source"),
	}
}

// Credentials returns the token pair. With useCache the last pair is reused
// while it is fresh; otherwise the endpoint is always queried.
func (s *Source) Credentials(ctx context.Context, useCache bool) (domain.Credentials, error) {
	if useCache {
		if v, found := s.cache.Get(cacheKey); found {
			s.logger.Debug("Using cached FFBB tokens")
			return v.(domain.Credentials), nil
		}
	}

	creds, err := s.fetch(ctx)
	if err != nil {
		s.logger.Error("Failed to fetch FFBB tokens", slog.Any("error", err))
		return domain.Credentials{}, fmt.Errorf("%w: %w", usecase.ErrCredentialFetch, err)
	}
	s.cache.SetDefault(cacheKey, creds)
	s.logger.Info("Fetched fresh FFBB tokens")
	return creds, nil
}

// Invalidate forgets the cached pair.
func (s *Source) Invalidate() {
	s.cache.Delete(cacheKey)
}

func (s *Source) fetch(ctx context.Context) (domain.Credentials, error) {
	url := s.baseURL + configurationPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("request execution failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.Credentials{}, fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, url, strings.TrimSpace(string(body)))
	}

	var payload configurationResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Credentials{}, fmt.Errorf("failed to decode configuration: %w", err)
	}

	creds := domain.Credentials{APIToken: payload.Data.KeyDH, SearchToken: payload.Data.KeyMS}
	if !creds.Valid() {
		return domain.Credentials{}, fmt.Errorf("configuration response is missing a token")
	}
	return creds, nil
}
