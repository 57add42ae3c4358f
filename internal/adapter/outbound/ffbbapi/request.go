package ffbbapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/nickdesi/FFBB-MCP-Server/internal/usecase"
)

const maxErrorBody = 1024

// APIError is a non-2xx answer from the data or search API.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Is lets callers test status classes with errors.Is against the usecase sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case usecase.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case usecase.ErrForbidden:
		return e.StatusCode == http.StatusForbidden || e.StatusCode == http.StatusUnauthorized
	case usecase.ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// endpoint is one upstream API (data or search) reached through an
// authenticated client.
type endpoint struct {
	client    *http.Client
	baseURL   *url.URL
	userAgent string
	logger    *slog.Logger
}

func newEndpoint(client *http.Client, rawBase, userAgent string, logger *slog.Logger) (*endpoint, error) {
	base, err := url.Parse(strings.TrimRight(rawBase, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %s: %w", rawBase, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host required", rawBase)
	}
	return &endpoint{client: client, baseURL: base, userAgent: userAgent, logger: logger}, nil
}

// getJSON issues GET {base}/{p}?query and decodes the JSON body into out.
func (e *endpoint) getJSON(ctx context.Context, p string, query url.Values, out any) error {
	return e.do(ctx, http.MethodGet, p, query, nil, out)
}

// postJSON issues POST {base}/{p} with body encoded as JSON and decodes the answer into out.
func (e *endpoint) postJSON(ctx context.Context, p string, body, out any) error {
	return e.do(ctx, http.MethodPost, p, nil, body, out)
}

func (e *endpoint) do(ctx context.Context, method, p string, query url.Values, body, out any) error {
	u := *e.baseURL
	u.Path = path.Join(u.Path, p)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	finalURL := u.String()
	log := e.logger.With(slog.String("method", method), slog.String("url", finalURL))

	var requestBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		requestBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, finalURL, requestBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.Debug("Executing HTTP request")
	resp, err := e.client.Do(req)
	if err != nil {
		log.Error("HTTP request failed", slog.Any("error", err))
		return fmt.Errorf("request execution failed: %w", err)
	}
	defer resp.Body.Close()

	log = log.With(slog.Int("status_code", resp.StatusCode))
	if resp.Header.Get("X-From-Cache") != "" {
		log = log.With(slog.Bool("cached", true))
	}
	log.Debug("Received HTTP response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Warn("Received non-success status code", slog.String("response_body", string(respBody)))
		return &APIError{StatusCode: resp.StatusCode, URL: finalURL, Body: strings.TrimSpace(string(respBody))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		log.Error("Failed to decode JSON response", slog.Any("error", err))
		return fmt.Errorf("failed to decode response from %s: %w", finalURL, err)
	}
	return nil
}
