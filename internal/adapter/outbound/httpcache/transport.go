// Package httpcache provides an http.RoundTripper that keeps successful
// upstream GET responses for a fixed time, backed by memory or a bbolt file.
package httpcache

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/benbjohnson/clock"
)

// HeaderFromCache is set on responses served from the cache.
const HeaderFromCache = "X-From-Cache"

// Transport caches successful GET and HEAD responses. Other methods and non
// 2xx responses go straight to Base.
type Transport struct {
	// Base performs the actual requests. http.DefaultTransport when nil.
	Base http.RoundTripper
	// Backend stores the responses.
	Backend Backend
	// TTL is how long a stored response is served.
	TTL time.Duration
	// Clock defaults to the wall clock.
	Clock  clock.Clock
	Logger *slog.Logger
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) now() time.Time {
	if t.Clock != nil {
		return t.Clock.Now()
	}
	return time.Now()
}

func (t *Transport) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

func cacheable(req *http.Request) bool {
	return req.Method == http.MethodGet || req.Method == http.MethodHead
}

// CacheKey identifies a request in the backend.
func CacheKey(req *http.Request) string {
	return req.Method + " " + req.URL.String()
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Backend == nil || !cacheable(req) {
		return t.base().RoundTrip(req)
	}

	key := CacheKey(req)
	if resp, ok := t.lookup(req, key); ok {
		return resp, nil
	}

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, nil
	}

	// DumpResponse drains the body and puts an identical reader back.
	dump, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}
	if err := t.Backend.Set(key, Entry{StoredAt: t.now(), Response: dump}); err != nil {
		t.logger().Warn("Failed to store response in cache", slog.String("key", key), slog.Any("error", err))
	}
	return resp, nil
}

func (t *Transport) lookup(req *http.Request, key string) (*http.Response, bool) {
	log := t.logger().With(slog.String("key", key))

	entry, found, err := t.Backend.Get(key)
	if err != nil {
		log.Warn("Cache lookup failed", slog.Any("error", err))
		return nil, false
	}
	if !found {
		return nil, false
	}
	if t.now().Sub(entry.StoredAt) >= t.TTL {
		if err := t.Backend.Delete(key); err != nil {
			log.Warn("Failed to evict expired cache entry", slog.Any("error", err))
		}
		return nil, false
	}

	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(entry.Response)), req)
	if err != nil {
		log.Warn("Dropping unreadable cache entry", slog.Any("error", err))
		_ = t.Backend.Delete(key)
		return nil, false
	}
	resp.Header.Set(HeaderFromCache, "1")
	log.Debug("Serving response from cache")
	return resp, true
}

// Factory builds one Transport per client generation over a shared backend.
type Factory struct {
	backend Backend
	base    http.RoundTripper
	enabled bool
	clock   clock.Clock
	logger  *slog.Logger
}

// NewFactory creates a Factory. When enabled is false the transports it
// returns never touch the backend, which may then be nil.
func NewFactory(backend Backend, base http.RoundTripper, enabled bool, logger *slog.Logger) *Factory {
	return &Factory{
		backend: backend,
		base:    base,
		enabled: enabled,
		clock:   clock.New(),
		logger:  logger.With("component", "http_cache"),
	}
}

// NewTransport returns a caching round tripper whose entries live for ttl.
func (f *Factory) NewTransport(ttl time.Duration) (http.RoundTripper, error) {
	if !f.enabled {
		if f.base != nil {
			return f.base, nil
		}
		return http.DefaultTransport, nil
	}
	if f.backend == nil {
		return nil, errors.New("http cache enabled without a backend")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("invalid cache ttl %s", ttl)
	}
	return &Transport{
		Base:    f.base,
		Backend: f.backend,
		TTL:     ttl,
		Clock:   f.clock,
		Logger:  f.logger,
	}, nil
}
