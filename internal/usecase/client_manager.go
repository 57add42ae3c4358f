package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
)

const (
	// TokenTTL is how long a client generation is trusted. FFBB tokens live
	// about 30 minutes; refreshing at 25 leaves a safety margin.
	TokenTTL = 1500 * time.Second
	// CacheTTL is the freshness window of cached upstream HTTP responses.
	CacheTTL = 1800 * time.Second
)

const tracerName = "github.com/nickdesi/FFBB-MCP-Server/internal/usecase"

// generation pairs a client with the instant it was built. It is published
// as a whole through a single pointer so readers never see a client from
// one generation with the timestamp of another.
type generation struct {
	client    FFBBClient
	createdAt time.Time
	number    uint64
}

type buildResult struct {
	client FFBBClient
	err    error
}

// ClientManager owns the process-wide FFBBClient. It builds the client on
// first use, rebuilds it once TokenTTL has elapsed and makes sure at most
// one build runs at a time.
//
// A failed rebuild leaves the previous generation in place (fail open):
// callers that already hold the old client keep using it, and the next
// Acquire tries again. Acquire itself reports the failure and never hands
// out an expired client.
type ClientManager struct {
	credentials CredentialSource
	clients     ClientFactory
	transports  TransportFactory
	clock       clock.Clock
	ttl         time.Duration
	cacheTTL    time.Duration
	logger      *slog.Logger
	tracer      trace.Tracer

	current atomic.Pointer[generation]
	gens    atomic.Uint64
	// sem is a one-slot semaphore guarding the build path. A channel rather
	// than a sync.Mutex so waiters can give up when their context ends.
	sem chan struct{}

	// publishMu orders Reset against publishing a finished build. epoch
	// counts resets; a build started in an older epoch is never published.
	publishMu sync.Mutex
	epoch     uint64
}

// errResetDuringBuild reports a build that finished after Reset was called.
var errResetDuringBuild = errors.New("client manager was reset while the client was being built")

// ClientManagerOption customises a ClientManager.
type ClientManagerOption func(*ClientManager)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.Clock) ClientManagerOption {
	return func(m *ClientManager) { m.clock = c }
}

// WithTokenTTL overrides TokenTTL.
func WithTokenTTL(d time.Duration) ClientManagerOption {
	return func(m *ClientManager) { m.ttl = d }
}

// NewClientManager creates a ClientManager. No upstream call is made until
// the first Acquire.
func NewClientManager(
	credentials CredentialSource,
	clients ClientFactory,
	transports TransportFactory,
	logger *slog.Logger,
	opts ...ClientManagerOption,
) *ClientManager {
	m := &ClientManager{
		credentials: credentials,
		clients:     clients,
		transports:  transports,
		clock:       clock.New(),
		ttl:         TokenTTL,
		cacheTTL:    CacheTTL,
		logger:      logger.With("usecase", "ClientManager"),
		tracer:      otel.Tracer(tracerName),
		sem:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// stale reports whether g must be rebuilt before use.
func (m *ClientManager) stale(g *generation) bool {
	if g == nil {
		return true
	}
	return m.clock.Now().Sub(g.createdAt) >= m.ttl
}

// Acquire returns a client whose credentials are younger than the TTL,
// building or rebuilding it when needed. Concurrent callers that find the
// client stale wait for a single build and share its result.
func (m *ClientManager) Acquire(ctx context.Context) (FFBBClient, error) {
	if g := m.current.Load(); !m.stale(g) {
		return g.client, nil
	}

	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// Another caller may have rebuilt while we were waiting.
	g := m.current.Load()
	if !m.stale(g) {
		<-m.sem
		return g.client, nil
	}
	if g != nil {
		m.logger.Info("FFBB token expired, refreshing client",
			slog.Uint64("generation", g.number),
			slog.Duration("age", m.clock.Now().Sub(g.createdAt)))
	}

	// The worker owns the semaphore until the build is over, whatever
	// happens to the caller, so a second build can never overlap this one.
	epoch := m.currentEpoch()
	done := make(chan buildResult, 1)
	go func() {
		defer func() { <-m.sem }()
		client, err := m.build(context.WithoutCancel(ctx))
		if err == nil {
			err = m.publish(ctx, epoch, client)
		}
		if err != nil {
			client = nil
		}
		done <- buildResult{client: client, err: err}
	}()

	select {
	case r := <-done:
		return r.client, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *ClientManager) currentEpoch() uint64 {
	m.publishMu.Lock()
	defer m.publishMu.Unlock()
	return m.epoch
}

// publish makes client the current generation unless its caller went away
// or Reset was called since the build started in epoch.
func (m *ClientManager) publish(ctx context.Context, epoch uint64, client FFBBClient) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		m.logger.Warn("Discarding client built for a cancelled caller", slog.Any("error", ctxErr))
		return fmt.Errorf("%w: %w", ErrClientConstruction, ctxErr)
	}

	m.publishMu.Lock()
	defer m.publishMu.Unlock()
	if m.epoch != epoch {
		m.logger.Warn("Discarding client built before a reset")
		return fmt.Errorf("%w: %w", ErrClientConstruction, errResetDuringBuild)
	}
	n := m.gens.Inc()
	m.current.Store(&generation{client: client, createdAt: m.clock.Now(), number: n})
	m.logger.Info("FFBB client ready", slog.Uint64("generation", n))
	return nil
}

// build fetches credentials and assembles a new client. It does not touch
// the published generation.
func (m *ClientManager) build(ctx context.Context) (client FFBBClient, err error) {
	ctx, span := m.tracer.Start(ctx, "ffbb.client.build")
	defer span.End()

	start := m.clock.Now()
	m.logger.Info("Initialising FFBB client")

	defer func() {
		if err == nil {
			span.SetAttributes(attribute.Int64("ffbb.client.build_ms", m.clock.Now().Sub(start).Milliseconds()))
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.logger.Error("FFBB client initialisation failed",
			slog.Any("error", err),
			slog.String("stack", string(debug.Stack())))
	}()

	creds, err := m.credentials.Credentials(ctx, true)
	if err != nil {
		if !errors.Is(err, ErrCredentialFetch) {
			err = fmt.Errorf("%w: %w", ErrCredentialFetch, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrClientConstruction, err)
	}

	transport, err := m.transports.NewTransport(m.cacheTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create caching transport: %w", ErrClientConstruction, err)
	}

	client, err = m.clients.NewClient(creds, transport)
	if err != nil {
		if errors.Is(err, ErrClientConstruction) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrClientConstruction, err)
	}
	return client, nil
}

// Reset drops the current client so the next Acquire builds a new one.
// A build already in flight is not published. Callers holding the previous
// client are unaffected.
func (m *ClientManager) Reset() {
	m.publishMu.Lock()
	m.epoch++
	m.current.Store(nil)
	m.publishMu.Unlock()
	m.logger.Info("FFBB client reset")
}

// Generation returns the number of the published client generation, 0 when none.
func (m *ClientManager) Generation() uint64 {
	if g := m.current.Load(); g != nil {
		return g.number
	}
	return 0
}
