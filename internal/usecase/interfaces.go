package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/nickdesi/FFBB-MCP-Server/internal/domain"
)

// Standard errors returned by use cases and adapters.
var (
	// ErrCredentialFetch means the upstream token issuance failed or was unreachable.
	ErrCredentialFetch = errors.New("credential fetch failed")
	// ErrClientConstruction means no client could be built (bad credentials, transport setup).
	ErrClientConstruction = errors.New("client construction failed")
	// ErrNotFound means the upstream API has no such resource.
	ErrNotFound = errors.New("resource not found")
	// ErrForbidden means upstream refused the credentials for this resource.
	ErrForbidden = errors.New("access forbidden")
	// ErrRateLimited means upstream throttled the request.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidArgument means a caller-supplied parameter was rejected before any upstream call.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrEntryNotFound is returned by catalog repositories for unknown names.
	ErrEntryNotFound = errors.New("catalog entry not found")
)

// --- Upstream client lifecycle ---

// FFBBClient is the handle to the upstream FFBB data and search APIs.
// Implementations must be safe for concurrent use.
type FFBBClient interface {
	Lives(ctx context.Context) ([]map[string]any, error)
	Saisons(ctx context.Context, activeOnly bool) ([]map[string]any, error)
	Competition(ctx context.Context, id int64) (map[string]any, error)
	Poule(ctx context.Context, id int64) (map[string]any, error)
	Organisme(ctx context.Context, id int64) (map[string]any, error)
	Search(ctx context.Context, index domain.SearchIndex, query string) (*domain.SearchResult, error)
	MultiSearch(ctx context.Context, query string) ([]domain.SearchResult, error)
}

// CredentialSource issues the bearer token pair. It may perform network I/O.
type CredentialSource interface {
	Credentials(ctx context.Context, useCache bool) (domain.Credentials, error)
}

// ClientFactory builds an FFBBClient from credentials and a (caching) transport.
type ClientFactory interface {
	NewClient(creds domain.Credentials, transport http.RoundTripper) (FFBBClient, error)
}

// TransportFactory builds the HTTP transport used for upstream calls.
// Responses younger than ttl may be served without an upstream call.
type TransportFactory interface {
	NewTransport(ttl time.Duration) (http.RoundTripper, error)
}

// ClientProvider lends a valid FFBBClient for the duration of a call.
type ClientProvider interface {
	Acquire(ctx context.Context) (FFBBClient, error)
}

// --- Catalog ---

// CatalogRepository stores the capabilities registered on the MCP server.
type CatalogRepository interface {
	// Save stores entries, replacing existing ones with the same kind and name.
	Save(ctx context.Context, entries []domain.CatalogEntry) error

	// List retrieves all stored entries.
	List(ctx context.Context) ([]domain.CatalogEntry, error)

	// FindByName retrieves an entry by kind and name.
	FindByName(ctx context.Context, kind domain.EntryKind, name string) (*domain.CatalogEntry, error)
}
