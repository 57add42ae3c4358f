package ffbbapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/nickdesi/FFBB-MCP-Server/internal/domain"
	"github.com/nickdesi/FFBB-MCP-Server/internal/usecase"
)

const (
	DefaultAPIBaseURL    = "https://api.ffbb.app"
	DefaultSearchBaseURL = "https://meilisearch-prod.ffbb.app"
)

// FactoryConfig holds the upstream settings shared by every client generation.
type FactoryConfig struct {
	APIBaseURL    string
	SearchBaseURL string
	UserAgent     string
	Timeout       time.Duration
	SearchLimit   int
}

// Factory implements usecase.ClientFactory.
type Factory struct {
	cfg    FactoryConfig
	logger *slog.Logger
}

// NewFactory creates a Factory, filling unset fields with defaults.
func NewFactory(cfg FactoryConfig, logger *slog.Logger) *Factory {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.SearchBaseURL == "" {
		cfg.SearchBaseURL = DefaultSearchBaseURL
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = DefaultSearchLimit
	}
	return &Factory{cfg: cfg, logger: logger.With("component", "ffbb_client")}
}

// NewClient builds a client whose requests carry the given bearer tokens and
// go through transport.
func (f *Factory) NewClient(creds domain.Credentials, transport http.RoundTripper) (usecase.FFBBClient, error) {
	if !creds.Valid() {
		return nil, fmt.Errorf("%w: empty bearer token", usecase.ErrClientConstruction)
	}
	if transport == nil {
		transport = http.DefaultTransport
	}

	api, err := newEndpoint(f.bearerClient(creds.APIToken, transport), f.cfg.APIBaseURL, f.cfg.UserAgent, f.logger.With("api", "data"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", usecase.ErrClientConstruction, err)
	}
	search, err := newEndpoint(f.bearerClient(creds.SearchToken, transport), f.cfg.SearchBaseURL, f.cfg.UserAgent, f.logger.With("api", "search"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", usecase.ErrClientConstruction, err)
	}

	return &Client{api: api, search: search, searchLimit: f.cfg.SearchLimit, logger: f.logger}, nil
}

func (f *Factory) bearerClient(token string, base http.RoundTripper) *http.Client {
	return &http.Client{
		Timeout: f.cfg.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   base,
		},
	}
}
