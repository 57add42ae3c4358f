// Package ffbbapi talks to the FFBB Directus data API and its Meilisearch
// search API.
package ffbbapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/nickdesi/FFBB-MCP-Server/internal/domain"
)

const (
	livesPath        = "/json/lives.json"
	saisonsPath      = "/items/ffbbserver_saisons"
	competitionsPath = "/items/ffbbserver_competitions"
	poulesPath       = "/items/ffbbserver_poules"
	organismesPath   = "/items/ffbbserver_organismes"
	multiSearchPath  = "/multi-search"

	// deepFields expands one level of relations (engagements, classement, rencontres).
	deepFields = "*.*"
	// DefaultSearchLimit is the number of hits asked per index.
	DefaultSearchLimit = 20
)

// Client implements usecase.FFBBClient. It is safe for concurrent use.
type Client struct {
	api         *endpoint
	search      *endpoint
	searchLimit int
	logger      *slog.Logger
}

// directusItem is the {"data": ...} envelope of Directus responses.
type directusItem[T any] struct {
	Data T `json:"data"`
}

type searchQuery struct {
	IndexUID string `json:"indexUid"`
	Q        string `json:"q"`
	Limit    int    `json:"limit,omitempty"`
}

type multiSearchRequest struct {
	Queries []searchQuery `json:"queries"`
}

type multiSearchResponse struct {
	Results []struct {
		IndexUID string           `json:"indexUid"`
		Hits     []map[string]any `json:"hits"`
	} `json:"results"`
}

// Lives returns the games currently being played.
func (c *Client) Lives(ctx context.Context) ([]map[string]any, error) {
	var raw json.RawMessage
	if err := c.api.getJSON(ctx, livesPath, nil, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	// The feed is either a bare array or a Directus envelope.
	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped directusItem[[]map[string]any]
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("unexpected lives payload: %w", err)
	}
	return wrapped.Data, nil
}

// Saisons lists seasons, only the active ones when activeOnly is set.
func (c *Client) Saisons(ctx context.Context, activeOnly bool) ([]map[string]any, error) {
	query := url.Values{}
	query.Set("limit", "-1")
	if activeOnly {
		query.Set("filter", `{"actif":{"_eq":true}}`)
	}
	var out directusItem[[]map[string]any]
	if err := c.api.getJSON(ctx, saisonsPath, query, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Competition fetches a competition by id.
func (c *Client) Competition(ctx context.Context, id int64) (map[string]any, error) {
	return c.item(ctx, competitionsPath, id)
}

// Poule fetches a poule by id.
func (c *Client) Poule(ctx context.Context, id int64) (map[string]any, error) {
	return c.item(ctx, poulesPath, id)
}

// Organisme fetches an organisme by id.
func (c *Client) Organisme(ctx context.Context, id int64) (map[string]any, error) {
	return c.item(ctx, organismesPath, id)
}

func (c *Client) item(ctx context.Context, collection string, id int64) (map[string]any, error) {
	query := url.Values{}
	query.Set("fields", deepFields)
	var out directusItem[map[string]any]
	if err := c.api.getJSON(ctx, collection+"/"+strconv.FormatInt(id, 10), query, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Search queries a single index.
func (c *Client) Search(ctx context.Context, index domain.SearchIndex, query string) (*domain.SearchResult, error) {
	results, err := c.multiSearch(ctx, query, []domain.SearchIndex{index})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &domain.SearchResult{Index: index}, nil
	}
	return &results[0], nil
}

// MultiSearch queries every known index in one round trip.
func (c *Client) MultiSearch(ctx context.Context, query string) ([]domain.SearchResult, error) {
	return c.multiSearch(ctx, query, domain.AllSearchIndexes)
}

func (c *Client) multiSearch(ctx context.Context, query string, indexes []domain.SearchIndex) ([]domain.SearchResult, error) {
	req := multiSearchRequest{Queries: make([]searchQuery, 0, len(indexes))}
	for _, idx := range indexes {
		req.Queries = append(req.Queries, searchQuery{IndexUID: idx.UID(), Q: query, Limit: c.searchLimit})
	}

	var resp multiSearchResponse
	if err := c.search.postJSON(ctx, multiSearchPath, req, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		idx, ok := domain.IndexFromUID(r.IndexUID)
		if !ok {
			c.logger.Warn("Ignoring results of unknown index", slog.String("index_uid", r.IndexUID))
			continue
		}
		out = append(out, domain.SearchResult{Index: idx, Hits: r.Hits})
	}
	return out, nil
}
