package test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickdesi/FFBB-MCP-Server/internal/adapter/inbound/mcptools"
	"github.com/nickdesi/FFBB-MCP-Server/internal/adapter/outbound/ffbbapi"
	"github.com/nickdesi/FFBB-MCP-Server/internal/adapter/outbound/httpcache"
	"github.com/nickdesi/FFBB-MCP-Server/internal/adapter/outbound/memrepo"
	"github.com/nickdesi/FFBB-MCP-Server/internal/adapter/outbound/tokens"
	"github.com/nickdesi/FFBB-MCP-Server/internal/usecase"
	"github.com/nickdesi/FFBB-MCP-Server/pkg/shared/mcpjsonrpc"
)

// fakeFFBB serves the configuration, data and search endpoints.
type fakeFFBB struct {
	server       *httptest.Server
	tokenCalls   int32
	organismeHit int32
}

func newFakeFFBB(t *testing.T) *fakeFFBB {
	t.Helper()
	f := &fakeFFBB{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /items/configuration", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&f.tokenCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{
			"key_dh": "api-" + string(rune('0'+n)),
			"key_ms": "search-" + string(rune('0'+n)),
		}})
	})
	mux.HandleFunc("GET /items/ffbbserver_organismes/{id}", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.organismeHit, 1)
		if r.PathValue("id") != "123" {
			http.Error(w, `{"errors":[{"message":"not found"}]}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":{"id":"123","nom":"ASVEL","engagements":[{"competition":"U13M","poule_id":7}]}}`)
	})
	mux.HandleFunc("POST /multi-search", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Queries []struct {
				IndexUID string `json:"indexUid"`
				Q        string `json:"q"`
			} `json:"queries"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		results := []map[string]any{}
		for _, q := range body.Queries {
			hits := []map[string]any{}
			if q.IndexUID == "ffbbserver_organismes" {
				hits = append(hits, map[string]any{"id": "123", "nom": q.Q, "_rankingScore": 0.9})
			}
			results = append(results, map[string]any{"indexUid": q.IndexUID, "hits": hits})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

type stack struct {
	mcp     *server.MCPServer
	manager *usecase.ClientManager
	clock   *clock.Mock
	nextID  int
}

func newStack(t *testing.T, upstream *fakeFFBB) *stack {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	backend, err := httpcache.NewBoltBackend(filepath.Join(t.TempDir(), "http_cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	mockClock := clock.NewMock()
	credentials := tokens.NewSource(upstream.server.Client(), upstream.server.URL, "", time.Minute, logger)
	transports := httpcache.NewFactory(backend, nil, true, logger)
	clients := ffbbapi.NewFactory(ffbbapi.FactoryConfig{
		APIBaseURL:    upstream.server.URL,
		SearchBaseURL: upstream.server.URL,
		Timeout:       5 * time.Second,
	}, logger)
	manager := usecase.NewClientManager(credentials, clients, transports, logger, usecase.WithClock(mockClock))

	repo := memrepo.NewInMemoryCatalogRepository(logger)
	srv := mcptools.NewServer("e2e")
	reg := mcptools.NewRegistrar(srv, usecase.NewQueryUseCase(manager, logger), repo,
		usecase.NewServeCatalogUseCase(repo, logger), "e2e", logger)
	require.NoError(t, reg.Register(context.Background()))

	s := &stack{mcp: srv, manager: manager, clock: mockClock}
	s.rpc(t, "initialize", map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "e2e", "version": "0"},
	})
	return s
}

func (s *stack) rpc(t *testing.T, method string, params any) mcpjsonrpc.Response {
	t.Helper()
	s.nextID++
	raw, err := json.Marshal(mcpjsonrpc.NewRequest(s.nextID, method, params))
	require.NoError(t, err)

	out, err := json.Marshal(s.mcp.HandleMessage(context.Background(), raw))
	require.NoError(t, err)
	var resp mcpjsonrpc.Response
	require.NoError(t, json.Unmarshal(out, &resp))
	return resp
}

func (s *stack) callTool(t *testing.T, name string, args map[string]any) mcpjsonrpc.CallToolResult {
	t.Helper()
	resp := s.rpc(t, "tools/call", mcpjsonrpc.CallToolParams{Name: name, Arguments: args})
	require.Nil(t, resp.Error)
	var res mcpjsonrpc.CallToolResult
	require.NoError(t, json.Unmarshal(resp.Result, &res))
	require.NotEmpty(t, res.Content)
	return res
}

func TestEndToEnd_SearchThenGet(t *testing.T) {
	upstream := newFakeFFBB(t)
	s := newStack(t, upstream)

	res := s.callTool(t, "ffbb_search_organismes", map[string]any{"name": "ASVEL"})
	require.False(t, res.IsError, res.Content[0].Text)
	assert.JSONEq(t, `[{"id":"123","nom":"ASVEL"}]`, res.Content[0].Text)

	res = s.callTool(t, "ffbb_equipes_club", map[string]any{"organisme_id": 123})
	require.False(t, res.IsError, res.Content[0].Text)
	assert.JSONEq(t, `[{"competition":"U13M","poule_id":7}]`, res.Content[0].Text)

	res = s.callTool(t, "ffbb_get_organisme", map[string]any{"organisme_id": 123})
	require.False(t, res.IsError)
	// Served from the response cache.
	assert.Equal(t, int32(1), atomic.LoadInt32(&upstream.organismeHit))

	res = s.callTool(t, "ffbb_get_organisme", map[string]any{"organisme_id": 999})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "introuvable")

	multi := s.callTool(t, "ffbb_multi_search", map[string]any{"name": "Lyon"})
	assert.JSONEq(t, `[{"id":"123","nom":"Lyon","_category":"organismes"}]`, multi.Content[0].Text)

	// One client generation served every call.
	assert.Equal(t, int32(1), atomic.LoadInt32(&upstream.tokenCalls))
	assert.Equal(t, uint64(1), s.manager.Generation())
}

func TestEndToEnd_TokenRefresh(t *testing.T) {
	upstream := newFakeFFBB(t)
	s := newStack(t, upstream)

	s.callTool(t, "ffbb_search_salles", map[string]any{"name": "Bercy"})
	s.clock.Add(1000 * time.Second)
	s.callTool(t, "ffbb_search_salles", map[string]any{"name": "Bercy"})
	assert.Equal(t, uint64(1), s.manager.Generation())

	s.clock.Add(600 * time.Second)
	s.callTool(t, "ffbb_search_salles", map[string]any{"name": "Bercy"})
	assert.Equal(t, uint64(2), s.manager.Generation())
}

func TestEndToEnd_UpstreamDown(t *testing.T) {
	upstream := newFakeFFBB(t)
	s := newStack(t, upstream)
	upstream.server.Close()

	res := s.callTool(t, "ffbb_search_salles", map[string]any{"name": "Bercy"})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "Service FFBB temporairement indisponible")

	lives := s.callTool(t, "ffbb_get_lives", nil)
	assert.False(t, lives.IsError)
	assert.Equal(t, "[]", lives.Content[0].Text)
	assert.Equal(t, uint64(0), s.manager.Generation())
}

// TestLiveFFBB talks to the real FFBB APIs. Run manually with:
// FFBB_LIVE_TEST=1 go test -run TestLiveFFBB ./test
func TestLiveFFBB(t *testing.T) {
	if os.Getenv("FFBB_LIVE_TEST") == "" {
		t.Skip("FFBB_LIVE_TEST not set")
	}
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	client := &http.Client{Timeout: 30 * time.Second}
	manager := usecase.NewClientManager(
		tokens.NewSource(client, ffbbapi.DefaultAPIBaseURL, "", time.Minute, logger),
		ffbbapi.NewFactory(ffbbapi.FactoryConfig{UserAgent: tokens.DefaultUserAgent, Timeout: 30 * time.Second}, logger),
		httpcache.NewFactory(httpcache.NewMemoryBackend(usecase.CacheTTL), nil, true, logger),
		logger,
	)
	queries := usecase.NewQueryUseCase(manager, logger)

	saisons, err := queries.Saisons(context.Background(), true)
	require.NoError(t, err)
	assert.NotEmpty(t, saisons)

	lives, err := queries.Lives(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, lives)
}
