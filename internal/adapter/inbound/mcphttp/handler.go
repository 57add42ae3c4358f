package mcphttp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nickdesi/FFBB-MCP-Server/internal/domain"
)

// ClientResetter drops the cached upstream client (usecase.ClientManager).
type ClientResetter interface {
	Reset()
	Generation() uint64
}

// CredentialInvalidator forgets cached upstream tokens (tokens.Source).
type CredentialInvalidator interface {
	Invalidate()
}

// CatalogLister lists registered capabilities (usecase.ServeCatalogUseCase).
type CatalogLister interface {
	Execute(ctx context.Context) ([]domain.CatalogEntry, error)
}

// Handlers struct holds dependencies for the HTTP handlers.
type Handlers struct {
	clients     ClientResetter
	credentials CredentialInvalidator
	catalog     CatalogLister
	logger      *slog.Logger
}

// NewHandlers creates a new Handlers struct.
func NewHandlers(clients ClientResetter, credentials CredentialInvalidator, catalog CatalogLister, logger *slog.Logger) *Handlers {
	return &Handlers{
		clients:     clients,
		credentials: credentials,
		catalog:     catalog,
		logger:      logger.With("component", "mcphttp_handler"),
	}
}

// RegisterAdminRoutes sets up the HTTP routes for admin endpoints.
func (h *Handlers) RegisterAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("POST /admin/reset", h.handleReset)
	mux.HandleFunc("GET /admin/tools", h.handleListCatalog)
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

// handleReset implements POST /admin/reset. Cached tokens are dropped too,
// so the rebuilt client runs on a freshly issued pair.
func (h *Handlers) handleReset(w http.ResponseWriter, r *http.Request) {
	previous := h.clients.Generation()
	h.credentials.Invalidate()
	h.clients.Reset()
	h.logger.Info("FFBB client reset requested", slog.Uint64("previous_generation", previous))

	w.WriteHeader(http.StatusAccepted) // the new client is built on the next tool call
	fmt.Fprintf(w, "Client reset accepted (previous generation: %d)\n", previous)
}

// handleListCatalog implements GET /admin/tools
func (h *Handlers) handleListCatalog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.catalog.Execute(r.Context())
	if err != nil {
		h.logger.Error("Failed to list catalog", slog.Any("error", err))
		http.Error(w, fmt.Sprintf("Failed to list catalog: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"entries": entries}); err != nil {
		h.logger.Warn("Failed to write catalog response", slog.Any("error", err))
	}
}
