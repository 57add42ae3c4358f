// Package mcptools exposes the FFBB queries as MCP tools, prompts and
// resources on a mark3labs/mcp-go server.
package mcptools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nickdesi/FFBB-MCP-Server/internal/domain"
	"github.com/nickdesi/FFBB-MCP-Server/internal/usecase"
)

const (
	ServerName = "ffbb"

	instructions = "Ce serveur expose les données de la Fédération Française de Basketball (FFBB). " +
		"Tu peux consulter les matchs en direct, le calendrier des rencontres, " +
		"les résultats, les compétitions, les clubs et les salles de sport. " +
		"Commence par une recherche (search_*) pour trouver les IDs, " +
		"puis utilise get_* pour les détails."
)

// Queries is the read side the tools are backed by (usecase.QueryUseCase).
type Queries interface {
	Lives(ctx context.Context) ([]map[string]any, error)
	Saisons(ctx context.Context, activeOnly bool) ([]map[string]any, error)
	Competition(ctx context.Context, id int64) (map[string]any, error)
	Poule(ctx context.Context, id int64) (map[string]any, error)
	Organisme(ctx context.Context, id int64) (map[string]any, error)
	EquipesClub(ctx context.Context, organismeID int64) ([]map[string]any, error)
	Classement(ctx context.Context, pouleID int64) ([]map[string]any, error)
	CalendrierClub(ctx context.Context, clubName, categorie string) ([]map[string]any, error)
	Search(ctx context.Context, index domain.SearchIndex, name string) ([]map[string]any, error)
	MultiSearch(ctx context.Context, name string) ([]map[string]any, error)
}

// Catalog lists what has been registered.
type Catalog interface {
	Execute(ctx context.Context) ([]domain.CatalogEntry, error)
}

// NewServer creates the MCP server with the capabilities the registrar uses.
func NewServer(version string) *server.MCPServer {
	return server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithInstructions(instructions),
		server.WithRecovery(),
	)
}

// Registrar adds every FFBB capability to an MCP server and records them in
// the catalog repository.
type Registrar struct {
	server     *server.MCPServer
	queries    Queries
	repository usecase.CatalogRepository
	catalog    Catalog
	version    string
	logger     *slog.Logger

	entries []domain.CatalogEntry
}

// NewRegistrar creates a Registrar.
func NewRegistrar(
	srv *server.MCPServer,
	queries Queries,
	repository usecase.CatalogRepository,
	catalog Catalog,
	version string,
	logger *slog.Logger,
) *Registrar {
	return &Registrar{
		server:     srv,
		queries:    queries,
		repository: repository,
		catalog:    catalog,
		version:    version,
		logger:     logger.With("component", "mcptools"),
	}
}

// Register adds tools, prompts and resources to the server, then saves the
// catalog. It must be called once, before the server starts serving.
func (r *Registrar) Register(ctx context.Context) error {
	r.registerTools()
	r.registerPrompts()
	r.registerResources()

	if err := r.repository.Save(ctx, r.entries); err != nil {
		return fmt.Errorf("failed to save catalog: %w", err)
	}
	r.logger.Info("MCP capabilities registered", slog.Int("count", len(r.entries)))
	return nil
}

func (r *Registrar) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	r.server.AddTool(tool, handler)

	args := append([]string{}, tool.InputSchema.Required...)
	var optional []string
	for name := range tool.InputSchema.Properties {
		if !contains(tool.InputSchema.Required, name) {
			optional = append(optional, name)
		}
	}
	sort.Strings(optional)
	args = append(args, optional...)
	r.entries = append(r.entries, domain.CatalogEntry{
		Name:        tool.Name,
		Kind:        domain.EntryKindTool,
		Description: tool.Description,
		Arguments:   args,
	})
	r.logger.Debug("Registered tool", slog.String("tool", tool.Name))
}

func (r *Registrar) addPrompt(prompt mcp.Prompt, handler server.PromptHandlerFunc) {
	r.server.AddPrompt(prompt, handler)

	args := make([]string, 0, len(prompt.Arguments))
	for _, a := range prompt.Arguments {
		args = append(args, a.Name)
	}
	r.entries = append(r.entries, domain.CatalogEntry{
		Name:        prompt.Name,
		Kind:        domain.EntryKindPrompt,
		Description: prompt.Description,
		Arguments:   args,
	})
	r.logger.Debug("Registered prompt", slog.String("prompt", prompt.Name))
}

func (r *Registrar) addResourceEntry(uri, description string) {
	r.entries = append(r.entries, domain.CatalogEntry{
		Name:        uri,
		Kind:        domain.EntryKindResource,
		Description: description,
	})
	r.logger.Debug("Registered resource", slog.String("uri", uri))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
