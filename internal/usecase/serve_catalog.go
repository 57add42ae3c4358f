package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/nickdesi/FFBB-MCP-Server/internal/domain"
)

// ServeCatalogUseCase lists the capabilities registered on the MCP server.
type ServeCatalogUseCase struct {
	repository CatalogRepository
	logger     *slog.Logger
}

// NewServeCatalogUseCase creates a new ServeCatalogUseCase.
func NewServeCatalogUseCase(repository CatalogRepository, logger *slog.Logger) *ServeCatalogUseCase {
	return &ServeCatalogUseCase{
		repository: repository,
		logger:     logger.With("usecase", "ServeCatalog"),
	}
}

// Execute retrieves all catalog entries, ordered by kind then name.
func (uc *ServeCatalogUseCase) Execute(ctx context.Context) ([]domain.CatalogEntry, error) {
	uc.logger.Debug("Listing catalog")
	entries, err := uc.repository.List(ctx)
	if err != nil {
		uc.logger.Error("Failed to list catalog from repository", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list catalog from repository: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Kind != entries[j].Kind {
			return kindOrder(entries[i].Kind) < kindOrder(entries[j].Kind)
		}
		return entries[i].Name < entries[j].Name
	})
	uc.logger.Debug("Successfully listed catalog", slog.Int("count", len(entries)))
	return entries, nil
}

func kindOrder(k domain.EntryKind) int {
	switch k {
	case domain.EntryKindTool:
		return 0
	case domain.EntryKindPrompt:
		return 1
	default:
		return 2
	}
}
