package memrepo

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nickdesi/FFBB-MCP-Server/internal/domain"
	"github.com/nickdesi/FFBB-MCP-Server/internal/usecase"
)

type entryKey struct {
	kind domain.EntryKind
	name string
}

// InMemoryCatalogRepository provides an in-memory implementation of the CatalogRepository.
// The catalog is rebuilt at every start from the registrations, so nothing needs persisting.
type InMemoryCatalogRepository struct {
	mu      sync.RWMutex
	entries map[entryKey]domain.CatalogEntry
	logger  *slog.Logger
}

// NewInMemoryCatalogRepository creates a new in-memory repository.
func NewInMemoryCatalogRepository(logger *slog.Logger) *InMemoryCatalogRepository {
	return &InMemoryCatalogRepository{
		entries: make(map[entryKey]domain.CatalogEntry),
		logger:  logger.With("component", "mem_repo"),
	}
}

// Save stores the given entries. Entries without a name or kind are rejected
// as a whole, leaving the repository unchanged.
func (r *InMemoryCatalogRepository) Save(ctx context.Context, entries []domain.CatalogEntry) error {
	for i, e := range entries {
		if e.Name == "" || e.Kind == "" {
			r.logger.Error("Failed to save catalog entries", slog.Int("index", i), slog.String("reason", "missing name or kind"))
			return fmt.Errorf("save failed: entry %d has no name or kind", i)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		r.entries[entryKey{kind: e.Kind, name: e.Name}] = e
	}
	r.logger.Debug("Saved catalog entries", slog.Int("count", len(entries)), slog.Int("total_entries", len(r.entries)))
	return nil
}

// List returns all entries currently stored in memory.
func (r *InMemoryCatalogRepository) List(ctx context.Context) ([]domain.CatalogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]domain.CatalogEntry, 0, len(r.entries))
	for _, e := range r.entries {
		list = append(list, e)
	}
	return list, nil
}

// FindByName retrieves an entry by kind and name.
func (r *InMemoryCatalogRepository) FindByName(ctx context.Context, kind domain.EntryKind, name string) (*domain.CatalogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[entryKey{kind: kind, name: name}]
	if !ok {
		r.logger.Warn("Catalog entry not found", slog.String("kind", string(kind)), slog.String("name", name))
		return nil, usecase.ErrEntryNotFound
	}
	return &e, nil
}
