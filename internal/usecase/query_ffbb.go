package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nickdesi/FFBB-MCP-Server/internal/domain"
)

// QueryUseCase runs the read operations behind the MCP tools: it borrows a
// client from the provider, calls upstream and reshapes the payload.
type QueryUseCase struct {
	provider ClientProvider
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewQueryUseCase creates a new QueryUseCase.
func NewQueryUseCase(provider ClientProvider, logger *slog.Logger) *QueryUseCase {
	return &QueryUseCase{
		provider: provider,
		logger:   logger.With("usecase", "Query"),
		tracer:   otel.Tracer(tracerName),
	}
}

// run acquires a client and executes fn inside a span named after op.
func (uc *QueryUseCase) run(ctx context.Context, op string, fn func(context.Context, FFBBClient) error, attrs ...attribute.KeyValue) error {
	ctx, span := uc.tracer.Start(ctx, "ffbb.query."+op, trace.WithAttributes(attrs...))
	defer span.End()

	log := uc.logger.With(slog.String("op", op))
	log.Debug("Executing query")

	client, err := uc.provider.Acquire(ctx)
	if err != nil {
		log.Error("No FFBB client available", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := fn(ctx, client); err != nil {
		log.Warn("Upstream query failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return nil
}

func requireID(name string, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %s must be a positive integer", ErrInvalidArgument, name)
	}
	return nil
}

func requireText(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: %s must not be empty", ErrInvalidArgument, name)
	}
	return value, nil
}

// Lives returns the matches currently being played.
func (uc *QueryUseCase) Lives(ctx context.Context) ([]map[string]any, error) {
	var out []map[string]any
	err := uc.run(ctx, "get lives", func(ctx context.Context, c FFBBClient) error {
		lives, err := c.Lives(ctx)
		out = domain.SanitizeList(lives)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Saisons lists seasons, optionally only the active ones.
func (uc *QueryUseCase) Saisons(ctx context.Context, activeOnly bool) ([]map[string]any, error) {
	var out []map[string]any
	err := uc.run(ctx, "get saisons", func(ctx context.Context, c FFBBClient) error {
		saisons, err := c.Saisons(ctx, activeOnly)
		out = domain.SanitizeList(saisons)
		return err
	}, attribute.Bool("ffbb.active_only", activeOnly))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Competition returns a competition by id, or an empty object when upstream has nothing.
func (uc *QueryUseCase) Competition(ctx context.Context, id int64) (map[string]any, error) {
	return uc.object(ctx, "get competition", "competition_id", id, FFBBClient.Competition)
}

// Poule returns a poule (group) by id, with its standings and games.
func (uc *QueryUseCase) Poule(ctx context.Context, id int64) (map[string]any, error) {
	return uc.object(ctx, "get poule", "poule_id", id, FFBBClient.Poule)
}

// Organisme returns a club or organisation by id.
func (uc *QueryUseCase) Organisme(ctx context.Context, id int64) (map[string]any, error) {
	return uc.object(ctx, "get organisme", "organisme_id", id, FFBBClient.Organisme)
}

func (uc *QueryUseCase) object(
	ctx context.Context,
	op, argName string,
	id int64,
	get func(FFBBClient, context.Context, int64) (map[string]any, error),
) (map[string]any, error) {
	if err := requireID(argName, id); err != nil {
		return nil, err
	}
	var out map[string]any
	err := uc.run(ctx, op, func(ctx context.Context, c FFBBClient) error {
		obj, err := get(c, ctx, id)
		out = domain.SanitizeObject(obj)
		return err
	}, attribute.Int64("ffbb."+argName, id))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EquipesClub lists the teams a club has engaged in competitions.
func (uc *QueryUseCase) EquipesClub(ctx context.Context, organismeID int64) ([]map[string]any, error) {
	org, err := uc.Organisme(ctx, organismeID)
	if err != nil {
		return nil, err
	}
	return objectList(org["engagements"]), nil
}

// Classement returns the standings of a poule.
func (uc *QueryUseCase) Classement(ctx context.Context, pouleID int64) ([]map[string]any, error) {
	poule, err := uc.Poule(ctx, pouleID)
	if err != nil {
		return nil, err
	}
	return objectList(poule["classement"]), nil
}

// CalendrierClub searches the games of a club, optionally narrowed to a
// category such as "U13M".
func (uc *QueryUseCase) CalendrierClub(ctx context.Context, clubName, categorie string) ([]map[string]any, error) {
	club, err := requireText("club_name", clubName)
	if err != nil {
		return nil, err
	}
	query := strings.TrimSpace(club + " " + strings.TrimSpace(categorie))
	return uc.Search(ctx, domain.IndexRencontres, query)
}

// Search returns the hits of one search index.
func (uc *QueryUseCase) Search(ctx context.Context, index domain.SearchIndex, name string) ([]map[string]any, error) {
	query, err := requireText("name", name)
	if err != nil {
		return nil, err
	}
	out := []map[string]any{}
	err = uc.run(ctx, "search "+string(index), func(ctx context.Context, c FFBBClient) error {
		res, err := c.Search(ctx, index, query)
		if err != nil {
			return err
		}
		if res != nil {
			out = domain.SanitizeList(res.Hits)
		}
		return nil
	}, attribute.String("ffbb.index", string(index)), attribute.String("ffbb.query", query))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MultiSearch searches every index at once. Each hit carries the index it
// came from under domain.CategoryKey.
func (uc *QueryUseCase) MultiSearch(ctx context.Context, name string) ([]map[string]any, error) {
	query, err := requireText("name", name)
	if err != nil {
		return nil, err
	}
	out := []map[string]any{}
	err = uc.run(ctx, "multi search", func(ctx context.Context, c FFBBClient) error {
		results, err := c.MultiSearch(ctx, query)
		if err != nil {
			return err
		}
		for _, res := range results {
			for _, hit := range domain.SanitizeList(res.Hits) {
				hit[domain.CategoryKey] = string(res.Index)
				out = append(out, hit)
			}
		}
		return nil
	}, attribute.String("ffbb.query", query))
	if err != nil {
		return nil, err
	}
	uc.logger.Debug("Multi search done", slog.String("query", query), slog.Int("hits", len(out)))
	return out, nil
}

// objectList extracts the objects of a JSON array value, skipping anything else.
func objectList(v any) []map[string]any {
	out := []map[string]any{}
	items, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
