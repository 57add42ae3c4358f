package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nickdesi/FFBB-MCP-Server/internal/domain"
	"github.com/nickdesi/FFBB-MCP-Server/internal/usecase"
)

var searchDescriptions = map[domain.SearchIndex]string{
	domain.IndexCompetitions: "Recherche des compétitions FFBB par nom (championnat, coupe, etc.). " +
		"Retourne une liste de compétitions avec leurs IDs et informations de base. " +
		"Exemples : 'Championnat', 'Nationale', 'Pro B', 'Coupe de France'.",
	domain.IndexOrganismes: "Recherche des clubs, associations ou organismes FFBB par nom ou ville. " +
		"Retourne une liste d'organismes avec leurs IDs, noms et localisations. " +
		"Exemples : 'Paris', 'Lyon', 'Basket Club', 'ASVEL'.",
	domain.IndexRencontres: "Recherche des rencontres (matchs) FFBB par nom d'équipe ou de compétition. " +
		"Retourne les matchs correspondants avec dates, équipes et résultats si disponibles. " +
		"Exemples : 'ASVEL', 'Metropolitans', 'Nationale 1'.",
	domain.IndexSalles: "Recherche des salles de basketball FFBB par nom ou ville. " +
		"Retourne les salles avec leur adresse complète et localisation. " +
		"Utile pour connaître le lieu d'un match. Exemples : 'Paris', 'Bercy', 'Astroballe'.",
	domain.IndexPratiques: "Recherche des pratiques FFBB (basket santé, micro basket, 3x3...) par nom ou ville.",
	domain.IndexTerrains:  "Recherche des terrains extérieurs (playgrounds, 3x3) par nom ou ville.",
	domain.IndexTournois:  "Recherche des tournois FFBB par nom ou ville.",
}

func (r *Registrar) registerTools() {
	r.addTool(
		mcp.NewTool("ffbb_get_lives",
			mcp.WithDescription("Récupère les matchs de basketball en cours (live). "+
				"Retourne la liste des rencontres avec les scores actuels, les équipes et le statut du match. "+
				"Utilise cet outil pour suivre les matchs en temps réel."),
		),
		r.handleLives,
	)

	r.addTool(
		mcp.NewTool("ffbb_get_saisons",
			mcp.WithDescription("Récupère la liste des saisons de basketball. "+
				"Retourne les IDs et noms des saisons, utiles pour filtrer les compétitions."),
			mcp.WithBoolean("active_only", mcp.Description("Ne retourner que les saisons actives")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			activeOnly, err := boolArg(req, "active_only")
			if err != nil {
				return r.toolError("ffbb_get_saisons", err), nil
			}
			return r.respond(ctx, "ffbb_get_saisons", func(ctx context.Context) (any, error) {
				return r.queries.Saisons(ctx, activeOnly)
			})
		},
	)

	r.addTool(
		mcp.NewTool("ffbb_get_competition",
			mcp.WithDescription("Récupère les détails complets d'une compétition FFBB à partir de son ID. "+
				"Retourne le nom, le type (championnat, coupe...), la saison, les poules et les équipes engagées. "+
				"Utilise ffbb_search_competitions pour trouver l'ID d'une compétition."),
			mcp.WithNumber("competition_id", mcp.Required(), mcp.Description("ID de la compétition")),
		),
		r.idTool("ffbb_get_competition", "competition_id", func(ctx context.Context, id int64) (any, error) {
			return r.queries.Competition(ctx, id)
		}),
	)

	r.addTool(
		mcp.NewTool("ffbb_get_poule",
			mcp.WithDescription("Récupère les détails d'une poule/groupe au sein d'une compétition. "+
				"Retourne le classement, les équipes, les matchs joués et à venir dans cette poule. "+
				"L'ID de poule est disponible dans les détails d'une compétition (ffbb_get_competition)."),
			mcp.WithNumber("poule_id", mcp.Required(), mcp.Description("ID de la poule")),
		),
		r.idTool("ffbb_get_poule", "poule_id", func(ctx context.Context, id int64) (any, error) {
			return r.queries.Poule(ctx, id)
		}),
	)

	r.addTool(
		mcp.NewTool("ffbb_get_organisme",
			mcp.WithDescription("Récupère les informations détaillées d'un club ou organisme FFBB par son ID. "+
				"Retourne le nom, l'adresse, le type d'organisme et les équipes engagées en compétition. "+
				"Utilise ffbb_search_organismes pour trouver l'ID d'un club."),
			mcp.WithNumber("organisme_id", mcp.Required(), mcp.Description("ID de l'organisme")),
		),
		r.idTool("ffbb_get_organisme", "organisme_id", func(ctx context.Context, id int64) (any, error) {
			return r.queries.Organisme(ctx, id)
		}),
	)

	r.addTool(
		mcp.NewTool("ffbb_equipes_club",
			mcp.WithDescription("Liste les équipes engagées en compétition par un club (engagements). "+
				"Chaque engagement donne la compétition, la catégorie et l'ID de poule. "+
				"Utilise ffbb_search_organismes pour trouver l'ID du club."),
			mcp.WithNumber("organisme_id", mcp.Required(), mcp.Description("ID de l'organisme")),
		),
		r.idTool("ffbb_equipes_club", "organisme_id", func(ctx context.Context, id int64) (any, error) {
			return r.queries.EquipesClub(ctx, id)
		}),
	)

	r.addTool(
		mcp.NewTool("ffbb_get_classement",
			mcp.WithDescription("Récupère le classement d'une poule : position, équipe, points, victoires et défaites. "+
				"L'ID de poule est donné par ffbb_equipes_club ou ffbb_get_competition."),
			mcp.WithNumber("poule_id", mcp.Required(), mcp.Description("ID de la poule")),
		),
		r.idTool("ffbb_get_classement", "poule_id", func(ctx context.Context, id int64) (any, error) {
			return r.queries.Classement(ctx, id)
		}),
	)

	r.addTool(
		mcp.NewTool("ffbb_calendrier_club",
			mcp.WithDescription("Recherche le calendrier (matchs passés et à venir) d'un club, "+
				"éventuellement restreint à une catégorie comme 'U11M' ou 'Seniors F'."),
			mcp.WithString("club_name", mcp.Required(), mcp.Description("Nom du club")),
			mcp.WithString("categorie", mcp.Description("Catégorie, par exemple U13M")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			club := stringArg(req, "club_name")
			categorie := stringArg(req, "categorie")
			return r.respond(ctx, "ffbb_calendrier_club", func(ctx context.Context) (any, error) {
				return r.queries.CalendrierClub(ctx, club, categorie)
			})
		},
	)

	for _, index := range domain.AllSearchIndexes {
		name := "ffbb_search_" + string(index)
		r.addTool(
			mcp.NewTool(name,
				mcp.WithDescription(searchDescriptions[index]),
				mcp.WithString("name", mcp.Required(), mcp.Description("Texte recherché")),
			),
			r.searchTool(name, index),
		)
	}

	r.addTool(
		mcp.NewTool("ffbb_multi_search",
			mcp.WithDescription("Effectue une recherche globale sur tous les types de données FFBB en une seule requête : "+
				"compétitions, clubs, matchs, salles, tournois, terrains. "+
				"Idéal pour une première exploration ou quand on ne sait pas dans quelle catégorie chercher. "+
				"Exemples : 'Lyon', 'Pro A', 'Palais des Sports'."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Texte recherché")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			name := stringArg(req, "name")
			return r.respond(ctx, "ffbb_multi_search", func(ctx context.Context) (any, error) {
				return r.queries.MultiSearch(ctx, name)
			})
		},
	)
}

// handleLives never fails: an empty list is returned when upstream is down.
func (r *Registrar) handleLives(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lives, err := r.queries.Lives(ctx)
	if err != nil {
		r.logger.Warn("Live games unavailable, returning empty list", slog.Any("error", err))
		lives = []map[string]any{}
	}
	return jsonResult(lives)
}

func (r *Registrar) idTool(tool, arg string, fn func(context.Context, int64) (any, error)) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := intArg(req, arg)
		if err != nil {
			return r.toolError(tool, err), nil
		}
		return r.respond(ctx, tool, func(ctx context.Context) (any, error) {
			return fn(ctx, id)
		})
	}
}

func (r *Registrar) searchTool(tool string, index domain.SearchIndex) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name := stringArg(req, "name")
		return r.respond(ctx, tool, func(ctx context.Context) (any, error) {
			return r.queries.Search(ctx, index, name)
		})
	}
}

// respond runs fn and renders its value as JSON text, or its error as a
// tool error the model can read.
func (r *Registrar) respond(ctx context.Context, tool string, fn func(context.Context) (any, error)) (*mcp.CallToolResult, error) {
	v, err := fn(ctx)
	if err != nil {
		return r.toolError(tool, err), nil
	}
	return jsonResult(v)
}

func (r *Registrar) toolError(tool string, err error) *mcp.CallToolResult {
	r.logger.Error("Tool call failed", slog.String("tool", tool), slog.Any("error", err))
	return mcp.NewToolResultError(ErrorMessage(err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func stringArg(req mcp.CallToolRequest, name string) string {
	v, ok := req.GetArguments()[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// intArg accepts JSON numbers and numeric strings, since models send both.
func intArg(req mcp.CallToolRequest, name string) (int64, error) {
	v, ok := req.GetArguments()[name]
	if !ok || v == nil {
		return 0, fmt.Errorf("%w: %s is required", usecase.ErrInvalidArgument, name)
	}
	switch t := v.(type) {
	case float64:
		if t != float64(int64(t)) {
			return 0, fmt.Errorf("%w: %s must be an integer", usecase.ErrInvalidArgument, name)
		}
		return int64(t), nil
	case int:
		return int64(t), nil
	case int64:
		return t, nil
	case json.Number:
		id, err := t.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer", usecase.ErrInvalidArgument, name)
		}
		return id, nil
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer", usecase.ErrInvalidArgument, name)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("%w: %s must be an integer", usecase.ErrInvalidArgument, name)
	}
}

func boolArg(req mcp.CallToolRequest, name string) (bool, error) {
	v, ok := req.GetArguments()[name]
	if !ok || v == nil {
		return false, nil
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, fmt.Errorf("%w: %s must be a boolean", usecase.ErrInvalidArgument, name)
		}
		return b, nil
	default:
		return false, fmt.Errorf("%w: %s must be a boolean", usecase.ErrInvalidArgument, name)
	}
}
