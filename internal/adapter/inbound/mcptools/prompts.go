package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nickdesi/FFBB-MCP-Server/internal/usecase"
)

// promptText builds the instruction text from the prompt arguments.
type promptText func(args map[string]string) (string, error)

func (r *Registrar) registerPrompts() {
	r.prompt(
		mcp.NewPrompt("analyser_match",
			mcp.WithPromptDescription("Analyse détaillée d'un match FFBB"),
			mcp.WithArgument("match_id", mcp.ArgumentDescription("ID ou nom du match"), mcp.RequiredArgument()),
		),
		func(args map[string]string) (string, error) {
			id, err := requiredArg(args, "match_id")
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Analyse le match %s.\n"+
				"1. Utilise ffbb_search_rencontres pour retrouver la rencontre et ses équipes.\n"+
				"2. Récupère la poule avec ffbb_get_poule pour situer les deux équipes au classement.\n"+
				"3. Résume le score, la dynamique des équipes et les enjeux du match.", id), nil
		},
	)

	r.prompt(
		mcp.NewPrompt("trouver_club",
			mcp.WithPromptDescription("Trouver un club et ses informations"),
			mcp.WithArgument("club_name", mcp.ArgumentDescription("Nom du club"), mcp.RequiredArgument()),
			mcp.WithArgument("department", mcp.ArgumentDescription("Département ou ville pour affiner")),
		),
		func(args map[string]string) (string, error) {
			club, err := requiredArg(args, "club_name")
			if err != nil {
				return "", err
			}
			where := ""
			if dept := strings.TrimSpace(args["department"]); dept != "" {
				where = fmt.Sprintf(" (secteur : %s)", dept)
			}
			return fmt.Sprintf("Trouve le club %s%s.\n"+
				"1. Cherche-le avec ffbb_search_organismes.\n"+
				"2. Pour le bon résultat, appelle ffbb_get_organisme avec son ID.\n"+
				"3. Présente l'adresse, les contacts et les équipes engagées.", club, where), nil
		},
	)

	r.prompt(
		mcp.NewPrompt("prochain_match",
			mcp.WithPromptDescription("Trouver le prochain match d'un club"),
			mcp.WithArgument("club_name", mcp.ArgumentDescription("Nom du club"), mcp.RequiredArgument()),
			mcp.WithArgument("categorie", mcp.ArgumentDescription("Catégorie, par exemple U11M")),
		),
		func(args map[string]string) (string, error) {
			club, err := requiredArg(args, "club_name")
			if err != nil {
				return "", err
			}
			team := club
			if cat := strings.TrimSpace(args["categorie"]); cat != "" {
				team = club + " en " + cat
			}
			return fmt.Sprintf("Quel est le prochain match de %s ?\n"+
				"1. Appelle ffbb_calendrier_club avec le nom du club et la catégorie si elle est connue.\n"+
				"2. Garde la première rencontre dont la date est dans le futur.\n"+
				"3. Donne la date, l'heure, l'adversaire et la salle (ffbb_search_salles si besoin).", team), nil
		},
	)

	r.prompt(
		mcp.NewPrompt("classement_poule",
			mcp.WithPromptDescription("Afficher le classement d'une compétition"),
			mcp.WithArgument("competition_name", mcp.ArgumentDescription("Nom de la compétition"), mcp.RequiredArgument()),
		),
		func(args map[string]string) (string, error) {
			name, err := requiredArg(args, "competition_name")
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Affiche le classement de %s.\n"+
				"1. Trouve la compétition avec ffbb_search_competitions.\n"+
				"2. Récupère ses poules avec ffbb_get_competition.\n"+
				"3. Pour chaque poule, appelle ffbb_get_classement et présente un tableau position, équipe, points.", name), nil
		},
	)

	r.prompt(
		mcp.NewPrompt("bilan_equipe",
			mcp.WithPromptDescription("Bilan complet de la saison d'une équipe"),
			mcp.WithArgument("club_name", mcp.ArgumentDescription("Nom du club"), mcp.RequiredArgument()),
			mcp.WithArgument("categorie", mcp.ArgumentDescription("Catégorie, par exemple U11M"), mcp.RequiredArgument()),
		),
		func(args map[string]string) (string, error) {
			club, err := requiredArg(args, "club_name")
			if err != nil {
				return "", err
			}
			cat, err := requiredArg(args, "categorie")
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Fais le bilan de la saison de %s en %s.\n"+
				"1. Trouve le club avec ffbb_search_organismes puis liste ses équipes avec ffbb_equipes_club.\n"+
				"2. Pour chaque engagement de la catégorie %s (toutes phases confondues), appelle ffbb_get_classement.\n"+
				"3. Cumule victoires, défaites, points marqués et encaissés sur toutes les phases.\n"+
				"4. Termine par le classement actuel et une courte analyse.", club, cat, cat), nil
		},
	)
}

func (r *Registrar) prompt(p mcp.Prompt, text promptText) {
	r.addPrompt(p, func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		body, err := text(req.Params.Arguments)
		if err != nil {
			return nil, err
		}
		return mcp.NewGetPromptResult(p.Description, []mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(body)),
		}), nil
	})
}

func requiredArg(args map[string]string, name string) (string, error) {
	v := strings.TrimSpace(args[name])
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", usecase.ErrInvalidArgument, name)
	}
	return v, nil
}
