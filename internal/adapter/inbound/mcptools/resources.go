package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nickdesi/FFBB-MCP-Server/internal/domain"
	"github.com/nickdesi/FFBB-MCP-Server/internal/usecase"
)

const (
	InfoURI = "ffbb://server/info"

	mimeJSON = "application/json"
	mimeText = "text/plain"
)

type objectResource struct {
	prefix      string
	name        string
	description string
	get         func(Queries, context.Context, int64) (map[string]any, error)
}

var objectResources = []objectResource{
	{"ffbb://competitions/", "competition", "Détails d'une compétition FFBB", Queries.Competition},
	{"ffbb://poules/", "poule", "Détails d'une poule : classement et rencontres", Queries.Poule},
	{"ffbb://organismes/", "organisme", "Détails d'un club ou organisme FFBB", Queries.Organisme},
}

func (r *Registrar) registerResources() {
	infoDesc := "Version du serveur et liste des outils et prompts disponibles"
	r.server.AddResource(
		mcp.NewResource(InfoURI, "server_info",
			mcp.WithResourceDescription(infoDesc),
			mcp.WithMIMEType(mimeText),
		),
		r.handleInfo,
	)
	r.addResourceEntry(InfoURI, infoDesc)

	for _, res := range objectResources {
		template := res.prefix + "{id}"
		r.server.AddResourceTemplate(
			mcp.NewResourceTemplate(template, res.name,
				mcp.WithTemplateDescription(res.description),
				mcp.WithTemplateMIMEType(mimeJSON),
			),
			func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
				return r.readObject(ctx, req.Params.URI, res)
			},
		)
		r.addResourceEntry(template, res.description)
	}
}

func (r *Registrar) readObject(ctx context.Context, uri string, res objectResource) ([]mcp.ResourceContents, error) {
	raw := strings.TrimPrefix(uri, res.prefix)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || raw == uri {
		return nil, fmt.Errorf("%w: invalid %s id in %s", usecase.ErrInvalidArgument, res.name, uri)
	}

	obj, err := res.get(r.queries, ctx, id)
	if err != nil {
		return nil, errors.New(ErrorMessage(err))
	}
	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", res.name, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: mimeJSON, Text: string(data)},
	}, nil
}

func (r *Registrar) handleInfo(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	entries, err := r.catalog.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: InfoURI, MIMEType: mimeText, Text: renderInfo(r.version, entries)},
	}, nil
}

func renderInfo(version string, entries []domain.CatalogEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Serveur MCP FFBB %s\n", version)

	sections := []struct {
		kind  domain.EntryKind
		title string
	}{
		{domain.EntryKindTool, "Outils"},
		{domain.EntryKindPrompt, "Prompts"},
		{domain.EntryKindResource, "Ressources"},
	}
	for _, s := range sections {
		fmt.Fprintf(&b, "\n%s :\n", s.title)
		for _, e := range entries {
			if e.Kind != s.kind {
				continue
			}
			if len(e.Arguments) > 0 {
				fmt.Fprintf(&b, "- %s(%s) : %s\n", e.Name, strings.Join(e.Arguments, ", "), e.Description)
			} else {
				fmt.Fprintf(&b, "- %s : %s\n", e.Name, e.Description)
			}
		}
	}
	return b.String()
}
