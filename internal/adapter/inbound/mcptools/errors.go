package mcptools

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/nickdesi/FFBB-MCP-Server/internal/usecase"
)

// ErrorMessage turns a query error into the French message shown to the model.
func ErrorMessage(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, usecase.ErrInvalidArgument):
		return err.Error()
	case errors.Is(err, usecase.ErrNotFound):
		return "Ressource introuvable. Vérifie l'identifiant ou utilise une recherche (ffbb_search_*) pour le retrouver."
	case errors.Is(err, usecase.ErrForbidden):
		return "Accès refusé par l'API FFBB. Les jetons d'accès ont peut-être expiré, réessaie dans un instant."
	case errors.Is(err, usecase.ErrRateLimited):
		return "Limite de requêtes atteinte sur l'API FFBB. Patiente quelques secondes avant de réessayer."
	case errors.Is(err, usecase.ErrClientConstruction):
		return "Service FFBB temporairement indisponible. Réessaie dans quelques instants."
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "Délai d'attente dépassé en interrogeant l'API FFBB. Réessaie plus tard."
	default:
		return fmt.Sprintf("%s: %s", errorType(err), err.Error())
	}
}

// errorType names the innermost error type, without package or pointer.
func errorType(err error) string {
	root := err
	for {
		next := errors.Unwrap(root)
		if next == nil {
			break
		}
		root = next
	}
	name := strings.TrimPrefix(fmt.Sprintf("%T", root), "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if name == "errorString" || name == "wrapError" {
		return "Error"
	}
	return name
}
