package domain

import "strings"

// Credentials holds the two bearer tokens issued by the FFBB configuration
// endpoint. The pair has no expiry of its own; callers track its age.
type Credentials struct {
	// APIToken authenticates against the Directus data API (api.ffbb.app).
	APIToken string
	// SearchToken authenticates against the Meilisearch search API.
	SearchToken string
}

// Valid reports whether both tokens are present.
func (c Credentials) Valid() bool {
	return strings.TrimSpace(c.APIToken) != "" && strings.TrimSpace(c.SearchToken) != ""
}

// SearchIndex identifies one Meilisearch index exposed by the FFBB search API.
type SearchIndex string

const (
	IndexCompetitions SearchIndex = "competitions"
	IndexOrganismes   SearchIndex = "organismes"
	IndexRencontres   SearchIndex = "rencontres"
	IndexSalles       SearchIndex = "salles"
	IndexPratiques    SearchIndex = "pratiques"
	IndexTerrains     SearchIndex = "terrains"
	IndexTournois     SearchIndex = "tournois"
)

// AllSearchIndexes lists every index queried by a multi search, in display order.
var AllSearchIndexes = []SearchIndex{
	IndexCompetitions,
	IndexOrganismes,
	IndexRencontres,
	IndexSalles,
	IndexPratiques,
	IndexTerrains,
	IndexTournois,
}

// UID returns the upstream index uid (e.g. "ffbbserver_organismes").
func (i SearchIndex) UID() string {
	return "ffbbserver_" + string(i)
}

// IndexFromUID maps an upstream index uid back to a SearchIndex.
func IndexFromUID(uid string) (SearchIndex, bool) {
	name := strings.TrimPrefix(uid, "ffbbserver_")
	for _, idx := range AllSearchIndexes {
		if string(idx) == name {
			return idx, true
		}
	}
	return "", false
}

// SearchResult is the hit list returned for a single index.
type SearchResult struct {
	Index SearchIndex
	Hits  []map[string]any
}

// CategoryKey is the key added to multi search hits to tell which index they came from.
const CategoryKey = "_category"

// Sanitize converts a decoded upstream payload into a JSON-friendly value,
// recursively dropping object keys that start with an underscore. Upstream
// uses those keys for internal bookkeeping (ranking info, formatted
// snippets) that is meaningless to callers.
func Sanitize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if strings.HasPrefix(k, "_") {
				continue
			}
			out[k] = Sanitize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Sanitize(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Sanitize(item)
		}
		return out
	default:
		return v
	}
}

// SanitizeObject is Sanitize for a top-level object. A nil map yields an empty object.
func SanitizeObject(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return Sanitize(m).(map[string]any)
}

// SanitizeList is Sanitize for a list of objects. A nil list yields an empty list.
func SanitizeList(items []map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, SanitizeObject(item))
	}
	return out
}
