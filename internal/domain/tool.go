package domain

// EntryKind tells what an MCP catalog entry is.
type EntryKind string

const (
	EntryKindTool     EntryKind = "tool"
	EntryKindPrompt   EntryKind = "prompt"
	EntryKindResource EntryKind = "resource"
)

// CatalogEntry describes one capability the server exposes over MCP
// (a tool, a prompt or a resource). The catalog is what the server/info
// resource and the admin endpoint list.
type CatalogEntry struct {
	// Name is the tool or prompt name, or the resource URI (template).
	// It MUST be unique within a kind.
	Name string `json:"name"`

	// Kind is the MCP primitive the entry is registered as.
	Kind EntryKind `json:"kind"`

	// Description is the natural language explanation shown to the model.
	Description string `json:"description"`

	// Arguments lists the input parameter names, required ones first.
	Arguments []string `json:"arguments,omitempty"`
}
