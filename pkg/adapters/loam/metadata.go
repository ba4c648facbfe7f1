package loam

// NodeMetadata is the frontmatter of one file in a template library.
// Each file describes a single node; files sharing a directory form one
// template named after that directory. A file whose kind is "template"
// carries the template's description and tags instead of a node.
type NodeMetadata struct {
	ID   string `json:"id" mapstructure:"id"`
	Kind string `json:"kind" mapstructure:"kind"`

	// Template overrides the directory-derived template name. Required for
	// files at the library root.
	Template string `json:"template" mapstructure:"template"`

	// Parent is the id of the node this one hangs off. Questions without
	// a parent are attached to the start node.
	Parent string `json:"parent" mapstructure:"parent"`

	// Order sorts siblings under the same parent. Ties fall back to the id.
	Order any `json:"order" mapstructure:"order"`

	// Items lists checklist items, either as plain strings or as
	// {text, required} maps.
	Items []any `json:"items" mapstructure:"items"`

	Position map[string]any `json:"position" mapstructure:"position"`

	// Template-only fields.
	Description string   `json:"description" mapstructure:"description"`
	Tags        []string `json:"tags" mapstructure:"tags"`
}

// KindTemplate marks a file that describes its template rather than a node.
const KindTemplate = "template"
