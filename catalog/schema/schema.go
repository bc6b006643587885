// Package schema publishes a JSON Schema for catalog files and lints
// catalogs against it.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaID is the $id of the generated catalog schema.
const SchemaID = "https://github.com/shareui/packit/catalog.schema.json"

// CatalogDocument describes a catalog file.
type CatalogDocument struct {
	Repometa map[string]any   `json:"repometa,omitempty" jsonschema:"description=Repository metadata passed through unchanged"`
	Plugins  []PluginDocument `json:"plugins" jsonschema:"description=Plugin entries in catalog order"`
}

// PluginDocument describes one plugin entry. Unknown fields are allowed.
type PluginDocument struct {
	ID           string      `json:"id" jsonschema:"minLength=1"`
	Name         string      `json:"name" jsonschema:"minLength=1"`
	Author       string      `json:"author,omitempty"`
	Version      string      `json:"version" jsonschema:"pattern=^[0-9]+(\\.[0-9]+)*$"`
	State        string      `json:"state,omitempty"`
	Icon         string      `json:"icon,omitempty"`
	MinVersion   string      `json:"min_version,omitempty"`
	Dependencies []string    `json:"dependencies,omitempty"`
	Link         string      `json:"link,omitempty" jsonschema:"format=uri"`
	Hash         string      `json:"hash,omitempty" jsonschema:"pattern=^(sha256:)?[0-9a-fA-F]+$"`
	About        AboutSchema `json:"about,omitempty"`
	Description  string      `json:"description,omitempty"`
}

// AboutSchema is either a string or an [english, localized] pair.
type AboutSchema struct{}

// JSONSchema implements jsonschema's custom schema hook.
func (AboutSchema) JSONSchema() *jsonschema.Schema {
	two := uint64(2)
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "string"},
			{
				Type:     "array",
				Items:    &jsonschema.Schema{Type: "string"},
				MinItems: &two,
				MaxItems: &two,
			},
		},
	}
}

// Generate returns the catalog schema as indented JSON.
func Generate() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.ExpandedStruct = true
	r.AllowAdditionalProperties = true

	s := r.Reflect(&CatalogDocument{})
	s.ID = SchemaID
	s.Title = "packit plugin catalog"

	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generated schema: %w", err)
	}
	return b, nil
}
