package schema

import "github.com/invopop/jsonschema"

// JSONSchema describes TableConfig documents for editors and API clients.
func JSONSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		ExpandedStruct:            true,
		AllowAdditionalProperties: true,
	}
	s := r.Reflect(&TableConfig{})
	s.Title = "TableConfig"
	s.Description = "Declarative table description: columns, layout, styling and feature flags."
	return s
}
