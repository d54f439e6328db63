package tools

import (
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// inputSchema renders params as a JSON Schema object, the form MCP clients
// and LLM tool-calling APIs expect.
func inputSchema(params []Param) *jsonschema.Schema {
	props := orderedmap.New[string, *jsonschema.Schema]()
	var required []string
	for _, p := range params {
		prop := &jsonschema.Schema{Description: p.Description, Default: p.Default}
		if p.Type != TypeAny {
			prop.Type = string(p.Type)
		}
		props.Set(p.Name, prop)
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: jsonschema.FalseSchema,
	}
}
