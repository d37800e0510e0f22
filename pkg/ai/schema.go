package ai

import "strings"

// Schema describes the JSON shape a model reply must take. It renders to the
// Gemini OpenAPI subset (upper-case types) and to standard JSON Schema.
type Schema struct {
	Type       string
	Properties map[string]*Schema
	// Order keeps property order stable in Gemini output (propertyOrdering).
	Order    []string
	Items    *Schema
	Required []string
	Enum     []string
}

// Gemini renders the schema in the form accepted by generationConfig.responseSchema.
func (s *Schema) Gemini() map[string]any {
	return s.render(true)
}

// JSONSchema renders the schema as standard JSON Schema.
func (s *Schema) JSONSchema() map[string]any {
	return s.render(false)
}

func (s *Schema) render(gemini bool) map[string]any {
	if s == nil {
		return nil
	}
	typ := strings.ToLower(s.Type)
	if gemini {
		typ = strings.ToUpper(s.Type)
	}
	out := map[string]any{"type": typ}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			props[name] = prop.render(gemini)
		}
		out["properties"] = props
		if gemini && len(s.Order) > 0 {
			out["propertyOrdering"] = s.Order
		}
	}
	if s.Items != nil {
		out["items"] = s.Items.render(gemini)
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	return out
}
