package llm

import "github.com/logman117/ai-manufacturing-vision/constants"

// BuildPartJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. We send it to the model as an output constraint and use it
// locally to validate the sanitized payload.
func BuildPartJSONSchema() map[string]any {
	props := map[string]any{
		"complexity_level": map[string]any{
			"type": "string",
			"enum": []string{"Simple", "Moderate", "Complex", "Very Complex", "Unknown"},
		},
		"part_type": map[string]any{"type": "string"},
		"part_name": map[string]any{"type": "string"},
		"material":  map[string]any{"type": "string"},
		"notes":     map[string]any{"type": "string"},
	}
	required := []string{"complexity_level", "part_type", "material"}
	for _, key := range constants.ProcessKeys {
		props[key] = flagProp()
		required = append(required, key)
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

func flagProp() map[string]any {
	return map[string]any{
		"type":    "integer",
		"minimum": 0,
		"maximum": 1,
	}
}
