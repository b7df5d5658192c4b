package bridge

import "github.com/nimeshgurung/okrbuilder/internal/agent/ports"

// objectiveProperty is the JSON schema for the objective argument shared by
// the add and update tools.
func objectiveProperty() ports.Property {
	return ports.Property{
		Type:        "object",
		Description: "The objective object.",
		Properties: map[string]ports.Property{
			"id": {
				Type:        "string",
				Description: "The objective ID. Omit when adding; required when updating.",
			},
			"summary": {
				Type:        "string",
				Description: "The objective summary.",
			},
			"description": {
				Type:        "string",
				Description: "Optional free-text description of the objective.",
			},
			"quarter": {
				Type:        "string",
				Description: "Grouping period label, e.g. \"Q1 2026\". Defaults to the session's current quarter.",
			},
			"keyResults": {
				Type:        "array",
				Description: "The key results of the objective.",
				Items: &ports.Property{
					Type: "object",
					Properties: map[string]ports.Property{
						"id":       {Type: "string", Description: "Key result ID. Omit for new key results."},
						"summary":  {Type: "string", Description: "The key result summary."},
						"progress": {Type: "number", Description: "Current value achieved."},
						"target":   {Type: "number", Description: "Value representing 100%."},
						"units":    {Type: "string", Description: "Unit label, e.g. \"%\", \"customers\", \"USD\"."},
					},
				},
			},
		},
	}
}
