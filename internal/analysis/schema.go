package analysis

import (
	"github.com/roach88/storyweave/internal/expr"
)

// Target lists the variables of one entity that analysis may change.
type Target struct {
	Entity    string
	Variables []string
}

// Targets collects the analyzable variables for each entity, in the given
// entity order. Entities without a table, or with no analyzable variables,
// are omitted.
func Targets(entities []string, r expr.Resolver) []Target {
	var out []Target
	for _, id := range entities {
		tbl, ok := r.Table(id)
		if !ok || tbl == nil {
			continue
		}
		names := tbl.AnalyzableNames()
		if len(names) == 0 {
			continue
		}
		out = append(out, Target{Entity: id, Variables: names})
	}
	return out
}

// Schema returns the JSON schema for a Result restricted to targets.
//
// Every entity and variable is optional; unknown keys are rejected by
// additionalProperties so a strict collaborator cannot invent variables.
func Schema(targets []Target) map[string]any {
	entities := make(map[string]any, len(targets))
	for _, t := range targets {
		vars := make(map[string]any, len(t.Variables))
		for _, name := range t.Variables {
			vars[name] = changeSchema(t.Entity, name)
		}
		entities[t.Entity] = map[string]any{
			"type":                 "object",
			"description":          "State changes for " + t.Entity,
			"properties":           vars,
			"additionalProperties": false,
		}
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{
				"type":        "string",
				"description": "A brief summary of the conversation analysis",
			},
			"changes": map[string]any{
				"type":                 "object",
				"properties":           entities,
				"additionalProperties": false,
			},
		},
		"required":             []string{"summary", "changes"},
		"additionalProperties": false,
	}
}

func changeSchema(entity, variable string) map[string]any {
	return map[string]any{
		"type":        "object",
		"description": "Change in " + entity + " " + variable,
		"properties": map[string]any{
			"value": map[string]any{
				"type":        "integer",
				"description": "The delta to apply (positive or negative)",
			},
			"reasoning": map[string]any{
				"type":        "string",
				"description": "Why this value should change",
			},
		},
		"required":             []string{"value", "reasoning"},
		"additionalProperties": false,
	}
}
