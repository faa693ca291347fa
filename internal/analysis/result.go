// Package analysis defines the fixed contract for conversation analysis
// results and applies them to state tables.
//
// A Result carries one signed delta per (entity, variable) with a short
// reasoning. The set of keys a collaborator may fill is described by the
// JSON schema returned from Schema; Apply ignores anything outside it.
package analysis

import (
	"encoding/json"
	"fmt"
)

// Change is one proposed delta with its justification.
type Change struct {
	Value     int    `json:"value"`
	Reasoning string `json:"reasoning"`
}

// Result is the decoded analysis of one conversation turn.
type Result struct {
	Summary string                       `json:"summary"`
	Changes map[string]map[string]Change `json:"changes"`
}

// Decode parses a JSON analysis result.
//
// Missing "changes" decodes to an empty map. A null entry for a variable is
// treated as no change and dropped.
func Decode(data []byte) (*Result, error) {
	var raw struct {
		Summary string                        `json:"summary"`
		Changes map[string]map[string]*Change `json:"changes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}

	res := &Result{
		Summary: raw.Summary,
		Changes: make(map[string]map[string]Change, len(raw.Changes)),
	}
	for entity, vars := range raw.Changes {
		out := make(map[string]Change, len(vars))
		for name, c := range vars {
			if c == nil {
				continue
			}
			out[name] = *c
		}
		res.Changes[entity] = out
	}
	return res, nil
}
