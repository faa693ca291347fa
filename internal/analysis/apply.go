package analysis

import (
	"log/slog"
	"sort"

	"github.com/roach88/storyweave/internal/expr"
	"github.com/roach88/storyweave/internal/state"
)

// Skip reasons reported by Apply.
const (
	SkipUnknownEntity   = "unknown entity"
	SkipUnknownVariable = "unknown variable"
	SkipExcluded        = "excluded from analysis"
)

// Applied is a committed change from an analysis result.
type Applied struct {
	Entity    string
	Change    state.Change
	Reasoning string
}

// Skipped is a proposed change that was not applied.
type Skipped struct {
	Entity   string
	Variable string
	Reason   string
}

// Outcome collects what Apply did.
type Outcome struct {
	Applied []Applied
	Skipped []Skipped
}

// Apply commits res to the tables behind r.
//
// Entities and variables are visited in sorted order so the outcome is
// deterministic. Each entity receives a single Update call holding all of
// its accepted deltas, so clamping happens per variable. Deltas for unknown
// entities, unknown variables, or variables excluded from analysis are
// skipped and logged.
func Apply(res *Result, r expr.Resolver, logger *slog.Logger) Outcome {
	if logger == nil {
		logger = slog.Default()
	}
	var out Outcome
	if res == nil {
		return out
	}

	for _, entity := range sortedKeys(res.Changes) {
		proposed := res.Changes[entity]
		tbl, ok := r.Table(entity)
		if !ok || tbl == nil {
			for _, name := range sortedKeys(proposed) {
				out.Skipped = append(out.Skipped, Skipped{Entity: entity, Variable: name, Reason: SkipUnknownEntity})
			}
			logger.Warn("analysis entity skipped", "entity", entity, "reason", SkipUnknownEntity)
			continue
		}

		deltas := make(map[string]int, len(proposed))
		for _, name := range sortedKeys(proposed) {
			c := proposed[name]
			reason := ""
			if _, known := tbl.Value(name); !known {
				reason = SkipUnknownVariable
			} else if tbl.IsExcluded(name) {
				reason = SkipExcluded
			}
			if reason != "" {
				out.Skipped = append(out.Skipped, Skipped{Entity: entity, Variable: name, Reason: reason})
				logger.Warn("analysis change skipped", "entity", entity, "variable", name, "reason", reason)
				continue
			}
			deltas[name] = c.Value
			logger.Info("analysis change",
				"entity", entity,
				"variable", name,
				"delta", c.Value,
				"reasoning", c.Reasoning,
			)
		}
		if len(deltas) == 0 {
			continue
		}

		// Every name was checked above, so Update cannot fail here.
		changes, err := tbl.Update(deltas)
		if err != nil {
			logger.Error("analysis update failed", "entity", entity, "error", err)
			continue
		}
		for _, ch := range changes {
			out.Applied = append(out.Applied, Applied{
				Entity:    entity,
				Change:    ch,
				Reasoning: proposed[ch.Variable].Reasoning,
			})
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
