package state

import (
	"fmt"
	"log/slog"
)

// Definition describes one bounded variable. Definitions are immutable once
// a table is built from them.
type Definition struct {
	Name        string
	Description string
	Min         int
	Max         int
	Default     int

	// ExcludedFromAnalysis marks variables that only move through explicit
	// story effects, never through deltas proposed by conversation analysis.
	ExcludedFromAnalysis bool

	// Rules are scanned in order by RuleDescriptions.
	Rules []Rule
}

// Change records one committed update of a variable.
type Change struct {
	Variable string `json:"variable"`
	Old      int    `json:"old"`
	New      int    `json:"new"`
}

// Option configures a Table.
type Option func(*Table)

// WithLogger sets the logger used for change diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(t *Table) {
		t.logger = l
	}
}

// Table is the bounded variable set for one entity.
type Table struct {
	order    []string
	defs     map[string]Definition
	rules    map[string][]compiledRule
	values   map[string]int
	excluded map[string]bool
	logger   *slog.Logger
}

// NewTable builds a table with every variable at its default.
//
// Returns a ConfigError if any definition has Min > Default, Default > Max,
// an empty or duplicate name, or an unparsable rule spec.
func NewTable(defs []Definition, opts ...Option) (*Table, error) {
	t := &Table{
		order:    make([]string, 0, len(defs)),
		defs:     make(map[string]Definition, len(defs)),
		rules:    make(map[string][]compiledRule, len(defs)),
		values:   make(map[string]int, len(defs)),
		excluded: make(map[string]bool),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}

	for _, d := range defs {
		if d.Name == "" {
			return nil, &ConfigError{Message: "variable name is required"}
		}
		if _, dup := t.defs[d.Name]; dup {
			return nil, &ConfigError{Variable: d.Name, Message: "duplicate variable"}
		}
		if d.Min > d.Default || d.Default > d.Max {
			return nil, &ConfigError{
				Variable: d.Name,
				Message:  fmt.Sprintf("bounds violated: min=%d default=%d max=%d", d.Min, d.Default, d.Max),
			}
		}
		compiled, err := compileRules(d.Name, d.Rules)
		if err != nil {
			return nil, err
		}

		d.Rules = append([]Rule(nil), d.Rules...)
		t.order = append(t.order, d.Name)
		t.defs[d.Name] = d
		t.rules[d.Name] = compiled
		t.values[d.Name] = d.Default
		if d.ExcludedFromAnalysis {
			t.excluded[d.Name] = true
		}
	}

	return t, nil
}

// Update applies signed deltas, clamping each result to the variable's
// bounds.
//
// All names are checked first; if any is unknown, an UnknownVariableError is
// returned and no value changes. Otherwise every entry is clamped and written
// independently. Changes are returned in definition order, including entries
// whose value did not move.
func (t *Table) Update(deltas map[string]int) ([]Change, error) {
	for name := range deltas {
		if _, ok := t.defs[name]; !ok {
			return nil, &UnknownVariableError{Variable: name}
		}
	}

	changes := make([]Change, 0, len(deltas))
	for _, name := range t.order {
		delta, ok := deltas[name]
		if !ok {
			continue
		}
		def := t.defs[name]
		old := t.values[name]
		next := clamp(SaturatingAdd(old, delta), def.Min, def.Max)
		t.values[name] = next

		t.logger.Debug("state updated",
			"variable", name,
			"old", old,
			"new", next,
		)
		changes = append(changes, Change{Variable: name, Old: old, New: next})
	}
	return changes, nil
}

// Value returns the current value of a variable.
func (t *Table) Value(name string) (int, bool) {
	v, ok := t.values[name]
	return v, ok
}

// Values returns a copy of all current values.
func (t *Table) Values() map[string]int {
	out := make(map[string]int, len(t.values))
	for k, v := range t.values {
		out[k] = v
	}
	return out
}

// Names returns the variable names in definition order.
func (t *Table) Names() []string {
	return append([]string(nil), t.order...)
}

// Definition returns the definition of a variable.
func (t *Table) Definition(name string) (Definition, bool) {
	d, ok := t.defs[name]
	return d, ok
}

// RuleDescriptions returns, for each variable with at least one matching
// rule, the description of the last rule (in declaration order) whose range
// contains the current value.
func (t *Table) RuleDescriptions() map[string]string {
	out := make(map[string]string)
	for _, name := range t.order {
		if desc, ok := matchRules(t.rules[name], t.values[name]); ok {
			out[name] = desc
		}
	}
	return out
}

// IsExcluded reports whether a variable is excluded from analysis deltas.
func (t *Table) IsExcluded(name string) bool {
	return t.excluded[name]
}

// ExcludedNames returns the variables excluded from analysis, in definition order.
func (t *Table) ExcludedNames() []string {
	var out []string
	for _, name := range t.order {
		if t.excluded[name] {
			out = append(out, name)
		}
	}
	return out
}

// AnalyzableNames returns the variables that may receive analysis deltas.
func (t *Table) AnalyzableNames() []string {
	out := make([]string, 0, len(t.order))
	for _, name := range t.order {
		if !t.excluded[name] {
			out = append(out, name)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
