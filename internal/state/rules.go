package state

import (
	"fmt"
	"strconv"
	"strings"
)

// Rule maps a range spec to a description of the variable at that value.
// Rules are kept in declaration order; lookup depends on it.
type Rule struct {
	// Spec is either an exact integer ("50") or an inclusive range ("31-70").
	Spec string

	// Description is the text reported when the value falls inside Spec.
	Description string
}

// Range is an inclusive integer interval parsed from a rule spec.
// Exact-value specs parse to Low == High.
type Range struct {
	Low  int
	High int
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v int) bool {
	return r.Low <= v && v <= r.High
}

// ParseRange parses a rule spec.
//
// A spec with a separating "-" is "low-high" (inclusive, low <= high is
// assumed, not checked). A spec without one is an exact integer. The
// separator is the first "-" that follows a digit (spaces between them are
// allowed), so a leading minus sign belongs to the number: "-10" is exact,
// "-20--5" and "31 - 70" are ranges.
func ParseRange(spec string) (Range, error) {
	s := strings.TrimSpace(spec)
	if s == "" {
		return Range{}, fmt.Errorf("empty range spec")
	}

	sep := -1
	for i := 1; i < len(s); i++ {
		if s[i] != '-' {
			continue
		}
		prev := strings.TrimRight(s[:i], " ")
		if prev != "" && prev[len(prev)-1] >= '0' && prev[len(prev)-1] <= '9' {
			sep = i
			break
		}
	}

	if sep < 0 {
		v, err := strconv.Atoi(s)
		if err != nil {
			return Range{}, fmt.Errorf("invalid range spec %q: not an integer", spec)
		}
		return Range{Low: v, High: v}, nil
	}

	low, err := strconv.Atoi(strings.TrimSpace(s[:sep]))
	if err != nil {
		return Range{}, fmt.Errorf("invalid range spec %q: bad lower bound", spec)
	}
	high, err := strconv.Atoi(strings.TrimSpace(s[sep+1:]))
	if err != nil {
		return Range{}, fmt.Errorf("invalid range spec %q: bad upper bound", spec)
	}
	return Range{Low: low, High: high}, nil
}

// compiledRule pairs a rule with its parsed range.
type compiledRule struct {
	rng         Range
	description string
}

func compileRules(variable string, rules []Rule) ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		rng, err := ParseRange(r.Spec)
		if err != nil {
			return nil, &ConfigError{Variable: variable, Message: err.Error()}
		}
		out = append(out, compiledRule{rng: rng, description: r.Description})
	}
	return out, nil
}

// matchRules scans rules in order and returns the description of the last
// rule whose range contains v.
func matchRules(rules []compiledRule, v int) (string, bool) {
	var (
		desc  string
		found bool
	)
	for _, r := range rules {
		if r.rng.Contains(v) {
			desc = r.description
			found = true
		}
	}
	return desc, found
}
