package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/storyweave/internal/ir"
)

// CompileStory parses a CUE value into a story Config.
// Uses the CUE Go API directly (not a CLI subprocess).
//
// The value is the file root:
//
//	character: tension: {min: 0, max: 100, default: 40, rules: {"0-30": "calm"}}
//	user: trust: {min: -100, max: 100, default: 0}
//	story: {
//		story_background: "..."
//		character_background: character1: {name: "Grace", background: "..."}
//		story_state: arrival: {name: "Arrival", next_state: [{next_node: "dinner"}]}
//	}
//
// Field order in CUE structs is declaration order, which keeps rule order and
// node load order.
func CompileStory(v cue.Value) (*ir.Config, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	cfg := &ir.Config{}
	var err error

	if cfg.Character, err = parseVariables(v.LookupPath(cue.ParsePath("character")), "character"); err != nil {
		return nil, err
	}
	if cfg.User, err = parseVariables(v.LookupPath(cue.ParsePath("user")), "user"); err != nil {
		return nil, err
	}

	storyVal := v.LookupPath(cue.ParsePath("story"))
	if !storyVal.Exists() {
		return nil, &CompileError{Field: "story", Message: "story is required", Pos: v.Pos()}
	}
	if cfg.Story.Background, err = optionalString(storyVal, "story_background"); err != nil {
		return nil, err
	}
	if cfg.Story.Characters, err = parseCharacters(storyVal.LookupPath(cue.ParsePath("character_background"))); err != nil {
		return nil, err
	}
	if cfg.Story.Nodes, err = parseNodes(storyVal.LookupPath(cue.ParsePath("story_state"))); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseVariables reads a struct of variable definitions in declaration order.
// A missing struct is an empty variable set.
func parseVariables(v cue.Value, field string) ([]ir.VariableSpec, error) {
	if !v.Exists() {
		return nil, nil
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var vars []ir.VariableSpec
	for iter.Next() {
		name := iter.Label()
		val := iter.Value()
		path := field + "." + name

		spec := ir.VariableSpec{Name: name}
		if spec.Description, err = optionalString(val, "description"); err != nil {
			return nil, err
		}
		if spec.Min, err = requiredInt(val, "min", path); err != nil {
			return nil, err
		}
		if spec.Max, err = requiredInt(val, "max", path); err != nil {
			return nil, err
		}
		if spec.Default, err = requiredInt(val, "default", path); err != nil {
			return nil, err
		}

		if na := val.LookupPath(cue.ParsePath("no_analyse")); na.Exists() {
			b, err := na.Bool()
			if err != nil {
				return nil, &CompileError{Field: path + ".no_analyse", Message: "must be a bool", Pos: na.Pos()}
			}
			spec.NoAnalyse = b
		}

		if spec.Rules, err = parseRules(val.LookupPath(cue.ParsePath("rules")), path); err != nil {
			return nil, err
		}

		vars = append(vars, spec)
	}

	return vars, nil
}

// parseRules reads the range-spec → description mapping in declaration order.
// CUE labels like "0-30" must be quoted in the source.
func parseRules(v cue.Value, path string) ([]ir.RuleSpec, error) {
	if !v.Exists() {
		return nil, nil
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var rules []ir.RuleSpec
	for iter.Next() {
		desc, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   path + ".rules",
				Message: fmt.Sprintf("rule %q must map to a string", iter.Label()),
				Pos:     iter.Value().Pos(),
			}
		}
		rules = append(rules, ir.RuleSpec{Range: iter.Label(), Description: desc})
	}
	return rules, nil
}

func parseCharacters(v cue.Value) ([]ir.CharacterSpec, error) {
	if !v.Exists() {
		return nil, nil
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var chars []ir.CharacterSpec
	for iter.Next() {
		ch := ir.CharacterSpec{ID: iter.Label()}
		if ch.Name, err = optionalString(iter.Value(), "name"); err != nil {
			return nil, err
		}
		if ch.Background, err = optionalString(iter.Value(), "background"); err != nil {
			return nil, err
		}
		chars = append(chars, ch)
	}
	return chars, nil
}

func parseNodes(v cue.Value) ([]ir.NodeSpec, error) {
	if !v.Exists() {
		return nil, nil
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var nodes []ir.NodeSpec
	for iter.Next() {
		val := iter.Value()
		node := ir.NodeSpec{ID: iter.Label()}
		if node.Name, err = optionalString(val, "name"); err != nil {
			return nil, err
		}
		if node.Description, err = optionalString(val, "description"); err != nil {
			return nil, err
		}
		if node.Next, err = parseTransitions(val.LookupPath(cue.ParsePath("next_state")), "story_state."+node.ID); err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func parseTransitions(v cue.Value, path string) ([]ir.TransitionSpec, error) {
	if !v.Exists() {
		return nil, nil
	}

	list, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: path + ".next_state", Message: "must be a list", Pos: v.Pos()}
	}

	var out []ir.TransitionSpec
	for i := 0; list.Next(); i++ {
		val := list.Value()
		field := fmt.Sprintf("%s.next_state[%d]", path, i)

		target := val.LookupPath(cue.ParsePath("next_node"))
		if !target.Exists() {
			return nil, &CompileError{Field: field + ".next_node", Message: "next_node is required", Pos: val.Pos()}
		}
		t := ir.TransitionSpec{}
		if t.Target, err = target.String(); err != nil {
			return nil, formatCUEError(err)
		}
		if t.Conditions, err = stringList(val.LookupPath(cue.ParsePath("condition")), field+".condition"); err != nil {
			return nil, err
		}
		if t.Effects, err = stringList(val.LookupPath(cue.ParsePath("effects")), field+".effects"); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	if !v.Exists() {
		return nil, nil
	}
	var out []string
	if err := v.Decode(&out); err != nil {
		return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: v.Pos()}
	}
	return out, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", &CompileError{Field: field, Message: "must be a string", Pos: f.Pos()}
	}
	return s, nil
}

// requiredInt reads an integer field. Floats are rejected.
func requiredInt(v cue.Value, field, path string) (int, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return 0, &CompileError{Field: path + "." + field, Message: field + " is required", Pos: v.Pos()}
	}
	if f.IncompleteKind() != cue.IntKind {
		return 0, &CompileError{
			Field:   path + "." + field,
			Message: fmt.Sprintf("must be an integer, got %v", f.IncompleteKind()),
			Pos:     f.Pos(),
		}
	}
	n, err := f.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(n), nil
}

// CompileError represents a compilation error with source position.
// CUE sources set Pos; YAML sources set Line.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
	Line    int
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
