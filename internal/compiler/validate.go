package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/storyweave/internal/expr"
	"github.com/roach88/storyweave/internal/ir"
	"github.com/roach88/storyweave/internal/state"
)

// Validation error codes (E200-E299)
const (
	ErrBoundsViolation  = "E201" // min <= default <= max violated
	ErrInvalidRuleRange = "E202" // rule range spec does not parse
	ErrInvalidCondition = "E203" // condition string does not parse
	ErrInvalidEffect    = "E204" // effect string does not parse
	ErrUnknownTarget    = "E205" // transition targets a missing node
	ErrUnknownEntity    = "E206" // expression names an unregistered entity
	ErrUnknownVariable  = "E207" // expression names a missing variable
	ErrDuplicateName    = "E208" // duplicate variable, character, or node id
	ErrEmptyStory       = "E209" // no story nodes
)

// ValidationError represents a story validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Fatal reports whether the error prevents Build. The others are tolerated
// at run time: the expression evaluates false or the effect is skipped.
func (e ValidationError) Fatal() bool {
	switch e.Code {
	case ErrBoundsViolation, ErrInvalidRuleRange, ErrDuplicateName:
		return true
	}
	return false
}

// Validate checks a story Config. Returns all errors found (does not
// fail-fast).
func Validate(cfg *ir.Config) []ValidationError {
	var errs []ValidationError

	errs = append(errs, validateVariables(cfg.Character, "character")...)
	errs = append(errs, validateVariables(cfg.User, "user")...)

	// Entity keys: every character id plus the user.
	entities := map[string]map[string]bool{ir.UserEntity: names(cfg.User)}
	charVars := names(cfg.Character)
	for i, ch := range cfg.Story.Characters {
		if _, dup := entities[ch.ID]; dup {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("story.character_background[%d]", i),
				Message: fmt.Sprintf("duplicate entity id %q", ch.ID),
				Code:    ErrDuplicateName,
			})
			continue
		}
		entities[ch.ID] = charVars
	}

	if len(cfg.Story.Nodes) == 0 {
		errs = append(errs, ValidationError{
			Field:   "story.story_state",
			Message: "story has no nodes",
			Code:    ErrEmptyStory,
		})
	}

	nodeIDs := make(map[string]bool, len(cfg.Story.Nodes))
	for _, n := range cfg.Story.Nodes {
		if nodeIDs[n.ID] {
			errs = append(errs, ValidationError{
				Field:   "story.story_state." + n.ID,
				Message: fmt.Sprintf("duplicate node id %q", n.ID),
				Code:    ErrDuplicateName,
			})
		}
		nodeIDs[n.ID] = true
	}

	for _, n := range cfg.Story.Nodes {
		for i, t := range n.Next {
			field := fmt.Sprintf("story.story_state.%s.next_state[%d]", n.ID, i)

			if !nodeIDs[t.Target] {
				errs = append(errs, ValidationError{
					Field:   field + ".next_node",
					Message: fmt.Sprintf("target node %q not found", t.Target),
					Code:    ErrUnknownTarget,
				})
			}

			for j, c := range t.Conditions {
				cond, err := expr.ParseCondition(c)
				f := fmt.Sprintf("%s.condition[%d]", field, j)
				if err != nil {
					errs = append(errs, ValidationError{Field: f, Message: err.Error(), Code: ErrInvalidCondition})
					continue
				}
				errs = append(errs, checkRef(cond.Ref, entities, f)...)
			}

			for j, e := range t.Effects {
				eff, err := expr.ParseEffect(e)
				f := fmt.Sprintf("%s.effects[%d]", field, j)
				if err != nil {
					errs = append(errs, ValidationError{Field: f, Message: err.Error(), Code: ErrInvalidEffect})
					continue
				}
				errs = append(errs, checkRef(eff.Ref, entities, f)...)
			}
		}
	}

	return errs
}

func validateVariables(vars []ir.VariableSpec, field string) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(vars))

	for _, v := range vars {
		path := field + "." + v.Name

		if strings.TrimSpace(v.Name) == "" {
			errs = append(errs, ValidationError{Field: field, Message: "variable name is empty", Code: ErrDuplicateName})
			continue
		}
		if seen[v.Name] {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("duplicate variable %q", v.Name),
				Code:    ErrDuplicateName,
			})
		}
		seen[v.Name] = true

		if v.Min > v.Default || v.Default > v.Max {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("requires min <= default <= max, got %d <= %d <= %d", v.Min, v.Default, v.Max),
				Code:    ErrBoundsViolation,
			})
		}

		for _, r := range v.Rules {
			if _, err := state.ParseRange(r.Range); err != nil {
				errs = append(errs, ValidationError{
					Field:   path + ".rules",
					Message: err.Error(),
					Code:    ErrInvalidRuleRange,
				})
			}
		}
	}
	return errs
}

func checkRef(ref expr.Ref, entities map[string]map[string]bool, field string) []ValidationError {
	vars, ok := entities[ref.Entity]
	if !ok {
		return []ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("unknown entity %q", ref.Entity),
			Code:    ErrUnknownEntity,
		}}
	}
	if !vars[ref.Variable] {
		return []ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("entity %q has no variable %q", ref.Entity, ref.Variable),
			Code:    ErrUnknownVariable,
		}}
	}
	return nil
}

func names(vars []ir.VariableSpec) map[string]bool {
	out := make(map[string]bool, len(vars))
	for _, v := range vars {
		out[v.Name] = true
	}
	return out
}
