package expr

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/roach88/storyweave/internal/state"
)

// Resolver looks up the state table registered for an entity key.
type Resolver interface {
	Table(entity string) (*state.Table, bool)
}

// Tables is a map-backed Resolver.
type Tables map[string]*state.Table

// Table implements Resolver.
func (t Tables) Table(entity string) (*state.Table, bool) {
	tbl, ok := t[entity]
	return tbl, ok
}

func resolve(r Resolver, ref Ref) (*state.Table, int, error) {
	tbl, ok := r.Table(ref.Entity)
	if !ok || tbl == nil {
		return nil, 0, &UnknownEntityError{Entity: ref.Entity}
	}
	v, ok := tbl.Value(ref.Variable)
	if !ok {
		return nil, 0, fmt.Errorf("%s: %w", ref.Entity, &state.UnknownVariableError{Variable: ref.Variable})
	}
	return tbl, v, nil
}

// Evaluate tests the condition against the resolver's current values.
// Any error (parse, unknown entity, unknown variable) comes with a false result.
func (c Condition) Evaluate(r Resolver) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	_, cur, err := resolve(r, c.Ref)
	if err != nil {
		return false, err
	}

	switch c.Op {
	case OpEq:
		return cur == c.Value, nil
	case OpNe:
		return cur != c.Value, nil
	case OpGt:
		return cur > c.Value, nil
	case OpGe:
		return cur >= c.Value, nil
	case OpLt:
		return cur < c.Value, nil
	case OpLe:
		return cur <= c.Value, nil
	default:
		return false, &ParseError{Input: c.Source, Message: fmt.Sprintf("unsupported operator %q", c.Op)}
	}
}

// Apply computes the effect's new absolute value and commits it as a delta
// through the entity's table, so the result is clamped. Arithmetic saturates
// at the int limits rather than wrapping.
//
// Division uses integer division truncated toward zero. Dividing by zero
// returns a DivisionByZeroError and leaves the value unchanged.
func (e Effect) Apply(r Resolver) (state.Change, error) {
	if e.err != nil {
		return state.Change{}, e.err
	}
	tbl, cur, err := resolve(r, e.Ref)
	if err != nil {
		return state.Change{}, err
	}

	var next int
	switch e.Op {
	case OpSet:
		next = e.Value
	case OpAdd:
		next = state.SaturatingAdd(cur, e.Value)
	case OpSub:
		next = state.SaturatingSub(cur, e.Value)
	case OpMul:
		next = state.SaturatingMul(cur, e.Value)
	case OpDiv:
		if e.Value == 0 {
			return state.Change{}, &DivisionByZeroError{Input: e.Source}
		}
		if cur == math.MinInt && e.Value == -1 {
			next = math.MaxInt
			break
		}
		next = cur / e.Value
	default:
		return state.Change{}, &ParseError{Input: e.Source, Message: fmt.Sprintf("unsupported operator %q", e.Op)}
	}

	changes, err := tbl.Update(map[string]int{e.Ref.Variable: state.SaturatingSub(next, cur)})
	if err != nil {
		return state.Change{}, err
	}
	return changes[0], nil
}

// AnySatisfied evaluates a condition list with OR semantics. An empty list
// is vacuously satisfied. Evaluation stops at the first true condition;
// failing conditions count as false and are logged.
func AnySatisfied(conds []Condition, r Resolver, logger *slog.Logger) bool {
	if len(conds) == 0 {
		return true
	}
	for _, c := range conds {
		ok, err := c.Evaluate(r)
		if err != nil {
			logger.Warn("condition evaluated as false", "condition", c.Source, "error", err)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// EffectResult is the outcome of one effect in an applied list.
type EffectResult struct {
	Source string
	Entity string
	Change state.Change
	Err    error
}

// Applied reports whether the effect committed a change.
func (r EffectResult) Applied() bool {
	return r.Err == nil
}

// ApplyAll applies effects in order. Each effect is independent: a failure
// is logged and recorded, and the next effect still runs.
func ApplyAll(effects []Effect, r Resolver, logger *slog.Logger) []EffectResult {
	results := make([]EffectResult, 0, len(effects))
	for _, e := range effects {
		change, err := e.Apply(r)
		if err != nil {
			logger.Warn("effect skipped", "effect", e.Source, "error", err)
		} else {
			logger.Info("effect applied", "effect", e.Source, "entity", e.Ref.Entity, "new", change.New)
		}
		results = append(results, EffectResult{
			Source: e.Source,
			Entity: e.Ref.Entity,
			Change: change,
			Err:    err,
		})
	}
	return results
}
