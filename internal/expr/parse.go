package expr

import (
	"fmt"
	"regexp"
	"strconv"
)

// CompareOp is a condition operator.
type CompareOp string

// Condition operators.
const (
	OpEq CompareOp = "=="
	OpNe CompareOp = "!="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
)

// AssignOp is an effect operator.
type AssignOp string

// Effect operators.
const (
	OpSet AssignOp = "="
	OpAdd AssignOp = "+="
	OpSub AssignOp = "-="
	OpMul AssignOp = "*="
	OpDiv AssignOp = "/="
)

var compareOps = map[string]CompareOp{
	"==": OpEq, "!=": OpNe, ">": OpGt, ">=": OpGe, "<": OpLt, "<=": OpLe,
}

var assignOps = map[string]AssignOp{
	"=": OpSet, "+=": OpAdd, "-=": OpSub, "*=": OpMul, "/=": OpDiv,
}

// exprPattern matches ENTITY.VARIABLE OP VALUE. Longer operators are listed
// first so "<=" is never read as "<" followed by garbage.
var exprPattern = regexp.MustCompile(`^\s*(\w+)\.(\w+)\s*(==|!=|>=|<=|\+=|-=|\*=|/=|=|>|<)\s*([+-]?\d+)\s*$`)

// Ref addresses one variable of one entity.
type Ref struct {
	Entity   string `json:"entity"`
	Variable string `json:"variable"`
}

func (r Ref) String() string {
	return r.Entity + "." + r.Variable
}

// parsed is the grammar-level decomposition shared by both forms.
type parsed struct {
	ref   Ref
	op    string
	value int
}

func parse(input string) (parsed, error) {
	m := exprPattern.FindStringSubmatch(input)
	if m == nil {
		return parsed{}, &ParseError{Input: input, Message: "expected ENTITY.VARIABLE OP INTEGER"}
	}
	v, err := strconv.Atoi(m[4])
	if err != nil {
		return parsed{}, &ParseError{Input: input, Message: fmt.Sprintf("value out of range: %s", m[4])}
	}
	return parsed{
		ref:   Ref{Entity: m[1], Variable: m[2]},
		op:    m[3],
		value: v,
	}, nil
}

// Condition is a parsed comparison. A Condition that failed to parse keeps
// its source and error; it always evaluates to false.
type Condition struct {
	Source string    `json:"source"`
	Ref    Ref       `json:"ref"`
	Op     CompareOp `json:"op"`
	Value  int       `json:"value"`

	err error
}

// ParseCondition parses a comparison expression such as "character1.tension >= 70".
//
// The returned Condition is usable even when err is non-nil: it carries the
// source text and the parse error.
func ParseCondition(input string) (Condition, error) {
	c := Condition{Source: input}
	p, err := parse(input)
	if err != nil {
		c.err = err
		return c, err
	}
	op, ok := compareOps[p.op]
	if !ok {
		c.err = &ParseError{Input: input, Message: fmt.Sprintf("operator %q is not a comparison", p.op)}
		return c, c.err
	}
	c.Ref = p.ref
	c.Op = op
	c.Value = p.value
	return c, nil
}

// Err returns the parse error, or nil if the condition parsed.
func (c Condition) Err() error {
	return c.err
}

// Effect is a parsed assignment. An Effect that failed to parse keeps its
// source and error; applying it is a no-op.
type Effect struct {
	Source string   `json:"source"`
	Ref    Ref      `json:"ref"`
	Op     AssignOp `json:"op"`
	Value  int      `json:"value"`

	err error
}

// ParseEffect parses an assignment expression such as "user.trust += 10".
func ParseEffect(input string) (Effect, error) {
	e := Effect{Source: input}
	p, err := parse(input)
	if err != nil {
		e.err = err
		return e, err
	}
	op, ok := assignOps[p.op]
	if !ok {
		e.err = &ParseError{Input: input, Message: fmt.Sprintf("operator %q is not an assignment", p.op)}
		return e, e.err
	}
	e.Ref = p.ref
	e.Op = op
	e.Value = p.value
	return e, nil
}

// Err returns the parse error, or nil if the effect parsed.
func (e Effect) Err() error {
	return e.err
}

// ParseConditions parses every input, keeping failed entries in place.
// The returned errors are the parse failures in input order.
func ParseConditions(inputs []string) ([]Condition, []error) {
	out := make([]Condition, 0, len(inputs))
	var errs []error
	for _, in := range inputs {
		c, err := ParseCondition(in)
		if err != nil {
			errs = append(errs, err)
		}
		out = append(out, c)
	}
	return out, errs
}

// ParseEffects parses every input, keeping failed entries in place.
func ParseEffects(inputs []string) ([]Effect, []error) {
	out := make([]Effect, 0, len(inputs))
	var errs []error
	for _, in := range inputs {
		e, err := ParseEffect(in)
		if err != nil {
			errs = append(errs, err)
		}
		out = append(out, e)
	}
	return out, errs
}
