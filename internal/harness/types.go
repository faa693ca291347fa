package harness

import (
	"fmt"
)

// Trace event types.
const (
	EventStep   = "step"
	EventChange = "change"
)

// TraceEvent is one journaled entry of a scenario run: either a story step
// (start or advance) or a committed variable change.
type TraceEvent struct {
	Seq  int64  `json:"seq"`
	Type string `json:"type"`

	// Step fields.
	Kind    string            `json:"kind,omitempty"`
	From    string            `json:"from,omitempty"`
	To      string            `json:"to,omitempty"`
	Outcome string            `json:"outcome,omitempty"`
	Detail  map[string]string `json:"detail,omitempty"`

	// Change fields.
	Entity   string `json:"entity,omitempty"`
	Variable string `json:"variable,omitempty"`
	Old      int    `json:"old"`
	New      int    `json:"new"`
	Source   string `json:"source,omitempty"`
}

// String renders the event on one line for failure output.
func (e TraceEvent) String() string {
	if e.Type == EventChange {
		return fmt.Sprintf("[%d] %s.%s %d -> %d (%s)", e.Seq, e.Entity, e.Variable, e.Old, e.New, e.Source)
	}
	if e.Kind == "start" {
		return fmt.Sprintf("[%d] start %s", e.Seq, e.To)
	}
	return fmt.Sprintf("[%d] %s %s -> %s (%s)", e.Seq, e.Kind, e.From, e.To, e.Outcome)
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace is every journaled event in sequence order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed expectation or assertion.
	Errors []string `json:"errors,omitempty"`

	// Node is the node the graph ended on.
	Node string `json:"node"`

	History  []string `json:"history"`
	Outcomes []string `json:"outcomes"`

	// State maps entity to variable to final value.
	State map[string]map[string]int `json:"state"`

	// Rules maps entity to variable to the final rule description, for
	// variables with a matching rule.
	Rules map[string]map[string]string `json:"rules"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
		Outcomes: []string{},
		State:    make(map[string]map[string]int),
		Rules:    make(map[string]map[string]string),
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
