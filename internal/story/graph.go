package story

import (
	"fmt"
	"log/slog"

	"github.com/roach88/storyweave/internal/expr"
	"github.com/roach88/storyweave/internal/state"
)

// Transition is a conditional edge. Conditions are OR-combined; effects are
// applied in order once the transition is chosen, before the move.
type Transition struct {
	Conditions []expr.Condition
	Target     string
	Effects    []expr.Effect
}

// Node is one narrative situation. A node without transitions is terminal.
type Node struct {
	ID          string
	Name        string
	Description string
	Transitions []Transition
}

// Terminal reports whether the node has no outgoing transitions.
func (n Node) Terminal() bool {
	return len(n.Transitions) == 0
}

// Outcome classifies the result of one Advance call.
type Outcome string

const (
	// OutcomeMoved means a transition fired and the cursor moved to its target.
	OutcomeMoved Outcome = "moved"

	// OutcomeTerminal means the current node has no transitions.
	OutcomeTerminal Outcome = "terminal"

	// OutcomeNoTransition means no transition's conditions were satisfied.
	OutcomeNoTransition Outcome = "no_transition"

	// OutcomeUnknownTarget means a transition fired but its target is missing.
	// Its effects have already been applied and are not rolled back.
	OutcomeUnknownTarget Outcome = "unknown_target"
)

// Step describes what one Advance call did.
type Step struct {
	// From is the node the graph was on when Advance was called.
	From string

	// To is the current node after the call (equal to From unless moved).
	To string

	Outcome Outcome

	// Transition is the index of the chosen transition, or -1 if none fired.
	Transition int

	// Effects holds one result per effect of the chosen transition.
	Effects []expr.EffectResult
}

// Progressed reports whether the cursor moved.
func (s *Step) Progressed() bool {
	return s.Outcome == OutcomeMoved
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger used for traversal diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) {
		g.logger = l
	}
}

// Graph is the story state machine.
//
// The graph owns its node set, which never changes after construction. It
// holds non-owning references to entity state tables registered with
// SetEntityTable; conditions and effects resolve entities through them.
//
// INVARIANTS:
//   - once started, the current node id is always a key of the node set
//   - history is non-empty iff started, and its last element is the current node
//   - history is append-only between Start calls and records re-entries
//
// A Graph is not safe for concurrent use.
type Graph struct {
	order  []string
	nodes  map[string]Node
	tables map[string]*state.Table

	current string
	started bool
	history []string

	logger *slog.Logger
}

// NewGraph builds a graph from nodes in load order. Load order defines the
// default start node. Nodes are copied so later edits by the caller cannot
// change the graph.
//
// Returns a DUPLICATE_NODE RuntimeError if two nodes share an id.
func NewGraph(nodes []Node, opts ...Option) (*Graph, error) {
	g := &Graph{
		order:  make([]string, 0, len(nodes)),
		nodes:  make(map[string]Node, len(nodes)),
		tables: make(map[string]*state.Table),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}

	for _, n := range nodes {
		if _, dup := g.nodes[n.ID]; dup {
			return nil, &RuntimeError{
				Code:    ErrCodeDuplicateNode,
				Message: "duplicate node id",
				NodeID:  n.ID,
			}
		}
		g.order = append(g.order, n.ID)
		g.nodes[n.ID] = copyNode(n)
	}

	return g, nil
}

func copyNode(n Node) Node {
	out := n
	out.Transitions = make([]Transition, len(n.Transitions))
	for i, t := range n.Transitions {
		out.Transitions[i] = Transition{
			Conditions: append([]expr.Condition(nil), t.Conditions...),
			Target:     t.Target,
			Effects:    append([]expr.Effect(nil), t.Effects...),
		}
	}
	return out
}

// SetEntityTable binds key to table, replacing any previous binding. The key
// is not checked against the expressions in the graph; unresolved references
// surface only when evaluated.
func (g *Graph) SetEntityTable(key string, table *state.Table) {
	g.tables[key] = table
}

// Table implements expr.Resolver.
func (g *Graph) Table(entity string) (*state.Table, bool) {
	t, ok := g.tables[entity]
	return t, ok
}

// Start positions the graph on nodeID and resets history to it. An empty
// nodeID selects the first node in load order.
//
// On failure the graph is left as it was.
func (g *Graph) Start(nodeID string) error {
	if nodeID == "" {
		if len(g.order) == 0 {
			g.logger.Error("no story nodes available to start")
			return &RuntimeError{Code: ErrCodeEmptyGraph, Message: "graph has no nodes"}
		}
		nodeID = g.order[0]
	}

	if _, ok := g.nodes[nodeID]; !ok {
		g.logger.Error("start node not found", "node", nodeID)
		return &RuntimeError{Code: ErrCodeUnknownNode, Message: "start node not found", NodeID: nodeID}
	}

	g.current = nodeID
	g.started = true
	g.history = []string{nodeID}
	g.logger.Info("story started", "node", nodeID)
	return nil
}

// Advance evaluates the current node's transitions in declaration order and
// takes the first one whose conditions are satisfied.
//
// Outcomes:
//   - no current node: returns a NOT_STARTED error and a nil Step
//   - terminal node: OutcomeTerminal, nothing changes (repeatable)
//   - no satisfied transition: OutcomeNoTransition, nothing changes
//   - satisfied transition: effects are applied, then the cursor moves
//     (OutcomeMoved) and the target is appended to history
//   - satisfied transition with a missing target: effects stay applied, the
//     cursor stays, and the Step is returned with an UNKNOWN_TARGET error
func (g *Graph) Advance() (*Step, error) {
	if !g.started {
		return nil, &RuntimeError{Code: ErrCodeNotStarted, Message: "advance called before start"}
	}

	node := g.nodes[g.current]
	step := &Step{From: node.ID, To: node.ID, Transition: -1}

	if node.Terminal() {
		g.logger.Info("reached end node", "node", node.ID)
		step.Outcome = OutcomeTerminal
		return step, nil
	}

	for i, t := range node.Transitions {
		if !expr.AnySatisfied(t.Conditions, g, g.logger) {
			continue
		}

		step.Transition = i
		step.Effects = expr.ApplyAll(t.Effects, g, g.logger)

		if _, ok := g.nodes[t.Target]; !ok {
			g.logger.Error("transition target not found", "node", node.ID, "target", t.Target)
			step.Outcome = OutcomeUnknownTarget
			return step, NewUnknownTargetError(node.ID, t.Target, i)
		}

		g.current = t.Target
		g.history = append(g.history, t.Target)
		step.To = t.Target
		step.Outcome = OutcomeMoved
		g.logger.Info("advanced to node", "from", node.ID, "to", t.Target)
		return step, nil
	}

	g.logger.Warn("no valid transitions found from current node", "node", node.ID)
	step.Outcome = OutcomeNoTransition
	return step, nil
}

// CurrentNode returns the current node, or false before Start.
func (g *Graph) CurrentNode() (Node, bool) {
	if !g.started {
		return Node{}, false
	}
	return g.nodes[g.current], true
}

// CurrentID returns the current node id, or "" before Start.
func (g *Graph) CurrentID() string {
	return g.current
}

// Started reports whether Start has succeeded.
func (g *Graph) Started() bool {
	return g.started
}

// History returns a copy of the ids of every node entered since the last Start.
func (g *Graph) History() []string {
	return append([]string(nil), g.history...)
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// NodeIDs returns all node ids in load order.
func (g *Graph) NodeIDs() []string {
	return append([]string(nil), g.order...)
}

// EntityKeys returns the registered entity keys in no particular order.
func (g *Graph) EntityKeys() []string {
	keys := make([]string, 0, len(g.tables))
	for k := range g.tables {
		keys = append(keys, k)
	}
	return keys
}

func (s *Step) String() string {
	if s.From == s.To {
		return fmt.Sprintf("%s (%s)", s.From, s.Outcome)
	}
	return fmt.Sprintf("%s -> %s (%s)", s.From, s.To, s.Outcome)
}
