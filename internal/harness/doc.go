// Package harness runs story scenarios against the real story graph.
//
// A scenario loads one story file, positions the graph on a start node, and
// replays a list of steps with no collaborator involved. Every step is
// journaled to an in-memory store and the resulting trace is checked by
// assertions and, optionally, against a golden file.
//
// # Scenario Format
//
//	name: warm_welcome
//	description: "Trust earned on arrival leads to dinner"
//	story: ../stories/dinner.yaml
//	start: arrival
//	steps:
//	  - update:
//	      entity: user
//	      deltas: { trust: 25 }
//	  - effect: "character2.tension += 10"
//	  - advance: true
//	    expect: moved
//	assertions:
//	  - type: current_node
//	    node: dinner
//	  - type: history
//	    nodes: [arrival, dinner]
//	  - type: value
//	    entity: character1
//	    variable: tension
//	    equals: 25
//	  - type: rule
//	    entity: character1
//	    variable: tension
//	    description: relaxed
//	  - type: outcome
//	    outcomes: [moved]
//
// The story path is resolved relative to the scenario file.
//
// # Steps
//
//   - update: applies signed deltas to one entity's table
//   - effect: parses and applies one effect expression
//   - advance: advances the graph once; expect optionally names the outcome
//
// # Assertion Types
//
//   - current_node: the node the graph ends on
//   - history: the full node history, in order
//   - value: a variable's final value
//   - rule: a variable's final rule description ("" for no match)
//   - outcome: the outcome of every advance step, in order
//
// # Deterministic Testing
//
// Every run uses a fresh in-memory store, testutil.DeterministicClock for
// sequence numbers, and a fixed session id, so the same scenario always
// produces the same trace bytes.
package harness
