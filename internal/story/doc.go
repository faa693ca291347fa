// Package story implements the narrative node graph and its traversal.
//
// States are node ids; the graph starts in a pre-start state with no current
// node. Start picks a node, Advance moves along the first satisfied
// transition in declaration order.
//
// ERROR POLICY:
//
// Structural problems are fatal at construction (duplicate node ids). Errors
// met while evaluating conditions or applying effects are recovered locally:
// they are logged and count as false / no-op, so one malformed rule never
// halts the story. What the caller sees is a Step whose Outcome says whether
// the story progressed.
package story
