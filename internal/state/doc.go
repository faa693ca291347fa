// Package state implements bounded state tables for story entities.
//
// A Table holds the fixed set of integer variables for one entity (a
// character or the user). Every variable has inclusive bounds, a default,
// and an ordered list of descriptive rules that map value ranges to text.
//
// INVARIANTS:
//   - The value set always covers exactly the defined variables.
//   - Every value lies within [Min, Max] of its definition.
//   - Values change only through Update, which clamps each result.
//
// A Table is not safe for concurrent use. The story engine is single-writer:
// one session owns its tables and mutates them in call order.
package state
