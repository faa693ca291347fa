// Package expr implements the condition/effect micro-language used by story
// transitions.
//
// Both forms share one grammar:
//
//	ENTITY.VARIABLE OP VALUE
//
// ENTITY and VARIABLE are word identifiers joined by a single dot, VALUE is
// an optionally signed integer. Conditions use the comparison operators
// (== != > >= < <=); effects use the assignment operators (= += -= *= /=).
//
// Expressions are parsed once, when a story is compiled. A string that does
// not parse is kept with its error so it still occupies its slot in the
// transition: at run time it evaluates to false (conditions) or does nothing
// (effects), and a diagnostic is logged. Runtime failures never halt story
// progression.
//
// Effects never write values directly. The new absolute value is converted to
// a delta and passed through state.Table.Update, so clamping applies to every
// operator, including absolute assignment.
package expr
