// Package engine runs one interactive story session.
//
// An Engine owns a built story bundle and a generation collaborator. Each
// user turn follows the same fixed sequence:
//
//  1. The current dialogue and the user's response are sent for analysis.
//  2. The returned deltas are applied to the entity tables (clamped).
//  3. If the current node has transitions, the story graph advances once.
//  4. A new conversation is generated for the (possibly new) node.
//
// SINGLE WRITER:
// An Engine is not safe for concurrent use. All state lives in the bundle's
// tables and graph, and only the goroutine driving the session mutates it.
// Independent sessions use independent engines built from independent
// bundles.
//
// ORDERING:
// Every journaled event is stamped from a logical clock. Wall-clock time is
// never used for ordering, so two runs with the same inputs produce the same
// journal.
//
// ERROR POLICY:
// Generation and decoding failures abort the turn and are returned as a
// SessionError; no state has changed at that point. Problems inside the
// story itself (malformed expressions, dangling transition targets) are
// logged and the turn continues. Journal write failures are logged and
// never interrupt play.
package engine
