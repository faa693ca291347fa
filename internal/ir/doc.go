// Package ir provides the plain configuration data model for stories.
//
// A Config is what loaders produce and what the compiler validates and
// builds into live state tables and a story graph. ir imports nothing
// internal so every other package may depend on it.
//
// Key design constraints:
//   - everything ordered in a story file (variables, rules, characters,
//     nodes, transitions) is a slice here, never a map
//   - NO float types anywhere; numbers are int64 in canonical form
//   - all JSON tags use snake_case and match the story file keys
//   - StoryHash is computed from canonical JSON only
package ir
