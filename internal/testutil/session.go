package testutil

// DefaultSessionID is used by FixedSessionID when given an empty id.
const DefaultSessionID = "test-session"

// FixedSessionID hands out the same session id on every call, so golden
// journals do not depend on UUID generation. It satisfies
// engine.SessionIDGenerator.
type FixedSessionID struct {
	id string
}

// NewFixedSessionID returns a generator for id.
func NewFixedSessionID(id string) *FixedSessionID {
	if id == "" {
		id = DefaultSessionID
	}
	return &FixedSessionID{id: id}
}

// Generate returns the fixed id.
func (g *FixedSessionID) Generate() string {
	return g.id
}
