package store

// Step kinds recorded in the journal.
const (
	KindStart   = "start"
	KindAdvance = "advance"
	KindTurn    = "turn"
)

// Change sources recorded in the journal.
const (
	SourceAnalysis = "analysis"
	SourceEffect   = "effect"
	SourceUpdate   = "update"
)

// Session identifies one play session.
type Session struct {
	ID            string
	StoryHash     string
	EngineVersion string
	StartNode     string
}

// StepRecord is one story-level event in a session.
type StepRecord struct {
	SessionID string
	Seq       int64
	Kind      string
	From      string
	To        string
	Outcome   string
	Detail    map[string]string
}

// ChangeRecord is one committed variable change in a session.
type ChangeRecord struct {
	SessionID string
	Seq       int64
	Entity    string
	Variable  string
	Old       int
	New       int

	// Source is SourceAnalysis, SourceUpdate, or the effect expression that
	// caused the change.
	Source string
}

// Entry is one row of a merged trace: exactly one of Step or Change is set.
type Entry struct {
	Seq    int64
	Step   *StepRecord
	Change *ChangeRecord
}

// Trace is everything journaled for a session.
type Trace struct {
	Session Session
	Steps   []StepRecord
	Changes []ChangeRecord
}

// Entries merges steps and changes by seq.
func (t Trace) Entries() []Entry {
	out := make([]Entry, 0, len(t.Steps)+len(t.Changes))
	i, j := 0, 0
	for i < len(t.Steps) || j < len(t.Changes) {
		if j >= len(t.Changes) || (i < len(t.Steps) && t.Steps[i].Seq < t.Changes[j].Seq) {
			out = append(out, Entry{Seq: t.Steps[i].Seq, Step: &t.Steps[i]})
			i++
			continue
		}
		out = append(out, Entry{Seq: t.Changes[j].Seq, Change: &t.Changes[j]})
		j++
	}
	return out
}
