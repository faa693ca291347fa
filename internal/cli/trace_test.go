package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storyweave/internal/store"
)

// seedJournal writes one session: a start, an analysis change, an effect
// change, and an advance.
func seedJournal(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.WriteSession(ctx, store.Session{
		ID:            "session-1",
		StoryHash:     "0123456789abcdef0123456789abcdef",
		EngineVersion: "1",
		StartNode:     "arrival",
	}))
	require.NoError(t, st.WriteStep(ctx, store.StepRecord{SessionID: "session-1", Seq: 1, Kind: store.KindStart, To: "arrival"}))
	require.NoError(t, st.WriteChanges(ctx, []store.ChangeRecord{
		{SessionID: "session-1", Seq: 2, Entity: "user", Variable: "trust", Old: 0, New: 25, Source: store.SourceAnalysis},
	}))
	require.NoError(t, st.WriteStep(ctx, store.StepRecord{
		SessionID: "session-1", Seq: 3, Kind: store.KindTurn, From: "arrival", To: "arrival",
		Detail: map[string]string{"response": "Hello!", "summary": "A warm greeting."},
	}))
	require.NoError(t, st.WriteChanges(ctx, []store.ChangeRecord{
		{SessionID: "session-1", Seq: 4, Entity: "character1", Variable: "tension", Old: 30, New: 25, Source: "character1.tension -= 5"},
	}))
	require.NoError(t, st.WriteStep(ctx, store.StepRecord{
		SessionID: "session-1", Seq: 5, Kind: store.KindAdvance, From: "arrival", To: "dinner",
		Outcome: "moved", Detail: map[string]string{"transition": "0"},
	}))
	return path
}

func TestTraceListSessions(t *testing.T) {
	db := seedJournal(t)

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "session-1  start=arrival  story=01234567...89abcdef  engine=1")
}

func TestTraceListSessionsJSON(t *testing.T) {
	db := seedJournal(t)

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "json"}), "--db", db)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   []SessionSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "session-1", resp.Data[0].ID)
}

func TestTraceNoSessions(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")
	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions found.")
}

func TestTraceSession(t *testing.T) {
	db := seedJournal(t)

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", db, "--session", "session-1")
	require.NoError(t, err)

	assert.Contains(t, out, "Trace for Session: session-1")
	assert.Contains(t, out, "  [1] START arrival\n"+
		"  [2] user.trust 0 -> 25 (analysis)\n"+
		"  [3] TURN arrival\n"+
		"  [4] character1.tension 30 -> 25 (character1.tension -= 5)\n"+
		"  [5] ADVANCE arrival -> dinner (moved)\n")
	assert.Contains(t, out, "  Turns:        1\n")
	assert.Contains(t, out, "  Transitions:  1\n")
	assert.Contains(t, out, "  Changes:      2\n")
	assert.Contains(t, out, "  Final Node:   dinner\n")
	assert.NotContains(t, out, "Detail:")
}

func TestTraceSessionVerbose(t *testing.T) {
	db := seedJournal(t)

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "text", Verbose: true}), "--db", db, "--session", "session-1")
	require.NoError(t, err)
	assert.Contains(t, out, `Detail: {response="Hello!", summary="A warm greeting."}`)
}

func TestTraceSessionEntityFilter(t *testing.T) {
	db := seedJournal(t)

	out, err := execute(t, NewTraceCommand(&RootOptions{Format: "json"}), "--db", db, "--session", "session-1", "--entity", "user")
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	result := resp.Data
	assert.Equal(t, "session-1", result.Session.ID)
	assert.Equal(t, 4, result.Stats.TotalEvents)
	assert.Equal(t, 1, result.Stats.Changes)

	var changes []TraceEvent
	for _, e := range result.Timeline {
		if e.Type == "change" {
			changes = append(changes, e)
		}
	}
	require.Len(t, changes, 1)
	assert.Equal(t, "user", changes[0].Entity)
	require.NotNil(t, changes[0].Old)
	assert.Equal(t, 0, *changes[0].Old)
	assert.Equal(t, 25, *changes[0].New)
}

func TestTraceUnknownSession(t *testing.T) {
	db := seedJournal(t)

	_, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}), "--db", db, "--session", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "session not found: nope")
}

func TestTraceRequiresDB(t *testing.T) {
	_, err := execute(t, NewTraceCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "01234567...89abcdef", truncateID("0123456789abcdef0123456789abcdef"))
}
