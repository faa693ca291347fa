package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestStore opens a fresh file-backed journal.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, s.Close())
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)
	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.WriteSession(ctx, Session{ID: "s1", StoryHash: "h", EngineVersion: "0.1.0"}))
	sessions, err := s.ReadSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestWriteSession_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	sess := Session{ID: "s1", StoryHash: "h", EngineVersion: "0.1.0", StartNode: "arrival"}

	require.NoError(t, s.WriteSession(ctx, sess))
	require.NoError(t, s.WriteSession(ctx, sess))

	sessions, err := s.ReadSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Session{sess}, sessions)
}

func TestReadSessions_OrderedByID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"0192-b", "0192-a", "0192-c"} {
		require.NoError(t, s.WriteSession(ctx, Session{ID: id, StoryHash: "h", EngineVersion: "v"}))
	}

	sessions, err := s.ReadSessions(ctx)
	require.NoError(t, err)
	var ids []string
	for _, sess := range sessions {
		ids = append(ids, sess.ID)
	}
	assert.Equal(t, []string{"0192-a", "0192-b", "0192-c"}, ids)
}

func TestReadSessions_Empty(t *testing.T) {
	sessions, err := createTestStore(t).ReadSessions(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)
}

func TestTrace_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteSession(ctx, Session{ID: "s1", StoryHash: "h", EngineVersion: "0.1.0"}))

	require.NoError(t, s.WriteStep(ctx, StepRecord{SessionID: "s1", Seq: 1, Kind: KindStart, To: "arrival"}))
	require.NoError(t, s.WriteChanges(ctx, []ChangeRecord{
		{SessionID: "s1", Seq: 2, Entity: "user", Variable: "trust", Old: 0, New: 25, Source: SourceAnalysis},
		{SessionID: "s1", Seq: 3, Entity: "character1", Variable: "tension", Old: 30, New: 25, Source: "character1.tension -= 5"},
	}))
	require.NoError(t, s.WriteStep(ctx, StepRecord{
		SessionID: "s1", Seq: 4, Kind: KindAdvance, From: "arrival", To: "dinner", Outcome: "moved",
		Detail: map[string]string{"transition": "0"},
	}))

	trace, err := s.ReadTrace(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "h", trace.Session.StoryHash)
	require.Len(t, trace.Steps, 2)
	require.Len(t, trace.Changes, 2)
	assert.Equal(t, map[string]string{}, trace.Steps[0].Detail)
	assert.Equal(t, map[string]string{"transition": "0"}, trace.Steps[1].Detail)

	entries := trace.Entries()
	require.Len(t, entries, 4)
	var seqs []int64
	for _, e := range entries {
		seqs = append(seqs, e.Seq)
	}
	assert.Equal(t, []int64{1, 2, 3, 4}, seqs)
	assert.NotNil(t, entries[0].Step)
	assert.Equal(t, "trust", entries[1].Change.Variable)
	assert.Equal(t, "dinner", entries[3].Step.To)
}

func TestReadTrace_UnknownSession(t *testing.T) {
	_, err := createTestStore(t).ReadTrace(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestWriteStep_RequiresSession(t *testing.T) {
	err := createTestStore(t).WriteStep(context.Background(), StepRecord{SessionID: "ghost", Seq: 1, Kind: KindStart})
	assert.ErrorContains(t, err, "write step")
}

func TestWriteStep_DuplicateSeqRejected(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteSession(ctx, Session{ID: "s1", StoryHash: "h", EngineVersion: "v"}))
	require.NoError(t, s.WriteStep(ctx, StepRecord{SessionID: "s1", Seq: 1, Kind: KindStart}))

	assert.Error(t, s.WriteStep(ctx, StepRecord{SessionID: "s1", Seq: 1, Kind: KindTurn}))
}

func TestWriteChanges_AtomicOnFailure(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteSession(ctx, Session{ID: "s1", StoryHash: "h", EngineVersion: "v"}))

	err := s.WriteChanges(ctx, []ChangeRecord{
		{SessionID: "s1", Seq: 1, Entity: "user", Variable: "trust", Source: SourceAnalysis},
		{SessionID: "s1", Seq: 1, Entity: "user", Variable: "trust", Source: SourceAnalysis},
	})
	require.Error(t, err)

	trace, err := s.ReadTrace(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, trace.Changes)
}

func TestMarshalDetail_Canonical(t *testing.T) {
	out, err := marshalDetail(map[string]string{"b": "2", "a": "<1>"})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"<1>","b":"2"}`, out)

	empty, err := marshalDetail(nil)
	require.NoError(t, err)
	assert.Equal(t, `{}`, empty)
}
