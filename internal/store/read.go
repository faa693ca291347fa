package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned by ReadTrace for an unknown session id.
var ErrSessionNotFound = errors.New("session not found")

// ReadSessions returns all sessions ordered by id. Session ids are UUIDv7,
// so this is creation order.
//
// Returns an empty slice (not nil) if the journal is empty.
func (s *Store) ReadSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, story_hash, engine_version, start_node
		FROM sessions
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.StoryHash, &sess.EngineVersion, &sess.StartNode); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadTrace returns a session with its steps and changes, each ordered by
// seq.
func (s *Store) ReadTrace(ctx context.Context, sessionID string) (Trace, error) {
	var t Trace
	err := s.db.QueryRowContext(ctx, `
		SELECT id, story_hash, engine_version, start_node
		FROM sessions
		WHERE id = ?
	`, sessionID).Scan(&t.Session.ID, &t.Session.StoryHash, &t.Session.EngineVersion, &t.Session.StartNode)
	if errors.Is(err, sql.ErrNoRows) {
		return Trace{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return Trace{}, fmt.Errorf("query session: %w", err)
	}

	if t.Steps, err = s.readSteps(ctx, sessionID); err != nil {
		return Trace{}, err
	}
	if t.Changes, err = s.readChanges(ctx, sessionID); err != nil {
		return Trace{}, err
	}
	return t, nil
}

func (s *Store) readSteps(ctx context.Context, sessionID string) ([]StepRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, kind, from_node, to_node, outcome, detail
		FROM steps
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	steps := []StepRecord{}
	for rows.Next() {
		var st StepRecord
		var detail string
		if err := rows.Scan(&st.SessionID, &st.Seq, &st.Kind, &st.From, &st.To, &st.Outcome, &detail); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		if st.Detail, err = unmarshalDetail(detail); err != nil {
			return nil, err
		}
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

func (s *Store) readChanges(ctx context.Context, sessionID string) ([]ChangeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, entity, variable, old_value, new_value, source
		FROM state_changes
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query state changes: %w", err)
	}
	defer rows.Close()

	changes := []ChangeRecord{}
	for rows.Next() {
		var c ChangeRecord
		if err := rows.Scan(&c.SessionID, &c.Seq, &c.Entity, &c.Variable, &c.Old, &c.New, &c.Source); err != nil {
			return nil, fmt.Errorf("scan state change: %w", err)
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state changes: %w", err)
	}
	return changes, nil
}
