package store

import (
	"context"
	"fmt"
)

// WriteSession registers a session. Uses ON CONFLICT(id) DO NOTHING, so
// writing the same session twice is a no-op.
func (s *Store) WriteSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, story_hash, engine_version, start_node)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, sess.ID, sess.StoryHash, sess.EngineVersion, sess.StartNode)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// WriteStep appends a step. The session must exist.
func (s *Store) WriteStep(ctx context.Context, step StepRecord) error {
	detail, err := marshalDetail(step.Detail)
	if err != nil {
		return fmt.Errorf("write step: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO steps (session_id, seq, kind, from_node, to_node, outcome, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, step.SessionID, step.Seq, step.Kind, step.From, step.To, step.Outcome, detail)
	if err != nil {
		return fmt.Errorf("write step: %w", err)
	}
	return nil
}

// WriteChanges appends state changes in one transaction.
func (s *Store) WriteChanges(ctx context.Context, changes []ChangeRecord) error {
	if len(changes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write changes: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO state_changes (session_id, seq, entity, variable, old_value, new_value, source)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write changes: prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range changes {
		if _, err := stmt.ExecContext(ctx, c.SessionID, c.Seq, c.Entity, c.Variable, c.Old, c.New, c.Source); err != nil {
			return fmt.Errorf("write changes: %s.%s: %w", c.Entity, c.Variable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write changes: commit: %w", err)
	}
	return nil
}
