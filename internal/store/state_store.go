package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/tasktimer/internal/checklist"
	"github.com/nhle/tasktimer/internal/model"
)

// sessionRow is a time_log_sessions row with its entries still encoded.
type sessionRow struct {
	ID        int64  `db:"id"`
	Title     string `db:"title"`
	Entries   string `db:"entries"`
	CreatedAt int64  `db:"created_at"`
}

// LoadTaskState returns the checklist, time log and archived sessions of a
// task. A task that has never been saved yields an empty state. Checklists
// stored in the legacy flat format are migrated on the way out.
func (s *SQLiteStore) LoadTaskState(ctx context.Context, taskID string) (model.TaskState, error) {
	if err := s.requireTask(ctx, s.db, taskID); err != nil {
		return model.TaskState{}, err
	}

	var row struct {
		Checklist string `db:"checklist"`
		TimeLog   string `db:"time_log"`
	}
	err := s.db.GetContext(ctx, &row,
		"SELECT checklist, time_log FROM task_state WHERE task_id = ?", taskID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return model.TaskState{}, fmt.Errorf("getting state for task %s: %w", taskID, err)
	}

	state := model.TaskState{
		Checklist: []model.ChecklistSection{},
		TimeLog:   []model.TimeLogEntry{},
		Sessions:  []model.TimeLogSession{},
	}

	if row.Checklist != "" {
		tree, err := decodeChecklist(row.Checklist)
		if err != nil {
			return model.TaskState{}, fmt.Errorf("task %s: %w", taskID, err)
		}
		state.Checklist = tree
	}
	if row.TimeLog != "" {
		entries, err := decodeEntries(row.TimeLog)
		if err != nil {
			return model.TaskState{}, fmt.Errorf("task %s time log: %w", taskID, err)
		}
		state.TimeLog = entries
	}

	var sessions []sessionRow
	err = s.db.SelectContext(ctx, &sessions, `
		SELECT id, title, entries, created_at
		FROM time_log_sessions
		WHERE task_id = ?
		ORDER BY position ASC`, taskID)
	if err != nil {
		return model.TaskState{}, fmt.Errorf("querying sessions for task %s: %w", taskID, err)
	}
	for _, r := range sessions {
		entries, err := decodeEntries(r.Entries)
		if err != nil {
			return model.TaskState{}, fmt.Errorf("task %s session %d: %w", taskID, r.ID, err)
		}
		state.Sessions = append(state.Sessions, model.TimeLogSession{
			ID:        r.ID,
			Title:     r.Title,
			Entries:   entries,
			CreatedAt: r.CreatedAt,
		})
	}

	return state, nil
}

// SaveTaskState replaces the stored checklist, time log and sessions of a
// task in a single transaction.
func (s *SQLiteStore) SaveTaskState(ctx context.Context, taskID string, state model.TaskState) error {
	tree := state.Checklist
	if tree == nil {
		tree = []model.ChecklistSection{}
	}
	checklistJSON, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("marshaling checklist for task %s: %w", taskID, err)
	}
	entries := state.TimeLog
	if entries == nil {
		entries = []model.TimeLogEntry{}
	}
	timeLogJSON, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling time log for task %s: %w", taskID, err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.requireTask(ctx, tx, taskID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO task_state (task_id, checklist, time_log, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET
			checklist = excluded.checklist,
			time_log = excluded.time_log,
			updated_at = excluded.updated_at`,
		taskID, string(checklistJSON), string(timeLogJSON), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving state for task %s: %w", taskID, err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM time_log_sessions WHERE task_id = ?", taskID); err != nil {
		return fmt.Errorf("clearing sessions for task %s: %w", taskID, err)
	}

	if len(state.Sessions) > 0 {
		stmt, err := tx.PreparexContext(ctx, `
			INSERT INTO time_log_sessions (id, task_id, title, entries, position, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing session insert: %w", err)
		}
		defer stmt.Close()

		for i, sess := range state.Sessions {
			sessEntries := sess.Entries
			if sessEntries == nil {
				sessEntries = []model.TimeLogEntry{}
			}
			raw, err := json.Marshal(sessEntries)
			if err != nil {
				return fmt.Errorf("marshaling session %d: %w", sess.ID, err)
			}
			if _, err := stmt.ExecContext(ctx,
				sess.ID, taskID, sess.Title, string(raw), i, sess.CreatedAt,
			); err != nil {
				return fmt.Errorf("inserting session %d: %w", sess.ID, err)
			}
		}
	}

	return tx.Commit()
}

// requireTask returns ErrNotFound when taskID has no row in tasks.
func (s *SQLiteStore) requireTask(ctx context.Context, q sqlx.QueryerContext, taskID string) error {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, "SELECT COUNT(*) FROM tasks WHERE id = ?", taskID); err != nil {
		return fmt.Errorf("checking task %s: %w", taskID, err)
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	return nil
}

// decodeChecklist parses a stored checklist in either the sectioned or the
// legacy flat format.
func decodeChecklist(raw string) ([]model.ChecklistSection, error) {
	tree, err := checklist.Migrate([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding checklist: %w", err)
	}
	return tree, nil
}

func decodeEntries(raw string) ([]model.TimeLogEntry, error) {
	entries := []model.TimeLogEntry{}
	if raw == "" || raw == "null" {
		return entries, nil
	}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decoding time log: %w", err)
	}
	if entries == nil {
		entries = []model.TimeLogEntry{}
	}
	return entries, nil
}
