package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/nhle/tasktimer/internal/model"
)

// reportRow is a task joined with every encoded time log it owns.
type reportRow struct {
	model.Task
	TimeLog  string `db:"time_log"`
	Sessions string `db:"sessions"`
}

// GetTimeReport returns every task with TrackedMs set to the time recorded
// in its current log plus all archived sessions, most tracked first.
func (s *SQLiteStore) GetTimeReport(ctx context.Context) ([]model.Task, error) {
	var rows []reportRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT t.*,
			COALESCE(ts.time_log, '[]') AS time_log,
			COALESCE((
				SELECT json_group_array(json(s.entries))
				FROM time_log_sessions s
				WHERE s.task_id = t.id
			), '[]') AS sessions
		FROM tasks t
		LEFT JOIN task_state ts ON ts.task_id = t.id
		ORDER BY t.sort_order ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying time report: %w", err)
	}

	tasks := make([]model.Task, 0, len(rows))
	for _, r := range rows {
		task := r.Task

		entries, err := decodeEntries(r.TimeLog)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", task.ID, err)
		}
		task.TrackedMs = model.TimeLogSession{Entries: entries}.TotalDuration()

		sessions, err := decodeSessionEntries(r.Sessions)
		if err != nil {
			return nil, fmt.Errorf("task %s sessions: %w", task.ID, err)
		}
		for _, sess := range sessions {
			task.TrackedMs += model.TimeLogSession{Entries: sess}.TotalDuration()
		}

		tasks = append(tasks, task)
	}

	sortByTracked(tasks)
	return tasks, nil
}

func decodeSessionEntries(raw string) ([][]model.TimeLogEntry, error) {
	var out [][]model.TimeLogEntry
	if raw == "" || raw == "null" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decoding sessions: %w", err)
	}
	return out, nil
}

// sortByTracked orders tasks by TrackedMs descending, keeping the existing
// order for ties.
func sortByTracked(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].TrackedMs > tasks[j].TrackedMs
	})
}
