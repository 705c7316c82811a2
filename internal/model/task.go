package model

import "time"

// Task status constants.
const (
	TaskStatusOpen     = "open"
	TaskStatusComplete = "complete"
)

// Task is a user-managed unit of work that owns a checklist and a time log.
type Task struct {
	// ID is the internal unique identifier (UUID) for this task.
	ID string `json:"id" db:"id"`

	// Title is the human-readable name of the task.
	Title string `json:"title" db:"title"`

	// Description is free-form text shown in the task header.
	Description string `json:"description" db:"description"`

	// Status is either TaskStatusOpen or TaskStatusComplete.
	Status string `json:"status" db:"status"`

	// SortOrder is the display position in the task list.
	SortOrder int `json:"sort_order" db:"sort_order"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// ChecklistCount and ChecklistDoneCount are optionally populated for list views.
	ChecklistCount     int `json:"checklist_count,omitempty" db:"-"`
	ChecklistDoneCount int `json:"checklist_done_count,omitempty" db:"-"`

	// TrackedMs is optionally populated by report queries.
	TrackedMs int64 `json:"tracked_ms,omitempty" db:"-"`
}

// IsCompleted reports whether the task is marked complete.
func (t Task) IsCompleted() bool { return t.Status == TaskStatusComplete }

// TaskState is everything the persistence layer stores for a single task
// besides its row in the tasks table.
type TaskState struct {
	Checklist []ChecklistSection `json:"checklist"`
	TimeLog   []TimeLogEntry     `json:"timeLog"`
	Sessions  []TimeLogSession   `json:"timeLogSessions"`
}
