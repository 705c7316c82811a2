package store

import (
	"context"
	"errors"

	"github.com/nhle/tasktimer/internal/model"
)

// ErrNotFound is returned when a task or notification does not exist.
var ErrNotFound = errors.New("not found")

// TaskFilter controls filtering, sorting, and pagination for task queries.
type TaskFilter struct {
	Status   *string // "open", "complete", or nil (all)
	Query    *string // search title + description
	SortBy   string  // "sort_order", "created_at", "updated_at", "title"
	SortDesc bool
	Limit    int
	Offset   int
}

// Store defines the persistence interface for tasks, their checklist and
// time-log state, and inbox notifications.
type Store interface {
	// === Tasks ===

	CreateTask(ctx context.Context, task model.Task) (model.Task, error)
	UpdateTask(ctx context.Context, task model.Task) error
	DeleteTask(ctx context.Context, id string) error
	GetTask(ctx context.Context, id string) (*model.Task, error)
	GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)

	// === Task state ===

	LoadTaskState(ctx context.Context, taskID string) (model.TaskState, error)
	SaveTaskState(ctx context.Context, taskID string, state model.TaskState) error

	// === Notifications ===

	CreateNotification(ctx context.Context, n model.Notification) error
	GetUnreadNotifications(ctx context.Context) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error

	// === Reports ===

	GetTimeReport(ctx context.Context) ([]model.Task, error)
}
