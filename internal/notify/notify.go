// Package notify delivers completion events and short user messages to the
// toast line and the persistent inbox.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/nhle/tasktimer/internal/logging"
	"github.com/nhle/tasktimer/internal/model"
)

// ItemEvent describes a checklist item that was just completed.
type ItemEvent struct {
	Item         model.ChecklistItem
	SectionID    int64
	SectionTitle string
}

// SectionEvent describes a section whose last open item was just completed.
type SectionEvent struct {
	SectionID    int64
	SectionTitle string
}

// Notifier receives discrete events and feedback messages from the core.
type Notifier interface {
	ItemCompleted(taskID string, evt ItemEvent)
	SectionCompleted(taskID string, evt SectionEvent)
	Message(taskID string, text string)
}

// NotificationStore is the persistence the Inbox needs.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n model.Notification) error
}

// ToastMsg is a tea.Msg carrying a notification to display.
type ToastMsg struct {
	Notification model.Notification
}

// toastBuffer bounds the number of undisplayed toasts.
const toastBuffer = 32

// Inbox persists completion events as notifications and forwards every
// event as a toast.
type Inbox struct {
	store  NotificationStore
	toasts chan model.Notification
	log    *logging.Logger
	now    func() time.Time
}

// NewInbox returns an Inbox writing to s. s may be nil, in which case
// events only become toasts.
func NewInbox(s NotificationStore, log *logging.Logger) *Inbox {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Inbox{
		store:  s,
		toasts: make(chan model.Notification, toastBuffer),
		log:    log.WithComponent("notify"),
		now:    time.Now,
	}
}

// ItemCompleted records and announces a completed item.
func (in *Inbox) ItemCompleted(taskID string, evt ItemEvent) {
	in.emit(taskID, model.NotificationItemCompleted,
		fmt.Sprintf("Completed %q in %s", evt.Item.Text, evt.SectionTitle), true)
}

// SectionCompleted records and announces a completed section.
func (in *Inbox) SectionCompleted(taskID string, evt SectionEvent) {
	in.emit(taskID, model.NotificationSectionCompleted,
		fmt.Sprintf("Section %q is complete", evt.SectionTitle), true)
}

// Message announces a feedback message. Messages are not persisted.
func (in *Inbox) Message(taskID string, text string) {
	in.emit(taskID, model.NotificationMessage, text, false)
}

func (in *Inbox) emit(taskID string, kind model.NotificationKind, text string, persist bool) {
	n := model.Notification{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		Kind:      kind,
		Message:   text,
		CreatedAt: in.now(),
	}

	if persist && in.store != nil {
		if err := in.store.CreateNotification(context.Background(), n); err != nil {
			in.log.Error("saving notification", "error", err, "kind", string(kind))
		}
	}

	select {
	case in.toasts <- n:
	default:
		// Drop if nobody is draining toasts to avoid blocking the caller.
		in.log.Warn("toast dropped", "kind", string(kind))
	}
}

// WaitForToast returns a tea.Cmd that blocks until the next toast.
// Re-issue it after handling each ToastMsg to keep listening.
func (in *Inbox) WaitForToast() tea.Cmd {
	return func() tea.Msg {
		n, ok := <-in.toasts
		if !ok {
			return nil
		}
		return ToastMsg{Notification: n}
	}
}

// Recorder is an in-memory Notifier that keeps every event it receives.
type Recorder struct {
	mu       sync.Mutex
	Items    []ItemEvent
	Sections []SectionEvent
	Messages []string
}

// ItemCompleted records evt.
func (r *Recorder) ItemCompleted(_ string, evt ItemEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Items = append(r.Items, evt)
}

// SectionCompleted records evt.
func (r *Recorder) SectionCompleted(_ string, evt SectionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sections = append(r.Sections, evt)
}

// Message records text.
func (r *Recorder) Message(_ string, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, text)
}
