package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/tasktimer/internal/command"
	"github.com/nhle/tasktimer/internal/model"
)

// --- Messages ---

type unreadCountMsg struct {
	count int
}

type inboxLoadedMsg struct {
	notifications []model.Notification
}

type taskCreatedMsg struct {
	task model.Task
}

type taskUpdatedMsg struct {
	task model.Task
}

type taskDeletedMsg struct{}

// errMsg reports a failed background store call.
type errMsg struct {
	action string
	err    error
}

// --- Workspace commands ---
//
// The workspace is only touched from Update, so these run synchronously;
// store-only work below is returned as tea.Cmds.

// openTask makes taskID the workspace's open task and switches to it.
func (m *Model) openTask(taskID string) tea.Cmd {
	if err := m.ws.Open(context.Background(), taskID); err != nil {
		m.log.Error("opening task", "task_id", taskID, "error", err)
		return m.showToast(fmt.Sprintf("Could not open task: %v", err))
	}
	m.currentView = ViewTask
	m.focus = paneChecklist
	m.checklistView.ResetCursor()
	m.timeLogView.ResetCursor()
	m.syncRunning()
	return nil
}

// execute runs cmd on the open task. Destructive commands need to be
// issued twice within the confirmation window.
func (m *Model) execute(cmd command.Command) tea.Cmd {
	if cmd.Kind.Destructive() {
		if !m.confirmed(fmt.Sprintf("%+v", cmd)) {
			return m.askConfirm(fmt.Sprintf("%+v", cmd), cmd.Kind.String())
		}
	}

	changed, err := m.ws.Execute(context.Background(), cmd)
	if err != nil {
		m.log.Error("executing command", "command", cmd.String(), "error", err)
		return m.showToast(err.Error())
	}
	if changed {
		m.log.Debug("command applied", "command", cmd.Kind.String())
	}
	m.syncRunning()
	return nil
}

// executePalette handles text typed into the command palette. Names the
// root model owns are handled here; the rest are parsed as workspace
// commands targeting the current selection.
func (m *Model) executePalette(text string) tea.Cmd {
	switch strings.TrimSpace(text) {
	case "quit", "q":
		return m.quit()
	case "tasks":
		m.currentView = ViewList
		return m.taskList.LoadTasks()
	case "new-task":
		m.previousView = m.currentView
		m.currentView = ViewTaskForm
		return m.taskForm.StartCreate()
	case "edit-task":
		task := m.ws.Task()
		if task == nil {
			return m.showToast("Open a task first")
		}
		m.previousView = m.currentView
		m.currentView = ViewTaskForm
		return m.taskForm.StartEdit(*task)
	case "inbox":
		m.previousView = m.currentView
		m.currentView = ViewInbox
		m.inboxCursor = 0
		return m.loadInbox()
	case "config":
		m.previousView = m.currentView
		m.currentView = ViewConfig
		return m.configView.Start(m.cfg)
	case "help":
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil
	}

	cmd, err := command.Parse(text)
	if err != nil {
		if errors.Is(err, command.ErrUnknownCommand) {
			return m.showToast(fmt.Sprintf("Unknown command %q (see ?)", text))
		}
		return m.showToast(err.Error())
	}
	if m.ws.Task() == nil {
		return m.showToast("Open a task first")
	}
	return m.execute(m.withSelection(cmd))
}

// withSelection fills the command's targets from the task view cursors.
func (m Model) withSelection(cmd command.Command) command.Command {
	sectionID, itemID := m.checklistView.Selection()
	entryID, sessionID := m.timeLogView.Selection()
	if cmd.SectionID == 0 {
		cmd.SectionID = sectionID
	}
	if cmd.ItemID == 0 {
		cmd.ItemID = itemID
	}
	if cmd.EntryID == 0 {
		cmd.EntryID = entryID
	}
	if cmd.SessionID == 0 {
		cmd.SessionID = sessionID
	}
	return cmd
}

// confirmed reports whether key is the pending confirmation, consuming it.
func (m *Model) confirmed(key string) bool {
	if m.confirm != nil && m.confirm.key == key {
		m.confirm = nil
		return true
	}
	return false
}

// askConfirm arms a confirmation for key that expires after the window.
func (m *Model) askConfirm(key, label string) tea.Cmd {
	m.confirmSeq++
	seq := m.confirmSeq
	m.confirm = &pendingConfirm{key: key, seq: seq}
	return tea.Batch(
		m.showToast(fmt.Sprintf("Press again within %s to %s", m.confirmWindow, label)),
		tea.Tick(m.confirmWindow, func(time.Time) tea.Msg { return confirmExpiredMsg{seq: seq} }),
	)
}

// quit stops the timer, saves, and exits.
func (m *Model) quit() tea.Cmd {
	if err := m.ws.Close(context.Background()); err != nil {
		m.log.Error("closing workspace", "error", err)
	}
	return tea.Quit
}

// --- Store commands ---

func (m Model) createTask(task model.Task) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		created, err := s.CreateTask(context.Background(), task)
		if err != nil {
			return errMsg{action: "creating task", err: err}
		}
		return taskCreatedMsg{task: created}
	}
}

func (m Model) updateTask(task model.Task) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		if err := s.UpdateTask(context.Background(), task); err != nil {
			return errMsg{action: "updating task", err: err}
		}
		return taskUpdatedMsg{task: task}
	}
}

// deleteTaskConfirmed deletes task on the second press. The open task and
// the task the timer is running cannot be deleted.
func (m *Model) deleteTaskConfirmed(task model.Task) tea.Cmd {
	if open := m.ws.Task(); open != nil && open.ID == task.ID {
		return m.showToast("Cannot delete the open task; open another one first")
	}
	if live := m.ws.Live(); live.Running && live.TaskID == task.ID {
		return m.showToast("Cannot delete a task while its timer runs")
	}

	key := "delete-task:" + task.ID
	if !m.confirmed(key) {
		return m.askConfirm(key, fmt.Sprintf("delete %q", task.Title))
	}

	s := m.store
	return func() tea.Msg {
		if err := s.DeleteTask(context.Background(), task.ID); err != nil {
			return errMsg{action: "deleting task", err: err}
		}
		return taskDeletedMsg{}
	}
}

// fetchUnreadCount returns a tea.Cmd that queries the store for the
// number of unread notifications.
func (m Model) fetchUnreadCount() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		notifications, err := s.GetUnreadNotifications(context.Background())
		if err != nil {
			return unreadCountMsg{count: 0}
		}
		return unreadCountMsg{count: len(notifications)}
	}
}

func (m Model) loadInbox() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		notifications, err := s.GetUnreadNotifications(context.Background())
		if err != nil {
			return errMsg{action: "loading inbox", err: err}
		}
		return inboxLoadedMsg{notifications: notifications}
	}
}

func (m Model) markRead(id string) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		if err := s.MarkNotificationRead(context.Background(), id); err != nil {
			return errMsg{action: "marking notification read", err: err}
		}
		notifications, err := s.GetUnreadNotifications(context.Background())
		if err != nil {
			return errMsg{action: "loading inbox", err: err}
		}
		return inboxLoadedMsg{notifications: notifications}
	}
}

func (m Model) markAllRead() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		if err := s.MarkAllNotificationsRead(context.Background()); err != nil {
			return errMsg{action: "marking notifications read", err: err}
		}
		return inboxLoadedMsg{}
	}
}
