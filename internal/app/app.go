package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tasktimer/internal/command"
	"github.com/nhle/tasktimer/internal/keys"
	"github.com/nhle/tasktimer/internal/logging"
	"github.com/nhle/tasktimer/internal/model"
	"github.com/nhle/tasktimer/internal/notify"
	"github.com/nhle/tasktimer/internal/store"
	"github.com/nhle/tasktimer/internal/theme"
	"github.com/nhle/tasktimer/internal/ui"
	"github.com/nhle/tasktimer/internal/ui/bulkadd"
	checklistview "github.com/nhle/tasktimer/internal/ui/checklist"
	palette "github.com/nhle/tasktimer/internal/ui/command"
	configview "github.com/nhle/tasktimer/internal/ui/config"
	helpview "github.com/nhle/tasktimer/internal/ui/help"
	"github.com/nhle/tasktimer/internal/ui/taskform"
	"github.com/nhle/tasktimer/internal/ui/tasklist"
	timelogview "github.com/nhle/tasktimer/internal/ui/timelog"
	"github.com/nhle/tasktimer/internal/workspace"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewTask
	ViewHelp
	ViewCommand
	ViewTaskForm
	ViewBulkAdd
	ViewInbox
	ViewConfig
)

// pane is the focused half of the task view.
type pane int

const (
	paneChecklist pane = iota
	paneTimeLog
)

// splitMinWidth is the terminal width from which the checklist and time
// log are shown side by side.
const splitMinWidth = 100

// toastTTL is how long a toast stays in the status bar.
const toastTTL = 4 * time.Second

// appCommands are palette names handled by the root model rather than
// the workspace.
var appCommands = []string{"quit", "tasks", "new-task", "edit-task", "inbox", "config", "help"}

// ConfigChangedMsg is sent when the configuration file changes on disk.
type ConfigChangedMsg struct {
	Config *model.AppConfig
}

type tickMsg time.Time

type toastExpiredMsg struct{ seq int }

type confirmExpiredMsg struct{ seq int }

// pendingConfirm is a destructive action waiting for its second keypress.
type pendingConfirm struct {
	key string
	seq int
}

// Deps bundles the services the root model drives.
type Deps struct {
	Store     store.Store
	Workspace *workspace.Workspace
	Inbox     *notify.Inbox
	Config    *model.AppConfig
	Log       *logging.Logger

	// ConfigPath is where the preferences editor writes.
	ConfigPath string
}

// Model is the root Bubble Tea model that manages view routing, layout,
// and access to the workspace and the persistence layer.
type Model struct {
	currentView  ViewState
	previousView ViewState
	focus        pane
	layout       ui.Layout
	store        store.Store
	ws           *workspace.Workspace
	inbox        *notify.Inbox
	log          *logging.Logger
	keys         *keys.KeyMap
	cfg          *model.AppConfig

	tickInterval  time.Duration
	confirmWindow time.Duration

	taskList      tasklist.Model
	checklistView checklistview.Model
	timeLogView   timelogview.Model
	helpView      helpview.Model
	commandView   palette.Model
	taskForm      taskform.Model
	bulkAdd       bulkadd.Model
	configView    configview.Model

	notifications []model.Notification
	inboxCursor   int
	unreadCount   int

	toast      string
	toastSeq   int
	confirm    *pendingConfirm
	confirmSeq int
	ready      bool
}

// New creates the root application model.
func New(d Deps) Model {
	k := keys.DefaultKeyMap()
	log := d.Log
	if log == nil {
		log = logging.NopLogger()
	}
	cfg := d.Config
	if cfg == nil {
		cfg = &model.AppConfig{}
		cfg.Checklist.ConfirmWindowSec = 3
		cfg.Timer.TickMs = 1000
	}

	names := append(command.Names(), appCommands...)
	sort.Strings(names)

	return Model{
		currentView:   ViewList,
		store:         d.Store,
		ws:            d.Workspace,
		inbox:         d.Inbox,
		log:           log.WithComponent("app"),
		keys:          k,
		cfg:           cfg,
		tickInterval:  cfg.TickInterval(),
		confirmWindow: cfg.ConfirmWindow(),
		taskList:      tasklist.New(d.Store, k, 80, 24),
		checklistView: checklistview.New(d.Workspace, k, 80, 24),
		timeLogView:   timelogview.New(d.Workspace, k, 80, 24),
		helpView:      helpview.New(k, names, 80, 24),
		commandView:   palette.New(names, 80, 24),
		taskForm:      taskform.New(80, 24),
		bulkAdd:       bulkadd.New(80, 24),
		configView:    configview.New(d.ConfigPath, nil, 80, 24),
	}
}

// Init loads the task list and starts the timer tick and the toast
// subscription.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.taskList.Init(),
		m.inbox.WaitForToast(),
		m.scheduleTick(),
		m.fetchUnreadCount(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		m.resize()
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case tickMsg:
		m.syncRunning()
		return m, m.scheduleTick()

	case ConfigChangedMsg:
		m.applyConfig(msg.Config)
		cmd := m.showToast("Configuration reloaded")
		return m, cmd

	case notify.ToastMsg:
		cmds := []tea.Cmd{m.inbox.WaitForToast(), m.showToast(msg.Notification.Message)}
		if msg.Notification.Kind != model.NotificationMessage {
			cmds = append(cmds, m.fetchUnreadCount())
		}
		return m, tea.Batch(cmds...)

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil

	case confirmExpiredMsg:
		if m.confirm != nil && m.confirm.seq == msg.seq {
			m.confirm = nil
		}
		return m, nil

	case unreadCountMsg:
		m.unreadCount = msg.count
		return m, nil

	case inboxLoadedMsg:
		m.notifications = msg.notifications
		m.unreadCount = len(msg.notifications)
		if m.inboxCursor >= len(m.notifications) {
			m.inboxCursor = 0
		}
		return m, nil

	case errMsg:
		m.log.Error(msg.action, "error", msg.err)
		cmd := m.showToast(fmt.Sprintf("%s: %v", msg.action, msg.err))
		return m, cmd

	case tasklist.TasksLoadedMsg:
		if msg.Err != nil {
			m.log.Error("loading tasks", "error", msg.Err)
		}
		var cmd tea.Cmd
		m.taskList, cmd = m.taskList.Update(msg)
		return m, cmd

	case tasklist.SelectedTaskMsg:
		cmd := m.openTask(msg.TaskID)
		return m, cmd

	case tasklist.NewTaskMsg:
		m.previousView = m.currentView
		m.currentView = ViewTaskForm
		cmd := m.taskForm.StartCreate()
		return m, cmd

	case taskform.TaskCreatedMsg:
		m.currentView = ViewList
		return m, m.createTask(msg.Task)

	case taskform.TaskUpdatedMsg:
		m.currentView = m.previousView
		return m, m.updateTask(msg.Task)

	case taskform.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case taskCreatedMsg:
		cmd := m.openTask(msg.task.ID)
		return m, tea.Batch(m.taskList.LoadTasks(), cmd)

	case taskUpdatedMsg:
		if t := m.ws.Task(); t != nil && t.ID == msg.task.ID {
			if err := m.ws.RefreshTask(context.Background()); err != nil {
				m.log.Error("refreshing open task", "error", err)
			}
		}
		return m, m.taskList.LoadTasks()

	case taskDeletedMsg:
		cmd := m.showToast("Task deleted")
		return m, tea.Batch(m.taskList.LoadTasks(), cmd)

	case ui.ExecuteMsg:
		cmd := m.execute(msg.Command)
		return m, cmd

	case ui.BulkAddRequestMsg:
		m.previousView = m.currentView
		m.currentView = ViewBulkAdd
		cmd := m.bulkAdd.Start()
		return m, cmd

	case bulkadd.SubmitMsg:
		m.currentView = ViewTask
		cmd := m.execute(command.Command{Kind: command.KindBulkAdd, Text: msg.Text})
		return m, cmd

	case bulkadd.CancelMsg:
		m.currentView = ViewTask
		return m, nil

	case palette.CommandMsg:
		m.currentView = m.previousView
		cmd := m.executePalette(string(msg))
		return m, cmd

	case palette.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case configview.SavedMsg:
		m.currentView = m.previousView
		m.applyConfig(msg.Config)
		cmd := m.showToast("Preferences saved")
		return m, cmd

	case configview.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			cmd := m.quit()
			return m, cmd
		}
		if !m.inputFocused() {
			if next, cmd, handled := m.handleGlobalKey(msg); handled {
				return next, cmd
			}
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// inputFocused reports whether a text field owns the keyboard.
func (m Model) inputFocused() bool {
	switch m.currentView {
	case ViewCommand, ViewTaskForm, ViewBulkAdd, ViewConfig:
		return true
	case ViewList:
		return m.taskList.SearchMode()
	case ViewTask:
		return m.checklistView.Editing() || m.timeLogView.Editing()
	}
	return false
}

// handleGlobalKey processes keys that are not owned by the active view.
func (m Model) handleGlobalKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil, true

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		m.commandView.SetTarget(m.selectionLabel())
		cmd := m.commandView.Focus()
		return m, cmd, true
	}

	switch m.currentView {
	case ViewList:
		switch {
		case key.Matches(msg, m.keys.Quit):
			cmd := m.quit()
			return m, cmd, true
		case key.Matches(msg, m.keys.Edit):
			task, ok := m.taskList.SelectedTask()
			if !ok {
				return m, nil, true
			}
			m.previousView = m.currentView
			m.currentView = ViewTaskForm
			cmd := m.taskForm.StartEdit(task)
			return m, cmd, true
		case key.Matches(msg, m.keys.Delete):
			task, ok := m.taskList.SelectedTask()
			if !ok {
				return m, nil, true
			}
			cmd := m.deleteTaskConfirmed(task)
			return m, cmd, true
		}

	case ViewTask:
		switch {
		case key.Matches(msg, m.keys.Back):
			m.currentView = ViewList
			return m, m.taskList.LoadTasks(), true
		case key.Matches(msg, m.keys.SwitchPane):
			if m.focus == paneChecklist {
				m.focus = paneTimeLog
			} else {
				m.focus = paneChecklist
			}
			return m, nil, true
		}

	case ViewHelp:
		if key.Matches(msg, m.keys.Back) {
			m.currentView = m.previousView
			return m, nil, true
		}

	case ViewInbox:
		return m.handleInboxKey(msg)
	}

	return m, nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.taskList, cmd = m.taskList.Update(msg)
	case ViewTask:
		if m.focus == paneTimeLog {
			m.timeLogView, cmd = m.timeLogView.Update(msg)
		} else {
			m.checklistView, cmd = m.checklistView.Update(msg)
		}
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewTaskForm:
		m.taskForm, cmd = m.taskForm.Update(msg)
	case ViewBulkAdd:
		m.bulkAdd, cmd = m.bulkAdd.Update(msg)
	case ViewConfig:
		m.configView, cmd = m.configView.Update(msg)
	}

	return m, cmd
}

// resize propagates the layout to every view.
func (m *Model) resize() {
	contentWidth := m.layout.ContentWidth()
	contentHeight := m.layout.ContentHeight()
	paneWidth, paneHeight := m.paneSize()

	m.taskList.SetSize(contentWidth, contentHeight)
	m.checklistView.SetSize(paneWidth, paneHeight)
	m.timeLogView.SetSize(paneWidth, paneHeight)
	m.helpView.SetSize(contentWidth, contentHeight)
	m.commandView.SetSize(contentWidth, contentHeight)
	m.taskForm.SetSize(contentWidth, contentHeight)
	m.bulkAdd.SetSize(contentWidth, contentHeight)
	m.configView.SetSize(contentWidth, contentHeight)
}

// paneSize returns the inner size of one task-view pane. Two lines are
// used by the task heading and two by the pane border.
func (m Model) paneSize() (int, int) {
	width := m.layout.ContentWidth() - 2
	if m.layout.Width >= splitMinWidth {
		width = m.layout.ContentWidth()/2 - 2
	}
	return width, m.layout.ContentHeight() - 4
}

// applyConfig picks up settings that may change while running.
func (m *Model) applyConfig(cfg *model.AppConfig) {
	m.cfg = cfg
	m.tickInterval = cfg.TickInterval()
	m.confirmWindow = cfg.ConfirmWindow()
	view := m.ws.Settings()
	view.ConfirmWindow = cfg.ConfirmWindow()
	view.ShowCompleted = cfg.Checklist.ShowCompleted
	m.log.Info("config reloaded",
		"tick", m.tickInterval.String(), "confirm_window", m.confirmWindow.String())
}

func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// syncRunning marks the timer's task in the task list.
func (m *Model) syncRunning() {
	live := m.ws.Live()
	if live.Running {
		m.taskList.SetRunningTask(live.TaskID)
		return
	}
	m.taskList.SetRunningTask("")
}

// showToast displays text in the status bar for toastTTL.
func (m *Model) showToast(text string) tea.Cmd {
	m.toastSeq++
	m.toast = text
	seq := m.toastSeq
	return tea.Tick(toastTTL, func(time.Time) tea.Msg { return toastExpiredMsg{seq: seq} })
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	headerTitle := "tasktimer"
	if m.currentView == ViewTask {
		if t := m.ws.Task(); t != nil {
			headerTitle = t.Title
		}
	}
	if m.unreadCount > 0 {
		headerTitle = fmt.Sprintf("%s [%d new]", headerTitle, m.unreadCount)
	}
	header := m.layout.RenderHeader(headerTitle, m.timerStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.toast)

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.taskList.View()
	case ViewTask:
		return m.renderTaskView()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewTaskForm:
		return m.taskForm.View()
	case ViewBulkAdd:
		return m.bulkAdd.View()
	case ViewConfig:
		return m.configView.View()
	case ViewInbox:
		return m.renderInbox()
	default:
		return ""
	}
}

// renderTaskView shows the task heading above the checklist and time log.
func (m Model) renderTaskView() string {
	task := m.ws.Task()
	if task == nil {
		return ""
	}

	done, total := 0, 0
	for _, s := range m.ws.Tree() {
		done += s.CompletedCount()
		total += len(s.Items)
	}
	heading := lipgloss.JoinVertical(lipgloss.Left,
		theme.StatusStyle(task.Status).Render(task.Status)+" "+
			theme.DimmedStyle.Render(fmt.Sprintf("%d/%d done", done, total)),
		theme.DimmedStyle.Render(firstLine(task.Description)),
	)

	paneWidth, paneHeight := m.paneSize()
	frame := func(content string, focused bool) string {
		style := theme.BorderStyle.Width(paneWidth).Height(paneHeight)
		if focused {
			style = style.BorderForeground(theme.ColorBlue)
		}
		return style.Render(content)
	}

	var body string
	switch {
	case m.layout.Width >= splitMinWidth:
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			frame(m.checklistView.View(), m.focus == paneChecklist),
			frame(m.timeLogView.View(), m.focus == paneTimeLog),
		)
	case m.focus == paneTimeLog:
		body = frame(m.timeLogView.View(), true)
	default:
		body = frame(m.checklistView.View(), true)
	}

	return lipgloss.JoinVertical(lipgloss.Left, heading, body)
}

// timerStatus describes the running timer for the header.
func (m Model) timerStatus() string {
	live := m.ws.Live()
	if !live.Running {
		return "timer idle"
	}
	status := "▶ " + ui.FormatDuration(live.ElapsedMs)
	if t := m.ws.Task(); t == nil || t.ID != live.TaskID {
		status += " (other task)"
	}
	return status
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewTaskForm, ViewBulkAdd, ViewConfig:
		return "enter submit | esc cancel"
	case ViewInbox:
		return "enter mark read | c mark all read | esc back"
	case ViewTask:
		if m.focus == paneTimeLog {
			return "t start/stop | a add | e rename | d delete | tab checklist | esc back"
		}
		return "space toggle | a add | s send | S send+start | u undo | tab time log | esc back"
	default:
		return "q quit | ? help | n new | enter open | e edit | d delete | / search | tab sort"
	}
}

// selectionLabel describes what palette commands will target.
func (m Model) selectionLabel() string {
	if m.currentView != ViewTask {
		return ""
	}
	if m.focus == paneTimeLog {
		entryID, sessionID := m.timeLogView.Selection()
		switch {
		case entryID != 0:
			return fmt.Sprintf("entry %d", entryID)
		case sessionID != 0:
			return fmt.Sprintf("session %d", sessionID)
		}
		return ""
	}
	sectionID, itemID := m.checklistView.Selection()
	for _, s := range m.ws.Tree() {
		if s.ID != sectionID {
			continue
		}
		for _, it := range s.Items {
			if it.ID == itemID {
				return fmt.Sprintf("%s › %s", s.Title, it.Text)
			}
		}
		return s.Title
	}
	return ""
}

// firstLine returns the first line of s.
func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
