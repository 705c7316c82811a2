package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/tasktimer/internal/command"
)

// ExecuteMsg asks the root model to run a command against the open task.
type ExecuteMsg struct {
	Command command.Command
}

// Execute returns a tea.Cmd emitting ExecuteMsg for cmd.
func Execute(cmd command.Command) tea.Cmd {
	return func() tea.Msg { return ExecuteMsg{Command: cmd} }
}

// BulkAddRequestMsg asks the root model to open the bulk-add form.
type BulkAddRequestMsg struct{}
