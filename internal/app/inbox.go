package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tasktimer/internal/model"
	"github.com/nhle/tasktimer/internal/theme"
)

// handleInboxKey drives the unread-notification list.
func (m Model) handleInboxKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.currentView = m.previousView
		return m, m.fetchUnreadCount(), true
	case key.Matches(msg, m.keys.Up):
		if m.inboxCursor > 0 {
			m.inboxCursor--
		}
		return m, nil, true
	case key.Matches(msg, m.keys.Down):
		if m.inboxCursor < len(m.notifications)-1 {
			m.inboxCursor++
		}
		return m, nil, true
	case key.Matches(msg, m.keys.Select):
		if m.inboxCursor < len(m.notifications) {
			return m, m.markRead(m.notifications[m.inboxCursor].ID), true
		}
		return m, nil, true
	case msg.String() == "c":
		return m, m.markAllRead(), true
	}
	return m, nil, true
}

// renderInbox lists unread notifications, newest first.
func (m Model) renderInbox() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	var lines []string
	if len(m.notifications) == 0 {
		lines = append(lines, theme.DimmedStyle.Render("Inbox is empty."))
	}
	now := time.Now()
	for i, n := range m.notifications {
		line := fmt.Sprintf("%s %s  %s", kindIcon(n.Kind), n.Message,
			theme.DimmedStyle.Render(age(now.Sub(n.CreatedAt))))
		if i == m.inboxCursor {
			lines = append(lines, theme.SelectedItemStyle.Render(line))
		} else {
			lines = append(lines, theme.ListItemStyle.Render(line))
		}
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(fmt.Sprintf("Inbox (%d unread)", len(m.notifications))),
		strings.Join(lines, "\n"),
	)
	return theme.DetailPanelStyle.
		Width(m.layout.ContentWidth() - 4).
		Render(content)
}

func kindIcon(k model.NotificationKind) string {
	switch k {
	case model.NotificationSectionCompleted:
		return "★"
	case model.NotificationItemCompleted:
		return "✓"
	default:
		return "•"
	}
}

func age(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
