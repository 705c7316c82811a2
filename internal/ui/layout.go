package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tasktimer/internal/theme"
)

// Layout manages the terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	return l.Height - l.HeaderHeight - l.StatusBarHeight
}

// RenderHeader renders the top header bar with a title on the left and the
// timer status on the right.
func (l Layout) RenderHeader(title string, timerStatus string) string {
	titleRendered := theme.HeaderStyle.Render(title)

	statusStyle := theme.HeaderStyle.Align(lipgloss.Right)
	if timerStatus != "" {
		statusStyle = statusStyle.Foreground(theme.ColorGreen)
	}
	statusRendered := statusStyle.Render(timerStatus)

	return joinFilled(theme.HeaderStyle, l.Width, titleRendered, statusRendered)
}

// RenderStatusBar renders the bottom bar: keyboard hints on the left and,
// when set, a toast message on the right.
func (l Layout) RenderStatusBar(hints string, toast string) string {
	rendered := theme.StatusBarStyle.Render(hints)
	if toast == "" {
		return joinFilled(theme.StatusBarStyle, l.Width, rendered, "")
	}
	toastRendered := theme.ToastStyle.
		Background(theme.StatusBarStyle.GetBackground()).
		Render(toast)
	return joinFilled(theme.StatusBarStyle, l.Width, rendered, toastRendered)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}

// joinFilled places left and right on one line of the given width, padding
// the gap with the style's background.
func joinFilled(style lipgloss.Style, width int, left, right string) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}

// FormatDuration renders milliseconds as H:MM:SS, or M:SS under an hour.
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	d := time.Duration(ms) * time.Millisecond
	h := int(d / time.Hour)
	m := int(d%time.Hour) / int(time.Minute)
	s := int(d%time.Minute) / int(time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatDue renders a due date (epoch millis) relative to now: "today",
// "tomorrow", "overdue 3d" or the date itself.
func FormatDue(dueMs int64, now time.Time) (string, bool) {
	due := time.UnixMilli(dueMs).In(now.Location())
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, now.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	days := int(dueDay.Sub(today).Hours() / 24)

	switch {
	case days < 0:
		return fmt.Sprintf("overdue %dd", -days), true
	case days == 0:
		return "today", false
	case days == 1:
		return "tomorrow", false
	default:
		return due.Format("Jan 2"), false
	}
}
