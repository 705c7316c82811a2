// Package command defines the typed commands a task workspace executes.
//
// Every user action, whether it comes from a key binding, the command
// palette or the CLI, is a Command value. Dispatchers switch on Kind; the
// palette turns text into a Command with Parse.
package command

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrUnknownCommand is returned for palette input or kinds that no
// dispatcher handles.
var ErrUnknownCommand = errors.New("unknown command")

// Kind identifies a command variant.
type Kind int

const (
	KindInvalid Kind = iota

	// Checklist structure.
	KindAddSection
	KindDeleteSection
	KindDuplicateSection
	KindMoveSectionUp
	KindMoveSectionDown
	KindRenameSection
	KindBulkAdd

	// Checklist items.
	KindAddItems
	KindToggleItem
	KindDeleteItem
	KindDeleteChecked
	KindMoveItemUp
	KindMoveItemDown
	KindEditItem
	KindSetNote
	KindClearNote
	KindSetResponse
	KindClearResponse
	KindSetDueDate
	KindClearDueDate
	KindSetHighlight

	// Time log.
	KindSendItem
	KindSendSection
	KindSendAll
	KindStartEntry
	KindStopTimer
	KindDeleteEntry
	KindRenameEntry
	KindAddEntry
	KindWipeLog
	KindArchiveSession
	KindRenameSession
	KindDeleteSession
	KindRestoreSession

	// History.
	KindUndo
	KindRedo

	// View settings.
	KindToggleShowCompleted
	KindToggleSectionOpen
	KindHideSection
	KindShowAllSections
)

var kindNames = map[Kind]string{
	KindAddSection:          "add-section",
	KindDeleteSection:       "delete-section",
	KindDuplicateSection:    "duplicate-section",
	KindMoveSectionUp:       "move-section-up",
	KindMoveSectionDown:     "move-section-down",
	KindRenameSection:       "rename-section",
	KindBulkAdd:             "bulk-add",
	KindAddItems:            "add",
	KindToggleItem:          "toggle",
	KindDeleteItem:          "delete-item",
	KindDeleteChecked:       "delete-checked",
	KindMoveItemUp:          "move-item-up",
	KindMoveItemDown:        "move-item-down",
	KindEditItem:            "edit",
	KindSetNote:             "note",
	KindClearNote:           "clear-note",
	KindSetResponse:         "response",
	KindClearResponse:       "clear-response",
	KindSetDueDate:          "due",
	KindClearDueDate:        "clear-due",
	KindSetHighlight:        "highlight",
	KindSendItem:            "send",
	KindSendSection:         "send-section",
	KindSendAll:             "send-all",
	KindStartEntry:          "start",
	KindStopTimer:           "stop",
	KindDeleteEntry:         "delete-entry",
	KindRenameEntry:         "rename-entry",
	KindAddEntry:            "add-entry",
	KindWipeLog:             "wipe-log",
	KindArchiveSession:      "archive",
	KindRenameSession:       "rename-session",
	KindDeleteSession:       "delete-session",
	KindRestoreSession:      "restore-session",
	KindUndo:                "undo",
	KindRedo:                "redo",
	KindToggleShowCompleted: "toggle-completed",
	KindToggleSectionOpen:   "fold",
	KindHideSection:         "hide-section",
	KindShowAllSections:     "show-all",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// String returns the palette name of k.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Destructive reports whether k discards data in a way undo cannot restore
// and so needs a confirmation step.
func (k Kind) Destructive() bool {
	switch k {
	case KindWipeLog, KindDeleteSession, KindDeleteEntry:
		return true
	default:
		return false
	}
}

// Command is one user action. Only the fields relevant to Kind are set.
type Command struct {
	Kind Kind

	SectionID int64
	ItemID    int64
	EntryID   int64
	SessionID int64

	// Text is the free-form argument: item text, titles, notes, colours.
	Text string

	// Start asks send commands to start the timer on the first new entry.
	Start bool

	// Due is a due date in Unix milliseconds.
	Due int64

	// AllSections widens DeleteChecked from SectionID to every section.
	AllSections bool
}

// WithSection returns a copy of c targeting sectionID.
func (c Command) WithSection(sectionID int64) Command {
	c.SectionID = sectionID
	return c
}

// WithItem returns a copy of c targeting itemID in sectionID.
func (c Command) WithItem(sectionID, itemID int64) Command {
	c.SectionID = sectionID
	c.ItemID = itemID
	return c
}

// WithEntry returns a copy of c targeting a time-log entry.
func (c Command) WithEntry(entryID int64) Command {
	c.EntryID = entryID
	return c
}

// WithSession returns a copy of c targeting an archived session.
func (c Command) WithSession(sessionID int64) Command {
	c.SessionID = sessionID
	return c
}

func (c Command) String() string {
	if c.Text == "" {
		return c.Kind.String()
	}
	return c.Kind.String() + " " + c.Text
}

// Names returns every palette name, sorted.
func Names() []string {
	names := make([]string, 0, len(kindNames))
	for _, name := range kindNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse turns palette input such as "send! " or "note call back" into a
// Command. Targets (section, item, entry, session) are not part of the
// palette syntax; the caller fills them from the current selection.
//
// A trailing "!" on send commands starts the timer. The due command takes
// a date in YYYY-MM-DD form. delete-checked takes an optional "all".
func Parse(input string) (Command, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Command{}, fmt.Errorf("empty input: %w", ErrUnknownCommand)
	}

	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	start := false
	if strings.HasSuffix(name, "!") {
		name = strings.TrimSuffix(name, "!")
		start = true
	}

	kind, ok := kindsByName[strings.ToLower(name)]
	if !ok {
		return Command{}, fmt.Errorf("%q: %w", name, ErrUnknownCommand)
	}
	cmd := Command{Kind: kind, Text: arg}

	if start {
		switch kind {
		case KindSendItem, KindSendSection, KindSendAll:
			cmd.Start = true
		default:
			return Command{}, fmt.Errorf("%q does not take \"!\"", name)
		}
	}

	switch kind {
	case KindAddItems, KindBulkAdd, KindEditItem, KindRenameSection,
		KindRenameEntry, KindAddEntry, KindRenameSession, KindSetHighlight:
		if arg == "" {
			return Command{}, fmt.Errorf("%s needs an argument", name)
		}
	case KindSetDueDate:
		due, err := parseDue(arg)
		if err != nil {
			return Command{}, err
		}
		cmd.Due = due
		cmd.Text = ""
	case KindDeleteChecked:
		if arg == "all" {
			cmd.AllSections = true
			cmd.Text = ""
		}
	}

	return cmd, nil
}

// parseDue accepts YYYY-MM-DD (local midnight) or raw Unix milliseconds.
func parseDue(arg string) (int64, error) {
	if arg == "" {
		return 0, fmt.Errorf("due needs a date (YYYY-MM-DD)")
	}
	if ms, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return ms, nil
	}
	t, err := time.ParseInLocation("2006-01-02", arg, time.Local)
	if err != nil {
		return 0, fmt.Errorf("parsing due date %q: %w", arg, err)
	}
	return t.UnixMilli(), nil
}
