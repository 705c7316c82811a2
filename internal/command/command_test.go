package command

import (
	"errors"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	due := time.Date(2026, 3, 14, 0, 0, 0, 0, time.Local).UnixMilli()

	tests := []struct {
		name  string
		input string
		want  Command
	}{
		{"bare", "undo", Command{Kind: KindUndo}},
		{"case insensitive", "  REDO ", Command{Kind: KindRedo}},
		{"text argument", "add buy milk", Command{Kind: KindAddItems, Text: "buy milk"}},
		{"send without start", "send", Command{Kind: KindSendItem}},
		{"send and start", "send!", Command{Kind: KindSendItem, Start: true}},
		{"send all and start", "send-all!", Command{Kind: KindSendAll, Start: true}},
		{"due date", "due 2026-03-14", Command{Kind: KindSetDueDate, Due: due}},
		{"due millis", "due 1700000000000", Command{Kind: KindSetDueDate, Due: 1_700_000_000_000}},
		{"delete checked in section", "delete-checked", Command{Kind: KindDeleteChecked}},
		{"delete checked everywhere", "delete-checked all", Command{Kind: KindDeleteChecked, AllSections: true}},
		{"note may be empty", "note", Command{Kind: KindSetNote}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		unknown bool
	}{
		{"empty", "   ", true},
		{"unknown", "frobnicate", true},
		{"bang on non-send", "undo!", false},
		{"missing text", "add", false},
		{"bad date", "due tomorrow", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if err == nil {
				t.Fatalf("Parse(%q) error = nil", tt.input)
			}
			if got := errors.Is(err, ErrUnknownCommand); got != tt.unknown {
				t.Errorf("errors.Is(err, ErrUnknownCommand) = %v, want %v (err: %v)", got, tt.unknown, err)
			}
		})
	}
}

func TestNamesRoundTrip(t *testing.T) {
	for _, name := range Names() {
		kind, ok := kindsByName[name]
		if !ok {
			t.Fatalf("name %q not indexed", name)
		}
		if kind.String() != name {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, kind.String(), name)
		}
	}
	if len(Names()) != int(KindShowAllSections) {
		t.Errorf("len(Names()) = %d, want one name per kind (%d)", len(Names()), int(KindShowAllSections))
	}
}

func TestCommand_Targets(t *testing.T) {
	c := Command{Kind: KindToggleItem}.WithItem(1, 2)
	if c.SectionID != 1 || c.ItemID != 2 {
		t.Errorf("WithItem() = %+v", c)
	}
	c = Command{Kind: KindStartEntry}.WithEntry(9)
	if c.EntryID != 9 {
		t.Errorf("WithEntry() = %+v", c)
	}
	if KindInvalid.String() != "Kind(0)" {
		t.Errorf("KindInvalid.String() = %q", KindInvalid.String())
	}
}
