package checklist

import (
	"github.com/nhle/tasktimer/internal/history"
	"github.com/nhle/tasktimer/internal/idgen"
	"github.com/nhle/tasktimer/internal/logging"
	"github.com/nhle/tasktimer/internal/model"
)

// Editor applies checklist operations to a tree held in an undo history.
// Each operation that changes the tree records exactly one snapshot; no-ops
// record nothing. The current tree is always read from the history.
type Editor struct {
	history *history.Stack[[]model.ChecklistSection]
	ids     idgen.Source
	log     *logging.Logger
}

// NewEditor returns an Editor whose history starts at tree.
func NewEditor(tree []model.ChecklistSection, ids idgen.Source, log *logging.Logger) *Editor {
	if tree == nil {
		tree = []model.ChecklistSection{}
	}
	if log == nil {
		log = logging.NopLogger()
	}
	return &Editor{
		history: history.New(tree),
		ids:     ids,
		log:     log.WithComponent("checklist"),
	}
}

// Tree returns the current tree. Callers must not modify it.
func (e *Editor) Tree() []model.ChecklistSection {
	return e.history.Current()
}

// History exposes the underlying stack for inspection.
func (e *Editor) History() *history.Stack[[]model.ChecklistSection] {
	return e.history
}

// OnReplay registers fn to receive the tree after each undo, redo or reset.
func (e *Editor) OnReplay(fn func([]model.ChecklistSection)) {
	e.history.Subscribe(fn)
}

// Apply runs op against the current tree and records the result when it
// differs from the input. Reports whether a snapshot was recorded.
func (e *Editor) Apply(name string, op func([]model.ChecklistSection) []model.ChecklistSection) bool {
	cur := e.Tree()
	next := op(cur)
	if SameTree(cur, next) {
		e.log.Debug("checklist op was a no-op", "op", name)
		return false
	}
	if !e.history.Record(next) {
		e.log.Warn("checklist op dropped during replay", "op", name)
		return false
	}
	e.log.Debug("checklist op recorded", "op", name, "history_index", e.history.Index())
	return true
}

// AddSection appends a new empty section and returns its id.
func (e *Editor) AddSection() int64 {
	var id int64
	e.Apply("add_section", func(t []model.ChecklistSection) []model.ChecklistSection {
		next := AddSection(t, e.ids)
		id = next[len(next)-1].ID
		return next
	})
	return id
}

// AppendSections appends parsed sections (see ParseBulk).
func (e *Editor) AppendSections(sections []model.ChecklistSection) bool {
	return e.Apply("append_sections", func(t []model.ChecklistSection) []model.ChecklistSection {
		return AppendSections(t, sections)
	})
}

// BulkAdd parses text and appends the resulting sections.
func (e *Editor) BulkAdd(text string) []model.ChecklistSection {
	sections := ParseBulk(text, e.ids)
	e.AppendSections(sections)
	return sections
}

// DeleteSection removes a section.
func (e *Editor) DeleteSection(sectionID int64) bool {
	return e.Apply("delete_section", func(t []model.ChecklistSection) []model.ChecklistSection {
		return DeleteSection(t, sectionID)
	})
}

// DuplicateSection copies a section with fresh ids.
func (e *Editor) DuplicateSection(sectionID int64) bool {
	return e.Apply("duplicate_section", func(t []model.ChecklistSection) []model.ChecklistSection {
		return DuplicateSection(t, sectionID, e.ids)
	})
}

// MoveSection swaps a section with its neighbour.
func (e *Editor) MoveSection(sectionID int64, dir Direction) bool {
	return e.Apply("move_section", func(t []model.ChecklistSection) []model.ChecklistSection {
		return MoveSection(t, sectionID, dir)
	})
}

// RenameSection changes a section title.
func (e *Editor) RenameSection(sectionID int64, title string) bool {
	return e.Apply("rename_section", func(t []model.ChecklistSection) []model.ChecklistSection {
		return RenameSection(t, sectionID, title)
	})
}

// AddItems appends one item per non-blank line of text.
func (e *Editor) AddItems(sectionID int64, text string) bool {
	return e.Apply("add_items", func(t []model.ChecklistSection) []model.ChecklistSection {
		return AddItems(t, sectionID, text, e.ids)
	})
}

// ToggleItem flips an item and returns the completion event, if any.
func (e *Editor) ToggleItem(sectionID, itemID int64) *CompletionEvent {
	var evt *CompletionEvent
	e.Apply("toggle_item", func(t []model.ChecklistSection) []model.ChecklistSection {
		var next []model.ChecklistSection
		next, evt = ToggleItem(t, sectionID, itemID)
		return next
	})
	return evt
}

// DeleteChecked removes completed items from one section, or all when nil.
func (e *Editor) DeleteChecked(sectionID *int64) bool {
	return e.Apply("delete_checked", func(t []model.ChecklistSection) []model.ChecklistSection {
		return DeleteChecked(t, sectionID)
	})
}

// DeleteItem removes one item.
func (e *Editor) DeleteItem(sectionID, itemID int64) bool {
	return e.Apply("delete_item", func(t []model.ChecklistSection) []model.ChecklistSection {
		return DeleteItem(t, sectionID, itemID)
	})
}

// MoveItem swaps an item with its neighbour.
func (e *Editor) MoveItem(sectionID, itemID int64, dir Direction) bool {
	return e.Apply("move_item", func(t []model.ChecklistSection) []model.ChecklistSection {
		return MoveItem(t, sectionID, itemID, dir)
	})
}

// EditItemText replaces an item's text.
func (e *Editor) EditItemText(sectionID, itemID int64, text string) bool {
	return e.Apply("edit_item", func(t []model.ChecklistSection) []model.ChecklistSection {
		return EditItemText(t, sectionID, itemID, text)
	})
}

// SetNote adds, edits or removes an item note.
func (e *Editor) SetNote(sectionID, itemID int64, note *string) bool {
	return e.Apply("set_note", func(t []model.ChecklistSection) []model.ChecklistSection {
		return SetNote(t, sectionID, itemID, note)
	})
}

// SetResponse adds, edits or removes an item response.
func (e *Editor) SetResponse(sectionID, itemID int64, response *string) bool {
	return e.Apply("set_response", func(t []model.ChecklistSection) []model.ChecklistSection {
		return SetResponse(t, sectionID, itemID, response)
	})
}

// SetDueDate sets or clears an item due date.
func (e *Editor) SetDueDate(sectionID, itemID int64, due *int64) bool {
	return e.Apply("set_due_date", func(t []model.ChecklistSection) []model.ChecklistSection {
		return SetDueDate(t, sectionID, itemID, due)
	})
}

// SetHighlightColor sets or clears an item highlight colour.
func (e *Editor) SetHighlightColor(sectionID, itemID int64, color *string) bool {
	return e.Apply("set_highlight", func(t []model.ChecklistSection) []model.ChecklistSection {
		return SetHighlightColor(t, sectionID, itemID, color)
	})
}

// MarkItemTimed lazily initialises an item's logged time. The mark is not
// an edit: it is written into every snapshot of the history, so undo and
// redo never hide an item whose time is in the log.
func (e *Editor) MarkItemTimed(sectionID, itemID int64) bool {
	_, section, ok := FindItem(e.Tree(), itemID)
	if !ok || section.ID != sectionID {
		return false
	}
	return e.markTimed([]int64{itemID})
}

// MarkOpenItemsTimed marks the incomplete items of one section, or of all
// sections when sectionID is nil, the same way MarkItemTimed does.
func (e *Editor) MarkOpenItemsTimed(sectionID *int64) bool {
	var ids []int64
	for _, s := range e.Tree() {
		if sectionID != nil && s.ID != *sectionID {
			continue
		}
		for _, it := range s.IncompleteItems() {
			ids = append(ids, it.ID)
		}
	}
	return e.markTimed(ids)
}

func (e *Editor) markTimed(itemIDs []int64) bool {
	if len(itemIDs) == 0 {
		return false
	}
	before := e.Tree()
	e.history.Rewrite(func(t []model.ChecklistSection) []model.ChecklistSection {
		for _, id := range itemIDs {
			if _, s, ok := FindItem(t, id); ok {
				t = MarkItemTimed(t, s.ID, id)
			}
		}
		return t
	})
	changed := !SameTree(before, e.Tree())
	if changed {
		e.log.Debug("items marked timed", "items", len(itemIDs))
	}
	return changed
}

// Undo steps back one snapshot. Reports whether anything changed.
func (e *Editor) Undo() bool {
	_, ok := e.history.Undo()
	return ok
}

// Redo steps forward one snapshot. Reports whether anything changed.
func (e *Editor) Redo() bool {
	_, ok := e.history.Redo()
	return ok
}

// Reset discards the history and starts again from tree.
func (e *Editor) Reset(tree []model.ChecklistSection) {
	if tree == nil {
		tree = []model.ChecklistSection{}
	}
	e.history.Reset(tree)
}
