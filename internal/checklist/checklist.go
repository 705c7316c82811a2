// Package checklist implements the sectioned checklist document of a task.
//
// Every operation takes the current tree and returns a new one. Sections and
// items that an operation touches are copied; everything else is shared with
// the input. Callers must never modify a tree in place, because the undo
// history keeps earlier trees alive and relies on them staying unchanged.
//
// Operations that do not apply (moving the first section up, toggling an item
// that does not exist, and so on) return the input tree itself.
package checklist

import (
	"strings"

	"github.com/nhle/tasktimer/internal/idgen"
	"github.com/nhle/tasktimer/internal/model"
)

// DefaultSectionTitle is the title given to sections created by AddSection.
const DefaultSectionTitle = "New Section"

// Direction is the direction a section or item moves in.
type Direction int

const (
	Up Direction = iota
	Down
)

// CompletionEvent describes an item that just transitioned to completed.
type CompletionEvent struct {
	Item         model.ChecklistItem
	SectionID    int64
	SectionTitle string

	// SectionCompleted is true when this toggle completed the last open
	// item of the section.
	SectionCompleted bool
}

// AddSection appends an empty section with a fresh id.
func AddSection(tree []model.ChecklistSection, ids idgen.Source) []model.ChecklistSection {
	out := make([]model.ChecklistSection, len(tree), len(tree)+1)
	copy(out, tree)
	return append(out, model.ChecklistSection{
		ID:    ids.Next(),
		Title: DefaultSectionTitle,
		Items: []model.ChecklistItem{},
	})
}

// AppendSections appends already-built sections (for example from ParseBulk).
func AppendSections(tree []model.ChecklistSection, sections []model.ChecklistSection) []model.ChecklistSection {
	if len(sections) == 0 {
		return tree
	}
	out := make([]model.ChecklistSection, 0, len(tree)+len(sections))
	out = append(out, tree...)
	return append(out, sections...)
}

// DeleteSection removes a section. Time-log entries that reference its items
// are left alone.
func DeleteSection(tree []model.ChecklistSection, sectionID int64) []model.ChecklistSection {
	idx := sectionIndex(tree, sectionID)
	if idx < 0 {
		return tree
	}
	out := make([]model.ChecklistSection, 0, len(tree)-1)
	out = append(out, tree[:idx]...)
	return append(out, tree[idx+1:]...)
}

// DuplicateSection inserts a deep copy of a section directly after it. The
// copy and each of its items get new ids; logged time is not carried over.
func DuplicateSection(tree []model.ChecklistSection, sectionID int64, ids idgen.Source) []model.ChecklistSection {
	idx := sectionIndex(tree, sectionID)
	if idx < 0 {
		return tree
	}

	src := tree[idx]
	dup := model.ChecklistSection{
		ID:    ids.Next(),
		Title: src.Title + " (Copy)",
		Items: make([]model.ChecklistItem, len(src.Items)),
	}
	for i, it := range src.Items {
		c := cloneItem(it)
		c.ID = ids.Next()
		c.LoggedTime = nil
		dup.Items[i] = c
	}

	out := make([]model.ChecklistSection, 0, len(tree)+1)
	out = append(out, tree[:idx+1]...)
	out = append(out, dup)
	return append(out, tree[idx+1:]...)
}

// MoveSection swaps a section with its neighbour in the given direction.
func MoveSection(tree []model.ChecklistSection, sectionID int64, dir Direction) []model.ChecklistSection {
	idx := sectionIndex(tree, sectionID)
	if idx < 0 {
		return tree
	}
	target := idx - 1
	if dir == Down {
		target = idx + 1
	}
	if target < 0 || target >= len(tree) {
		return tree
	}

	out := cloneTree(tree)
	out[idx], out[target] = out[target], out[idx]
	return out
}

// RenameSection changes a section title.
func RenameSection(tree []model.ChecklistSection, sectionID int64, title string) []model.ChecklistSection {
	title = strings.TrimSpace(title)
	if title == "" {
		return tree
	}
	return updateSection(tree, sectionID, func(s model.ChecklistSection) (model.ChecklistSection, bool) {
		if s.Title == title {
			return s, false
		}
		s.Title = title
		return s, true
	})
}

// AddItems splits text on newlines and appends one incomplete item per
// non-blank trimmed line.
func AddItems(tree []model.ChecklistSection, sectionID int64, text string, ids idgen.Source) []model.ChecklistSection {
	lines := splitLines(text)
	if len(lines) == 0 {
		return tree
	}
	return updateSection(tree, sectionID, func(s model.ChecklistSection) (model.ChecklistSection, bool) {
		items := make([]model.ChecklistItem, len(s.Items), len(s.Items)+len(lines))
		copy(items, s.Items)
		for _, line := range lines {
			items = append(items, model.ChecklistItem{ID: ids.Next(), Text: line})
		}
		s.Items = items
		return s, true
	})
}

// ToggleItem flips an item's completion state. When the item becomes
// completed the returned event is non-nil. Unchecking an item keeps its
// logged time and every time-log association.
func ToggleItem(tree []model.ChecklistSection, sectionID, itemID int64) ([]model.ChecklistSection, *CompletionEvent) {
	var evt *CompletionEvent
	out := updateSection(tree, sectionID, func(s model.ChecklistSection) (model.ChecklistSection, bool) {
		idx := itemIndex(s.Items, itemID)
		if idx < 0 {
			return s, false
		}
		items := cloneItems(s.Items)
		items[idx].IsCompleted = !items[idx].IsCompleted
		s.Items = items

		if items[idx].IsCompleted {
			evt = &CompletionEvent{
				Item:             items[idx],
				SectionID:        s.ID,
				SectionTitle:     s.Title,
				SectionCompleted: s.CompletedCount() == len(items),
			}
		}
		return s, true
	})
	return out, evt
}

// DeleteChecked removes completed items from one section, or from every
// section when sectionID is nil.
func DeleteChecked(tree []model.ChecklistSection, sectionID *int64) []model.ChecklistSection {
	prune := func(s model.ChecklistSection) (model.ChecklistSection, bool) {
		if s.CompletedCount() == 0 {
			return s, false
		}
		kept := make([]model.ChecklistItem, 0, len(s.Items))
		for _, it := range s.Items {
			if !it.IsCompleted {
				kept = append(kept, it)
			}
		}
		s.Items = kept
		return s, true
	}

	if sectionID != nil {
		return updateSection(tree, *sectionID, prune)
	}

	var out []model.ChecklistSection
	for i, s := range tree {
		pruned, changed := prune(s)
		if !changed {
			continue
		}
		if out == nil {
			out = cloneTree(tree)
		}
		out[i] = pruned
	}
	if out == nil {
		return tree
	}
	return out
}

// DeleteItem removes a single item.
func DeleteItem(tree []model.ChecklistSection, sectionID, itemID int64) []model.ChecklistSection {
	return updateSection(tree, sectionID, func(s model.ChecklistSection) (model.ChecklistSection, bool) {
		idx := itemIndex(s.Items, itemID)
		if idx < 0 {
			return s, false
		}
		items := make([]model.ChecklistItem, 0, len(s.Items)-1)
		items = append(items, s.Items[:idx]...)
		s.Items = append(items, s.Items[idx+1:]...)
		return s, true
	})
}

// MoveItem swaps an item with its neighbour inside its section.
func MoveItem(tree []model.ChecklistSection, sectionID, itemID int64, dir Direction) []model.ChecklistSection {
	return updateSection(tree, sectionID, func(s model.ChecklistSection) (model.ChecklistSection, bool) {
		idx := itemIndex(s.Items, itemID)
		if idx < 0 {
			return s, false
		}
		target := idx - 1
		if dir == Down {
			target = idx + 1
		}
		if target < 0 || target >= len(s.Items) {
			return s, false
		}
		items := cloneItems(s.Items)
		items[idx], items[target] = items[target], items[idx]
		s.Items = items
		return s, true
	})
}

// EditItemText replaces an item's text. Blank text is ignored.
func EditItemText(tree []model.ChecklistSection, sectionID, itemID int64, text string) []model.ChecklistSection {
	text = strings.TrimSpace(text)
	if text == "" {
		return tree
	}
	return UpdateItem(tree, sectionID, itemID, func(it model.ChecklistItem) (model.ChecklistItem, bool) {
		if it.Text == text {
			return it, false
		}
		it.Text = text
		return it, true
	})
}

// SetNote adds, edits or (with nil) removes an item's note.
func SetNote(tree []model.ChecklistSection, sectionID, itemID int64, note *string) []model.ChecklistSection {
	return UpdateItem(tree, sectionID, itemID, func(it model.ChecklistItem) (model.ChecklistItem, bool) {
		if equalStringPtr(it.Note, note) {
			return it, false
		}
		it.Note = copyStringPtr(note)
		return it, true
	})
}

// SetResponse adds, edits or (with nil) removes an item's response.
func SetResponse(tree []model.ChecklistSection, sectionID, itemID int64, response *string) []model.ChecklistSection {
	return UpdateItem(tree, sectionID, itemID, func(it model.ChecklistItem) (model.ChecklistItem, bool) {
		if equalStringPtr(it.Response, response) {
			return it, false
		}
		it.Response = copyStringPtr(response)
		return it, true
	})
}

// SetDueDate sets or (with nil) clears an item's due date in epoch milliseconds.
func SetDueDate(tree []model.ChecklistSection, sectionID, itemID int64, due *int64) []model.ChecklistSection {
	return UpdateItem(tree, sectionID, itemID, func(it model.ChecklistItem) (model.ChecklistItem, bool) {
		if equalInt64Ptr(it.DueDate, due) {
			return it, false
		}
		it.DueDate = copyInt64Ptr(due)
		return it, true
	})
}

// SetHighlightColor sets or (with nil) clears an item's highlight colour.
func SetHighlightColor(tree []model.ChecklistSection, sectionID, itemID int64, color *string) []model.ChecklistSection {
	return UpdateItem(tree, sectionID, itemID, func(it model.ChecklistItem) (model.ChecklistItem, bool) {
		if equalStringPtr(it.HighlightColor, color) {
			return it, false
		}
		it.HighlightColor = copyStringPtr(color)
		return it, true
	})
}

// MarkItemTimed initialises LoggedTime to 0 the first time an item is sent
// to the timer. Items that already have a value are left untouched.
func MarkItemTimed(tree []model.ChecklistSection, sectionID, itemID int64) []model.ChecklistSection {
	return UpdateItem(tree, sectionID, itemID, func(it model.ChecklistItem) (model.ChecklistItem, bool) {
		if it.LoggedTime != nil {
			return it, false
		}
		it.LoggedTime = model.Int64Ptr(0)
		return it, true
	})
}

// MarkOpenItemsTimed initialises LoggedTime on every incomplete item of one
// section, or of every section when sectionID is nil.
func MarkOpenItemsTimed(tree []model.ChecklistSection, sectionID *int64) []model.ChecklistSection {
	out := tree
	for _, s := range tree {
		if sectionID != nil && s.ID != *sectionID {
			continue
		}
		for _, it := range s.IncompleteItems() {
			out = MarkItemTimed(out, s.ID, it.ID)
		}
	}
	return out
}

// UpdateItem applies fn to one item. fn reports whether it changed anything.
func UpdateItem(
	tree []model.ChecklistSection,
	sectionID, itemID int64,
	fn func(model.ChecklistItem) (model.ChecklistItem, bool),
) []model.ChecklistSection {
	return updateSection(tree, sectionID, func(s model.ChecklistSection) (model.ChecklistSection, bool) {
		idx := itemIndex(s.Items, itemID)
		if idx < 0 {
			return s, false
		}
		updated, changed := fn(s.Items[idx])
		if !changed {
			return s, false
		}
		items := cloneItems(s.Items)
		items[idx] = updated
		s.Items = items
		return s, true
	})
}

// FindSection returns the section with the given id.
func FindSection(tree []model.ChecklistSection, sectionID int64) (model.ChecklistSection, bool) {
	idx := sectionIndex(tree, sectionID)
	if idx < 0 {
		return model.ChecklistSection{}, false
	}
	return tree[idx], true
}

// FindItem returns the item with the given id and the section containing it.
func FindItem(tree []model.ChecklistSection, itemID int64) (model.ChecklistItem, model.ChecklistSection, bool) {
	for _, s := range tree {
		if idx := itemIndex(s.Items, itemID); idx >= 0 {
			return s.Items[idx], s, true
		}
	}
	return model.ChecklistItem{}, model.ChecklistSection{}, false
}

// MaxID returns the largest section or item id in the tree, or 0.
func MaxID(tree []model.ChecklistSection) int64 {
	var highest int64
	for _, s := range tree {
		if s.ID > highest {
			highest = s.ID
		}
		for _, it := range s.Items {
			if it.ID > highest {
				highest = it.ID
			}
		}
	}
	return highest
}

// Counts returns the total and completed item counts across all sections.
func Counts(tree []model.ChecklistSection) (total, done int) {
	for _, s := range tree {
		total += len(s.Items)
		done += s.CompletedCount()
	}
	return total, done
}

// SameTree reports whether a and b are the same tree value, meaning an
// operation returned its input unchanged.
func SameTree(a, b []model.ChecklistSection) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return (a == nil) == (b == nil)
	}
	return &a[0] == &b[0]
}

func updateSection(
	tree []model.ChecklistSection,
	sectionID int64,
	fn func(model.ChecklistSection) (model.ChecklistSection, bool),
) []model.ChecklistSection {
	idx := sectionIndex(tree, sectionID)
	if idx < 0 {
		return tree
	}
	updated, changed := fn(tree[idx])
	if !changed {
		return tree
	}
	out := cloneTree(tree)
	out[idx] = updated
	return out
}

func sectionIndex(tree []model.ChecklistSection, sectionID int64) int {
	for i, s := range tree {
		if s.ID == sectionID {
			return i
		}
	}
	return -1
}

func itemIndex(items []model.ChecklistItem, itemID int64) int {
	for i, it := range items {
		if it.ID == itemID {
			return i
		}
	}
	return -1
}

func cloneTree(tree []model.ChecklistSection) []model.ChecklistSection {
	out := make([]model.ChecklistSection, len(tree))
	copy(out, tree)
	return out
}

func cloneItems(items []model.ChecklistItem) []model.ChecklistItem {
	out := make([]model.ChecklistItem, len(items))
	copy(out, items)
	return out
}

func cloneItem(it model.ChecklistItem) model.ChecklistItem {
	it.Note = copyStringPtr(it.Note)
	it.Response = copyStringPtr(it.Response)
	it.DueDate = copyInt64Ptr(it.DueDate)
	it.HighlightColor = copyStringPtr(it.HighlightColor)
	it.LoggedTime = copyInt64Ptr(it.LoggedTime)
	return it
}

func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func copyStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyInt64Ptr(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalInt64Ptr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
