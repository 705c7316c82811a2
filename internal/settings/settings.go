// Package settings holds the view state the checklist screens share: which
// sections are folded or hidden and whether completed items are shown.
//
// A Checklist value is owned by the UI and passed explicitly to whatever
// needs it; nothing in this package is global.
package settings

import (
	"time"

	"github.com/nhle/tasktimer/internal/model"
)

// Checklist is the per-workspace view configuration for a checklist.
type Checklist struct {
	ShowCompleted bool
	ConfirmWindow time.Duration

	folded map[int64]bool
	hidden map[int64]bool
}

// FromConfig returns a Checklist seeded from the application config.
func FromConfig(cfg *model.AppConfig) *Checklist {
	c := NewChecklist()
	if cfg != nil {
		c.ShowCompleted = cfg.Checklist.ShowCompleted
		c.ConfirmWindow = cfg.ConfirmWindow()
	}
	return c
}

// NewChecklist returns defaults: everything open, completed items shown.
func NewChecklist() *Checklist {
	return &Checklist{
		ShowCompleted: true,
		ConfirmWindow: 3 * time.Second,
		folded:        make(map[int64]bool),
		hidden:        make(map[int64]bool),
	}
}

// IsOpen reports whether a section's items are expanded.
func (c *Checklist) IsOpen(sectionID int64) bool { return !c.folded[sectionID] }

// IsHidden reports whether a section is hidden entirely.
func (c *Checklist) IsHidden(sectionID int64) bool { return c.hidden[sectionID] }

// ToggleOpen folds or unfolds a section.
func (c *Checklist) ToggleOpen(sectionID int64) {
	if c.folded[sectionID] {
		delete(c.folded, sectionID)
		return
	}
	c.folded[sectionID] = true
}

// Hide removes a section from view until ShowAll is called.
func (c *Checklist) Hide(sectionID int64) { c.hidden[sectionID] = true }

// ShowAll un-hides every section. Reports whether anything was hidden.
func (c *Checklist) ShowAll() bool {
	if len(c.hidden) == 0 {
		return false
	}
	c.hidden = make(map[int64]bool)
	return true
}

// HiddenCount returns the number of hidden sections.
func (c *Checklist) HiddenCount() int { return len(c.hidden) }

// ToggleShowCompleted flips ShowCompleted.
func (c *Checklist) ToggleShowCompleted() { c.ShowCompleted = !c.ShowCompleted }

// Reset clears per-task state. Called when another task is opened.
func (c *Checklist) Reset() {
	c.folded = make(map[int64]bool)
	c.hidden = make(map[int64]bool)
}

// VisibleSections filters out hidden sections.
func (c *Checklist) VisibleSections(tree []model.ChecklistSection) []model.ChecklistSection {
	out := make([]model.ChecklistSection, 0, len(tree))
	for _, s := range tree {
		if !c.hidden[s.ID] {
			out = append(out, s)
		}
	}
	return out
}

// VisibleItems returns the items of s to render: none when folded, and no
// completed ones unless ShowCompleted is set.
func (c *Checklist) VisibleItems(s model.ChecklistSection) []model.ChecklistItem {
	if c.folded[s.ID] {
		return nil
	}
	if c.ShowCompleted {
		return s.Items
	}
	return s.IncompleteItems()
}
