package model

// ChecklistSection is a titled, ordered group of checklist items.
// Its position in the containing slice is its display order.
type ChecklistSection struct {
	ID    int64           `json:"id"`
	Title string          `json:"title"`
	Items []ChecklistItem `json:"items"`
}

// ChecklistItem is a single line within a section.
//
// Note and Response distinguish between nil ("not added yet", hidden) and a
// pointer to the empty string ("added but empty", shown and editable).
type ChecklistItem struct {
	ID             int64   `json:"id"`
	Text           string  `json:"text"`
	IsCompleted    bool    `json:"isCompleted"`
	Note           *string `json:"note,omitempty"`
	Response       *string `json:"response,omitempty"`
	DueDate        *int64  `json:"dueDate,omitempty"`
	HighlightColor *string `json:"highlightColor,omitempty"`

	// LoggedTime is set to 0 the first time the item is sent to the timer.
	// Displayed durations are always derived from the time log instead.
	LoggedTime *int64 `json:"loggedTime,omitempty"`
}

// IncompleteItems returns the items of s that are not completed, in order.
func (s ChecklistSection) IncompleteItems() []ChecklistItem {
	var out []ChecklistItem
	for _, it := range s.Items {
		if !it.IsCompleted {
			out = append(out, it)
		}
	}
	return out
}

// CompletedCount returns the number of completed items in s.
func (s ChecklistSection) CompletedCount() int {
	n := 0
	for _, it := range s.Items {
		if it.IsCompleted {
			n++
		}
	}
	return n
}

// StringPtr returns a pointer to a copy of v.
func StringPtr(v string) *string { return &v }

// Int64Ptr returns a pointer to a copy of v.
func Int64Ptr(v int64) *int64 { return &v }
