package model

// EntryType distinguishes playable time-log entries from section markers.
type EntryType string

const (
	EntryTypeHeader EntryType = "header"
	EntryTypeEntry  EntryType = "entry"
)

// TimeLogEntry is one row in a task's time log. Durations are in milliseconds.
type TimeLogEntry struct {
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	Duration    int64     `json:"duration"`
	Type        EntryType `json:"type"`
	IsRunning   bool      `json:"isRunning,omitempty"`
	StartTime   *int64    `json:"startTime,omitempty"`
	CreatedAt   *int64    `json:"createdAt,omitempty"`

	// ChecklistItemID is a lookup-only reference to the item this entry was
	// created from. Deleting the item does not delete the entry.
	ChecklistItemID *int64 `json:"checklistItemId,omitempty"`
}

// IsHeader reports whether e is a non-playable section marker.
func (e TimeLogEntry) IsHeader() bool { return e.Type == EntryTypeHeader }

// LinkedTo reports whether e references the checklist item with itemID.
func (e TimeLogEntry) LinkedTo(itemID int64) bool {
	return e.ChecklistItemID != nil && *e.ChecklistItemID == itemID
}

// TimeLogSession is a named, archived snapshot of a previous time log.
type TimeLogSession struct {
	ID        int64          `json:"id" db:"id"`
	Title     string         `json:"title" db:"title"`
	Entries   []TimeLogEntry `json:"entries" db:"-"`
	CreatedAt int64          `json:"createdAt" db:"created_at"`
}

// TotalDuration sums the durations of every playable entry in s.
func (s TimeLogSession) TotalDuration() int64 {
	var total int64
	for _, e := range s.Entries {
		if !e.IsHeader() {
			total += e.Duration
		}
	}
	return total
}
