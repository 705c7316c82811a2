package checklist

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/nhle/tasktimer/internal/model"
)

// Legacy checklists (a flat list of items with no sections) are wrapped in a
// single section with this id and title.
const (
	LegacySectionID    int64 = 1
	LegacySectionTitle       = "Checklist"
)

// Migrate decodes a stored checklist, wrapping the legacy flat item list
// format into a single section. Sectioned input is returned as-is, so
// migrating an already-migrated checklist is a no-op.
//
// The format is detected from the first element: an "items" key means
// sections, an "isCompleted" key means legacy items.
func Migrate(raw []byte) ([]model.ChecklistSection, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []model.ChecklistSection{}, nil
	}

	var probe []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("decoding checklist: %w", err)
	}
	if len(probe) == 0 {
		return []model.ChecklistSection{}, nil
	}

	_, hasItems := probe[0]["items"]
	_, hasCompleted := probe[0]["isCompleted"]

	if !hasItems && hasCompleted {
		var items []model.ChecklistItem
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decoding legacy checklist items: %w", err)
		}
		return []model.ChecklistSection{{
			ID:    LegacySectionID,
			Title: LegacySectionTitle,
			Items: items,
		}}, nil
	}

	var sections []model.ChecklistSection
	if err := json.Unmarshal(raw, &sections); err != nil {
		return nil, fmt.Errorf("decoding checklist sections: %w", err)
	}
	for i := range sections {
		if sections[i].Items == nil {
			sections[i].Items = []model.ChecklistItem{}
		}
	}
	return sections, nil
}
