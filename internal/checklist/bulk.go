package checklist

import (
	"strings"

	"github.com/nhle/tasktimer/internal/idgen"
	"github.com/nhle/tasktimer/internal/model"
)

const (
	bulkSectionPrefix = "###"
	bulkSectionClose  = "---"
)

// ParseBulk turns a block of text into sections ready to append:
//
//	### Groceries
//	milk
//	eggs
//	---
//	### Calls
//	bank
//
// A "###" line opens a section titled with the rest of the line. A line that
// is exactly "---" closes the open section. Any other non-blank line becomes
// an item of the open section; lines outside a section are dropped. A section
// still open at the end of the text is kept.
func ParseBulk(text string, ids idgen.Source) []model.ChecklistSection {
	var (
		out  []model.ChecklistSection
		open *model.ChecklistSection
	)

	flush := func() {
		if open != nil {
			out = append(out, *open)
			open = nil
		}
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			continue

		case strings.HasPrefix(line, bulkSectionPrefix):
			flush()
			title := strings.TrimSpace(strings.TrimPrefix(line, bulkSectionPrefix))
			if title == "" {
				title = DefaultSectionTitle
			}
			open = &model.ChecklistSection{
				ID:    ids.Next(),
				Title: title,
				Items: []model.ChecklistItem{},
			}

		case line == bulkSectionClose:
			flush()

		case open != nil:
			open.Items = append(open.Items, model.ChecklistItem{
				ID:   ids.Next(),
				Text: line,
			})
		}
	}
	flush()

	return out
}
