package checklist

import (
	"reflect"
	"testing"

	"github.com/nhle/tasktimer/internal/idgen"
	"github.com/nhle/tasktimer/internal/model"
)

func sampleTree() []model.ChecklistSection {
	return []model.ChecklistSection{
		{ID: 1, Title: "A", Items: []model.ChecklistItem{
			{ID: 10, Text: "a1"},
			{ID: 11, Text: "a2", IsCompleted: true},
		}},
		{ID: 2, Title: "B", Items: []model.ChecklistItem{
			{ID: 20, Text: "b1", IsCompleted: true},
		}},
		{ID: 3, Title: "C", Items: []model.ChecklistItem{}},
	}
}

func sectionIDs(tree []model.ChecklistSection) []int64 {
	ids := make([]int64, len(tree))
	for i, s := range tree {
		ids[i] = s.ID
	}
	return ids
}

func itemTexts(s model.ChecklistSection) []string {
	out := make([]string, len(s.Items))
	for i, it := range s.Items {
		out[i] = it.Text
	}
	return out
}

func TestAddSection(t *testing.T) {
	ids := idgen.NewSequence(100)
	tree := AddSection(nil, ids)

	if len(tree) != 1 {
		t.Fatalf("len = %d, want 1", len(tree))
	}
	if tree[0].Title != DefaultSectionTitle {
		t.Errorf("Title = %q, want %q", tree[0].Title, DefaultSectionTitle)
	}
	if tree[0].ID != 100 {
		t.Errorf("ID = %d, want 100", tree[0].ID)
	}
	if tree[0].Items == nil || len(tree[0].Items) != 0 {
		t.Errorf("Items = %v, want empty non-nil slice", tree[0].Items)
	}

	tree2 := AddSection(tree, ids)
	if got := sectionIDs(tree2); !reflect.DeepEqual(got, []int64{100, 101}) {
		t.Errorf("section ids = %v, want [100 101]", got)
	}
	if len(tree) != 1 {
		t.Errorf("input tree was modified: len = %d", len(tree))
	}
}

func TestDeleteSection(t *testing.T) {
	tree := sampleTree()

	got := DeleteSection(tree, 2)
	if ids := sectionIDs(got); !reflect.DeepEqual(ids, []int64{1, 3}) {
		t.Errorf("section ids = %v, want [1 3]", ids)
	}
	if ids := sectionIDs(tree); !reflect.DeepEqual(ids, []int64{1, 2, 3}) {
		t.Errorf("input modified: %v", ids)
	}

	if same := DeleteSection(tree, 99); !SameTree(same, tree) {
		t.Error("deleting an unknown section should return the input")
	}
}

func TestDuplicateSection(t *testing.T) {
	tree := sampleTree()
	tree[0].Items[0].LoggedTime = model.Int64Ptr(5000)
	tree[0].Items[0].Note = model.StringPtr("")

	got := DuplicateSection(tree, 1, idgen.NewSequence(500))

	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	dup := got[1]
	if dup.ID != 500 {
		t.Errorf("dup.ID = %d, want 500", dup.ID)
	}
	if dup.Title != "A (Copy)" {
		t.Errorf("dup.Title = %q, want %q", dup.Title, "A (Copy)")
	}
	if !reflect.DeepEqual(itemTexts(dup), []string{"a1", "a2"}) {
		t.Errorf("dup items = %v", itemTexts(dup))
	}
	if dup.Items[0].ID != 501 || dup.Items[1].ID != 502 {
		t.Errorf("dup item ids = %d,%d, want 501,502", dup.Items[0].ID, dup.Items[1].ID)
	}
	if dup.Items[0].LoggedTime != nil {
		t.Error("duplicate carried over logged time")
	}
	if dup.Items[0].Note == nil || *dup.Items[0].Note != "" {
		t.Error("duplicate lost the empty note")
	}
	if dup.Items[0].Note == tree[0].Items[0].Note {
		t.Error("duplicate shares the note pointer with the original")
	}
	if !dup.Items[1].IsCompleted {
		t.Error("duplicate lost completion state")
	}
}

func TestMoveSection(t *testing.T) {
	tests := []struct {
		name string
		id   int64
		dir  Direction
		want []int64
	}{
		{"middle up", 2, Up, []int64{2, 1, 3}},
		{"middle down", 2, Down, []int64{1, 3, 2}},
		{"first up is no-op", 1, Up, []int64{1, 2, 3}},
		{"last down is no-op", 3, Down, []int64{1, 2, 3}},
		{"unknown is no-op", 42, Down, []int64{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := sampleTree()
			got := MoveSection(tree, tt.id, tt.dir)
			if ids := sectionIDs(got); !reflect.DeepEqual(ids, tt.want) {
				t.Errorf("MoveSection() = %v, want %v", ids, tt.want)
			}
			if ids := sectionIDs(tree); !reflect.DeepEqual(ids, []int64{1, 2, 3}) {
				t.Errorf("input modified: %v", ids)
			}
		})
	}
}

func TestAddItems(t *testing.T) {
	tree := sampleTree()
	got := AddItems(tree, 3, "  Buy milk \n\n   \nCall bank\r\n", idgen.NewSequence(900))

	sec, _ := FindSection(got, 3)
	if !reflect.DeepEqual(itemTexts(sec), []string{"Buy milk", "Call bank"}) {
		t.Errorf("items = %v", itemTexts(sec))
	}
	for _, it := range sec.Items {
		if it.IsCompleted {
			t.Errorf("item %q is completed", it.Text)
		}
	}
	if sec.Items[0].ID != 900 || sec.Items[1].ID != 901 {
		t.Errorf("ids = %d,%d", sec.Items[0].ID, sec.Items[1].ID)
	}

	orig, _ := FindSection(tree, 3)
	if len(orig.Items) != 0 {
		t.Error("input section was modified")
	}

	if same := AddItems(tree, 3, " \n \n", idgen.NewSequence(1)); !SameTree(same, tree) {
		t.Error("blank input should be a no-op")
	}
}

func TestToggleItem_CompletionSignal(t *testing.T) {
	tree := []model.ChecklistSection{{ID: 1, Title: "S", Items: []model.ChecklistItem{
		{ID: 10, Text: "x"},
		{ID: 11, Text: "y"},
	}}}

	tree, evt := ToggleItem(tree, 1, 10)
	if evt == nil {
		t.Fatal("expected completion event on false->true")
	}
	if evt.Item.Text != "x" || evt.SectionID != 1 || evt.SectionTitle != "S" {
		t.Errorf("event = %+v", evt)
	}
	if evt.SectionCompleted {
		t.Error("SectionCompleted = true with an open item left")
	}

	tree, evt = ToggleItem(tree, 1, 10)
	if evt != nil {
		t.Errorf("unexpected event on true->false: %+v", evt)
	}

	tree, evt = ToggleItem(tree, 1, 10)
	if evt == nil {
		t.Fatal("expected event when re-completing")
	}

	_, evt = ToggleItem(tree, 1, 11)
	if evt == nil || !evt.SectionCompleted {
		t.Errorf("completing the last item should flag the section: %+v", evt)
	}
}

func TestToggleItem_UncheckKeepsLoggedTime(t *testing.T) {
	tree := []model.ChecklistSection{{ID: 1, Items: []model.ChecklistItem{
		{ID: 10, Text: "x", IsCompleted: true, LoggedTime: model.Int64Ptr(1234)},
	}}}

	got, _ := ToggleItem(tree, 1, 10)
	it := got[0].Items[0]
	if it.IsCompleted {
		t.Error("item still completed")
	}
	if it.LoggedTime == nil || *it.LoggedTime != 1234 {
		t.Errorf("LoggedTime = %v, want 1234", it.LoggedTime)
	}
	if !tree[0].Items[0].IsCompleted {
		t.Error("input item was modified")
	}
}

func TestDeleteChecked(t *testing.T) {
	t.Run("one section", func(t *testing.T) {
		tree := sampleTree()
		id := int64(1)
		got := DeleteChecked(tree, &id)
		a, _ := FindSection(got, 1)
		b, _ := FindSection(got, 2)
		if !reflect.DeepEqual(itemTexts(a), []string{"a1"}) {
			t.Errorf("A items = %v", itemTexts(a))
		}
		if len(b.Items) != 1 {
			t.Errorf("B should be untouched, got %v", itemTexts(b))
		}
	})

	t.Run("all sections", func(t *testing.T) {
		tree := sampleTree()
		got := DeleteChecked(tree, nil)
		total, done := Counts(got)
		if total != 1 || done != 0 {
			t.Errorf("Counts() = %d,%d, want 1,0", total, done)
		}
		if total, _ := Counts(tree); total != 3 {
			t.Errorf("input modified: total = %d", total)
		}
	})

	t.Run("nothing checked", func(t *testing.T) {
		tree := []model.ChecklistSection{{ID: 1, Items: []model.ChecklistItem{{ID: 2}}}}
		if got := DeleteChecked(tree, nil); !SameTree(got, tree) {
			t.Error("expected no-op")
		}
	})
}

func TestItemEdits(t *testing.T) {
	tree := sampleTree()

	tree = SetNote(tree, 1, 10, model.StringPtr(""))
	it, _, _ := FindItem(tree, 10)
	if it.Note == nil || *it.Note != "" {
		t.Fatalf("Note = %v, want empty string", it.Note)
	}

	tree = SetNote(tree, 1, 10, nil)
	it, _, _ = FindItem(tree, 10)
	if it.Note != nil {
		t.Errorf("Note = %q, want nil", *it.Note)
	}

	tree = SetResponse(tree, 1, 10, model.StringPtr("done by Friday"))
	tree = SetDueDate(tree, 1, 10, model.Int64Ptr(1_700_000_000_000))
	tree = SetHighlightColor(tree, 1, 10, model.StringPtr("#ff0"))
	tree = EditItemText(tree, 1, 10, "  renamed ")
	it, _, _ = FindItem(tree, 10)
	if *it.Response != "done by Friday" || *it.DueDate != 1_700_000_000_000 ||
		*it.HighlightColor != "#ff0" || it.Text != "renamed" {
		t.Errorf("item = %+v", it)
	}

	before := tree
	if got := EditItemText(before, 1, 10, "   "); !SameTree(got, before) {
		t.Error("blank text should be ignored")
	}

	tree = MarkItemTimed(tree, 1, 10)
	it, _, _ = FindItem(tree, 10)
	if it.LoggedTime == nil || *it.LoggedTime != 0 {
		t.Errorf("LoggedTime = %v, want 0", it.LoggedTime)
	}
	before = tree
	if got := MarkItemTimed(before, 1, 10); !SameTree(got, before) {
		t.Error("MarkItemTimed on an already-timed item should be a no-op")
	}
}

func TestMarkOpenItemsTimed(t *testing.T) {
	tree := sampleTree()
	tree = append(tree, model.ChecklistSection{ID: 4, Title: "D", Items: []model.ChecklistItem{{ID: 40, Text: "d1"}}})

	sec := int64(1)
	got := MarkOpenItemsTimed(tree, &sec)
	a1, _, _ := FindItem(got, 10)
	a2, _, _ := FindItem(got, 11)
	d1, _, _ := FindItem(got, 40)
	if a1.LoggedTime == nil || a2.LoggedTime != nil || d1.LoggedTime != nil {
		t.Errorf("single section: a1=%v a2=%v d1=%v", a1.LoggedTime, a2.LoggedTime, d1.LoggedTime)
	}

	all := MarkOpenItemsTimed(tree, nil)
	d1, _, _ = FindItem(all, 40)
	if d1.LoggedTime == nil {
		t.Error("all sections: d1 not marked")
	}
	if again := MarkOpenItemsTimed(all, nil); !SameTree(again, all) {
		t.Error("second pass should be a no-op")
	}
}

func TestMoveAndDeleteItem(t *testing.T) {
	tree := sampleTree()
	got := MoveItem(tree, 1, 11, Up)
	a, _ := FindSection(got, 1)
	if !reflect.DeepEqual(itemTexts(a), []string{"a2", "a1"}) {
		t.Errorf("items = %v", itemTexts(a))
	}
	if same := MoveItem(tree, 1, 10, Up); !SameTree(same, tree) {
		t.Error("moving the first item up should be a no-op")
	}

	got = DeleteItem(got, 1, 10)
	a, _ = FindSection(got, 1)
	if !reflect.DeepEqual(itemTexts(a), []string{"a2"}) {
		t.Errorf("items = %v", itemTexts(a))
	}
}

func TestUniqueIDsUnderMixedOperations(t *testing.T) {
	ids := idgen.New()
	var tree []model.ChecklistSection

	for i := 0; i < 20; i++ {
		tree = AddSection(tree, ids)
		tree = AddItems(tree, tree[len(tree)-1].ID, "one\ntwo\nthree", ids)
		tree = DuplicateSection(tree, tree[0].ID, ids)
	}
	tree = AppendSections(tree, ParseBulk("### X\na\nb\n---\n### Y\nc", ids))

	seen := make(map[int64]bool)
	for _, s := range tree {
		if seen[s.ID] {
			t.Fatalf("duplicate section id %d", s.ID)
		}
		seen[s.ID] = true
		for _, it := range s.Items {
			if seen[it.ID] {
				t.Fatalf("duplicate item id %d", it.ID)
			}
			seen[it.ID] = true
		}
	}
}

func TestMaxID(t *testing.T) {
	if got := MaxID(sampleTree()); got != 20 {
		t.Errorf("MaxID() = %d, want 20", got)
	}
	if got := MaxID(nil); got != 0 {
		t.Errorf("MaxID(nil) = %d, want 0", got)
	}
}
