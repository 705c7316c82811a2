package timelog

import (
	"testing"
	"time"

	"github.com/nhle/tasktimer/internal/idgen"
	"github.com/nhle/tasktimer/internal/model"
	"github.com/nhle/tasktimer/internal/notify"
	"github.com/nhle/tasktimer/internal/timer"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	clk   *fakeClock
	timer *timer.Timer
	rec   *notify.Recorder
	svc   *Service
}

func newFixture() *fixture {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	tm := timer.NewWithClock(clk.now)
	rec := &notify.Recorder{}
	svc := NewService(tm, rec, idgen.NewSequence(100), WithClock(clk.now))
	return &fixture{clk: clk, timer: tm, rec: rec, svc: svc}
}

func sampleSection() model.ChecklistSection {
	return model.ChecklistSection{
		ID:    1,
		Title: "Backend",
		Items: []model.ChecklistItem{
			{ID: 10, Text: "schema", LoggedTime: model.Int64Ptr(60_000)},
			{ID: 11, Text: "handlers", IsCompleted: true},
			{ID: 12, Text: "tests"},
		},
	}
}

func TestService_SendItemWithoutStart(t *testing.T) {
	f := newFixture()
	item := sampleSection().Items[0]

	entry := f.svc.SendItem("task", item, false)

	if entry.Description != "schema" {
		t.Errorf("Description = %q, want %q", entry.Description, "schema")
	}
	if entry.Duration != 60_000 {
		t.Errorf("Duration = %d, want seeded 60000", entry.Duration)
	}
	if entry.Type != model.EntryTypeEntry {
		t.Errorf("Type = %q, want entry", entry.Type)
	}
	if !entry.LinkedTo(10) {
		t.Errorf("entry not linked to item 10: %+v", entry)
	}
	if entry.IsRunning {
		t.Error("entry running without start")
	}
	if _, _, ok := f.timer.Current(); ok {
		t.Error("timer started without start")
	}
	if got := len(f.svc.Entries("task")); got != 1 {
		t.Errorf("len(Entries) = %d, want 1", got)
	}
}

func TestService_SendItemAndStart(t *testing.T) {
	f := newFixture()
	item := sampleSection().Items[0]

	entry := f.svc.SendItem("task", item, true)
	if !entry.IsRunning || entry.StartTime == nil {
		t.Fatalf("entry not marked running: %+v", entry)
	}
	taskID, entryID, ok := f.timer.Current()
	if !ok || taskID != "task" || entryID != entry.ID {
		t.Fatalf("timer Current() = (%q, %d, %v), want (task, %d, true)", taskID, entryID, ok, entry.ID)
	}

	f.clk.advance(2 * time.Second)
	if got := f.svc.ItemDuration("task", 10); got != 62_000 {
		t.Errorf("ItemDuration() while running = %d, want 62000", got)
	}

	if !f.svc.StopTimer() {
		t.Fatal("StopTimer() reported idle")
	}
	got := f.svc.Entries("task")[0]
	if got.IsRunning || got.StartTime != nil {
		t.Errorf("stopped entry still running: %+v", got)
	}
	if got.Duration != 62_000 {
		t.Errorf("Duration after stop = %d, want 62000", got.Duration)
	}
	if f.svc.StopTimer() {
		t.Error("second StopTimer() reported running")
	}
}

func TestService_StartStopsPreviousEntryInOtherTask(t *testing.T) {
	f := newFixture()
	first := f.svc.SendItem("a", model.ChecklistItem{ID: 1, Text: "one"}, true)
	f.clk.advance(3 * time.Second)

	seen := make(map[string]Snapshot)
	f.svc.Subscribe(func(s Snapshot) { seen[s.TaskID] = s })

	second := f.svc.SendItem("b", model.ChecklistItem{ID: 2, Text: "two"}, true)

	a, ok := seen["a"]
	if !ok {
		t.Fatal("no snapshot published for the stopped task")
	}
	if a.Entries[0].ID != first.ID || a.Entries[0].IsRunning || a.Entries[0].Duration != 3_000 {
		t.Errorf("previous entry = %+v, want stopped with 3000ms", a.Entries[0])
	}
	b, ok := seen["b"]
	if !ok {
		t.Fatal("no snapshot published for the started task")
	}
	if !b.Entries[0].IsRunning {
		t.Errorf("published entry not running: %+v", b.Entries[0])
	}
	if _, entryID, _ := f.timer.Current(); entryID != second.ID {
		t.Errorf("timer entry = %d, want %d", entryID, second.ID)
	}
}

func TestService_ListenersSeeRunningStateAtomically(t *testing.T) {
	f := newFixture()
	var snaps []Snapshot
	f.svc.Subscribe(func(s Snapshot) { snaps = append(snaps, s) })

	f.svc.SendItem("task", model.ChecklistItem{ID: 1, Text: "x"}, true)

	if len(snaps) != 1 {
		t.Fatalf("published %d snapshots, want 1", len(snaps))
	}
	if !snaps[0].Entries[0].IsRunning {
		t.Error("listener saw the appended entry before it was started")
	}
}

func TestService_SendSection(t *testing.T) {
	f := newFixture()
	added := f.svc.SendSection("task", sampleSection(), false)

	if len(added) != 3 {
		t.Fatalf("len(added) = %d, want header + 2 items", len(added))
	}
	if !added[0].IsHeader() || added[0].Description != "Backend" || added[0].Duration != 0 {
		t.Errorf("header = %+v", added[0])
	}
	wantText := []string{"schema", "tests"}
	wantItem := []int64{10, 12}
	for i, e := range added[1:] {
		if e.Description != wantText[i] || !e.LinkedTo(wantItem[i]) {
			t.Errorf("added[%d] = %+v, want %q linked to %d", i+1, e, wantText[i], wantItem[i])
		}
	}
	if len(f.rec.Messages) != 0 {
		t.Errorf("unexpected messages: %v", f.rec.Messages)
	}
}

func TestService_SendSectionStartsFirstItem(t *testing.T) {
	f := newFixture()
	added := f.svc.SendSection("task", sampleSection(), true)

	if added[0].IsRunning {
		t.Error("header started")
	}
	if !added[1].IsRunning {
		t.Errorf("first item not running: %+v", added[1])
	}
	if _, entryID, _ := f.timer.Current(); entryID != added[1].ID {
		t.Errorf("timer entry = %d, want %d", entryID, added[1].ID)
	}
}

func TestService_SendSectionAllComplete(t *testing.T) {
	f := newFixture()
	done := model.ChecklistSection{
		ID:    2,
		Title: "Done",
		Items: []model.ChecklistItem{{ID: 20, Text: "x", IsCompleted: true}},
	}

	if added := f.svc.SendSection("task", done, true); added != nil {
		t.Errorf("SendSection() = %+v, want nil", added)
	}
	if len(f.svc.Entries("task")) != 0 {
		t.Error("log changed for a fully completed section")
	}
	if len(f.rec.Messages) != 1 {
		t.Errorf("Messages = %v, want one message", f.rec.Messages)
	}
	if _, _, ok := f.timer.Current(); ok {
		t.Error("timer started")
	}
}

func TestService_SendAll(t *testing.T) {
	f := newFixture()
	tree := []model.ChecklistSection{
		{ID: 1, Title: "Done", Items: []model.ChecklistItem{{ID: 10, Text: "a", IsCompleted: true}}},
		{ID: 2, Title: "Empty", Items: []model.ChecklistItem{}},
		{ID: 3, Title: "Open", Items: []model.ChecklistItem{{ID: 30, Text: "b"}, {ID: 31, Text: "c"}}},
	}

	added := f.svc.SendAll("task", tree, false)

	var desc []string
	for _, e := range added {
		desc = append(desc, e.Description)
	}
	want := []string{"Open", "b", "c"}
	if len(desc) != len(want) {
		t.Fatalf("added = %v, want %v", desc, want)
	}
	for i := range want {
		if desc[i] != want[i] {
			t.Errorf("added[%d] = %q, want %q", i, desc[i], want[i])
		}
	}

	f2 := newFixture()
	if got := f2.svc.SendAll("task", tree[:2], false); got != nil {
		t.Errorf("SendAll() with nothing open = %+v, want nil", got)
	}
	if len(f2.rec.Messages) != 1 {
		t.Errorf("Messages = %v, want one message", f2.rec.Messages)
	}
}

func TestDisplayedDuration(t *testing.T) {
	entries := []model.TimeLogEntry{
		{ID: 1, Duration: 1_000, ChecklistItemID: model.Int64Ptr(10)},
		{ID: 2, Duration: 2_000, ChecklistItemID: model.Int64Ptr(10)},
		{ID: 3, Duration: 4_000, ChecklistItemID: model.Int64Ptr(11)},
		{ID: 4, Duration: 8_000},
	}

	tests := []struct {
		name   string
		itemID int64
		live   Live
		want   int64
	}{
		{"idle sums linked", 10, Live{}, 3_000},
		{"unlinked item", 99, Live{}, 0},
		{"running linked entry uses live", 10, Live{Running: true, TaskID: "t", EntryID: 2, ElapsedMs: 5_000}, 6_000},
		{"running entry of other task ignored", 10, Live{Running: true, TaskID: "other", EntryID: 2, ElapsedMs: 5_000}, 3_000},
		{"running unlinked entry ignored", 10, Live{Running: true, TaskID: "t", EntryID: 3, ElapsedMs: 5_000}, 3_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayedDuration(entries, tt.itemID, "t", tt.live); got != tt.want {
				t.Errorf("DisplayedDuration() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTotalDuration_SkipsHeaders(t *testing.T) {
	entries := []model.TimeLogEntry{
		{ID: 1, Type: model.EntryTypeHeader, Duration: 500},
		{ID: 2, Type: model.EntryTypeEntry, Duration: 1_000},
		{ID: 3, Type: model.EntryTypeEntry, Duration: 2_000},
	}
	live := Live{Running: true, TaskID: "t", EntryID: 3, ElapsedMs: 2_500}
	if got := TotalDuration(entries, "t", live); got != 3_500 {
		t.Errorf("TotalDuration() = %d, want 3500", got)
	}
}

func TestService_LoadFoldsStaleRunningEntry(t *testing.T) {
	f := newFixture()
	started := f.clk.t.Add(-5 * time.Second).UnixMilli()
	f.svc.Load("task", []model.TimeLogEntry{
		{ID: 7, Duration: 1_000, Type: model.EntryTypeEntry, IsRunning: true, StartTime: &started},
	}, nil)

	got := f.svc.Entries("task")[0]
	if got.IsRunning || got.StartTime != nil {
		t.Errorf("entry still running after load: %+v", got)
	}
	if got.Duration != 6_000 {
		t.Errorf("Duration = %d, want 6000", got.Duration)
	}
}

func TestService_LoadObservesIDs(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	ids := idgen.NewWithClock(clk.now)
	svc := NewService(timer.NewWithClock(clk.now), &notify.Recorder{}, ids, WithClock(clk.now))

	svc.Load("task", []model.TimeLogEntry{{ID: 5_000, Type: model.EntryTypeEntry}}, nil)
	if e := svc.AddEntry("task", "manual"); e.ID <= 5_000 {
		t.Errorf("new entry ID = %d, want > 5000", e.ID)
	}
}

func TestService_StartEntry(t *testing.T) {
	f := newFixture()
	added := f.svc.SendSection("task", sampleSection(), false)

	if f.svc.StartEntry("task", added[0].ID) {
		t.Error("StartEntry() started a header")
	}
	if f.svc.StartEntry("task", 9_999) {
		t.Error("StartEntry() started a missing entry")
	}
	if !f.svc.StartEntry("task", added[1].ID) {
		t.Fatal("StartEntry() = false")
	}
	if f.svc.StartEntry("task", added[1].ID) {
		t.Error("StartEntry() on the running entry reported a change")
	}

	f.clk.advance(time.Second)
	if !f.svc.ToggleEntry("task", added[1].ID) {
		t.Fatal("ToggleEntry() on running entry = false")
	}
	if got := f.svc.Entries("task")[1].Duration; got != 61_000 {
		t.Errorf("Duration = %d, want 61000", got)
	}
}

func TestService_DeleteRunningEntryStopsTimer(t *testing.T) {
	f := newFixture()
	e := f.svc.SendItem("task", model.ChecklistItem{ID: 1, Text: "x"}, true)

	if !f.svc.DeleteEntry("task", e.ID) {
		t.Fatal("DeleteEntry() = false")
	}
	if _, _, ok := f.timer.Current(); ok {
		t.Error("timer still running after its entry was deleted")
	}
	if len(f.svc.Entries("task")) != 0 {
		t.Error("entry not removed")
	}
	if f.svc.DeleteEntry("task", e.ID) {
		t.Error("second DeleteEntry() = true")
	}
}

func TestService_RenameAndSetDuration(t *testing.T) {
	f := newFixture()
	e := f.svc.AddEntry("task", "old")

	if !f.svc.RenameEntry("task", e.ID, "new") {
		t.Error("RenameEntry() = false")
	}
	if f.svc.RenameEntry("task", e.ID, "new") {
		t.Error("RenameEntry() with same text = true")
	}
	if !f.svc.SetEntryDuration("task", e.ID, 90_000) {
		t.Error("SetEntryDuration() = false")
	}
	if f.svc.SetEntryDuration("task", e.ID, -1) {
		t.Error("SetEntryDuration() accepted a negative duration")
	}

	got := f.svc.Entries("task")[0]
	if got.Description != "new" || got.Duration != 90_000 {
		t.Errorf("entry = %+v", got)
	}
}

func TestService_WipeLog(t *testing.T) {
	f := newFixture()
	f.svc.SendItem("task", model.ChecklistItem{ID: 1, Text: "x"}, true)

	if !f.svc.WipeLog("task") {
		t.Fatal("WipeLog() = false")
	}
	if _, _, ok := f.timer.Current(); ok {
		t.Error("timer still running after wipe")
	}
	if len(f.svc.Entries("task")) != 0 {
		t.Error("entries remain after wipe")
	}
	if f.svc.WipeLog("task") {
		t.Error("WipeLog() on empty log = true")
	}
}

func TestService_Sessions(t *testing.T) {
	f := newFixture()

	if _, ok := f.svc.ArchiveSession("task", "empty"); ok {
		t.Error("ArchiveSession() on empty log = true")
	}
	if len(f.rec.Messages) != 1 {
		t.Errorf("Messages = %v, want one", f.rec.Messages)
	}

	f.svc.SendItem("task", model.ChecklistItem{ID: 1, Text: "x"}, true)
	f.clk.advance(4 * time.Second)

	sess, ok := f.svc.ArchiveSession("task", "")
	if !ok {
		t.Fatal("ArchiveSession() = false")
	}
	if sess.Title == "" {
		t.Error("session has no default title")
	}
	if sess.TotalDuration() != 4_000 {
		t.Errorf("session TotalDuration() = %d, want 4000", sess.TotalDuration())
	}
	if sess.Entries[0].IsRunning {
		t.Error("archived entry still running")
	}

	snap := f.svc.Snapshot("task")
	if len(snap.Entries) != 0 || len(snap.Sessions) != 1 {
		t.Fatalf("snapshot = %d entries, %d sessions", len(snap.Entries), len(snap.Sessions))
	}

	if !f.svc.RenameSession("task", sess.ID, "Sprint 1") {
		t.Error("RenameSession() = false")
	}
	if f.svc.Snapshot("task").Sessions[0].Title != "Sprint 1" {
		t.Error("session not renamed")
	}
	if n := f.svc.RestoreSession("task", sess.ID); n != 1 {
		t.Errorf("RestoreSession() = %d, want 1", n)
	}
	restored := f.svc.Entries("task")
	if len(restored) != 1 || restored[0].ID == sess.Entries[0].ID || restored[0].Duration != 4_000 {
		t.Errorf("restored entries = %+v", restored)
	}

	if !f.svc.DeleteSession("task", sess.ID) {
		t.Error("DeleteSession() = false")
	}
	if len(f.svc.Snapshot("task").Sessions) != 0 {
		t.Error("session not deleted")
	}
}
