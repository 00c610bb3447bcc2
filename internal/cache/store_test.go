package cache

import (
	"path/filepath"
	"testing"

	"pulseboard/dashboard/internal/db"
	"pulseboard/dashboard/internal/model"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	gdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	store, err := NewSQLStore(gdb)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"sql":    newTestStore(t),
		"memory": NewMemoryStore(),
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		events := []model.Event{
			{ID: "e2", Timestamp: 200, Type: model.EventFileChange, Details: model.EventDetails{FilePath: "b.go"}},
			{ID: "e1", Timestamp: 100, Type: model.EventFileChange, Details: model.EventDetails{FilePath: "a.go"}},
		}
		prompts := []model.Prompt{{ID: "p1", Timestamp: 150, Text: "add a handler"}}
		if err := store.StoreEvents(events); err != nil {
			t.Fatalf("%s: store events: %v", name, err)
		}
		if err := store.StorePrompts(prompts); err != nil {
			t.Fatalf("%s: store prompts: %v", name, err)
		}

		gotEvents, gotPrompts, err := store.GetAll()
		if err != nil {
			t.Fatalf("%s: get all: %v", name, err)
		}
		if len(gotEvents) != 2 || len(gotPrompts) != 1 {
			t.Fatalf("%s: unexpected counts: %d events, %d prompts", name, len(gotEvents), len(gotPrompts))
		}
		if gotEvents[0].ID != "e1" || gotEvents[1].ID != "e2" {
			t.Fatalf("%s: events must come back timestamp-ascending: %v", name, gotEvents)
		}
		if gotPrompts[0].Text != "add a handler" {
			t.Fatalf("%s: prompt payload lost: %+v", name, gotPrompts[0])
		}
	}
}

func TestStore_UpsertLastWriteWins(t *testing.T) {
	for name, store := range stores(t) {
		first := model.Event{ID: "e1", Timestamp: 100, Type: model.EventFileChange, Details: model.EventDetails{FilePath: "old.go"}}
		second := model.Event{ID: "e1", Timestamp: 100, Type: model.EventFileChange, Details: model.EventDetails{FilePath: "new.go"}}
		if err := store.StoreEvents([]model.Event{first}); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if err := store.StoreEvents([]model.Event{second}); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		events, _, err := store.GetAll()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(events) != 1 {
			t.Fatalf("%s: duplicate id must upsert, got %d rows", name, len(events))
		}
		if events[0].Details.FilePath != "new.go" {
			t.Fatalf("%s: last write must win, got %q", name, events[0].Details.FilePath)
		}
	}
}

func TestStore_ServerSequenceMonotonic(t *testing.T) {
	for name, store := range stores(t) {
		if err := store.UpdateServerSequence(10); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		// A lower checkpoint is ignored.
		if err := store.UpdateServerSequence(5); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		seq, err := store.ServerSequence()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if seq != 10 {
			t.Fatalf("%s: sequence must stay at 10, got %d", name, seq)
		}
	}
}

func TestStore_IsCacheStale(t *testing.T) {
	for name, store := range stores(t) {
		if err := store.UpdateServerSequence(7); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		stale, err := store.IsCacheStale(7)
		if err != nil || stale {
			t.Fatalf("%s: equal sequence must not be stale (stale=%v err=%v)", name, stale, err)
		}
		stale, err = store.IsCacheStale(8)
		if err != nil || !stale {
			t.Fatalf("%s: higher sequence must be stale (stale=%v err=%v)", name, stale, err)
		}
	}
}

func TestStore_TrimKeepsNewest(t *testing.T) {
	for name, store := range stores(t) {
		events := make([]model.Event, 10)
		for i := range events {
			events[i] = model.Event{
				ID:        string(rune('a' + i)),
				Timestamp: int64((i + 1) * 100),
				Type:      model.EventFileChange,
			}
		}
		if err := store.StoreEvents(events); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if err := store.Trim(3, 0); err != nil {
			t.Fatalf("%s: trim: %v", name, err)
		}
		got, _, err := store.GetAll()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(got) != 3 {
			t.Fatalf("%s: expected 3 events after trim, got %d", name, len(got))
		}
		for _, ev := range got {
			if ev.Timestamp < 800 {
				t.Fatalf("%s: trim kept an old event: %+v", name, ev)
			}
		}
	}
}

func TestStore_ResumeRoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		in := ResumeState{Subscriptions: []string{"activity", "terminal"}, LastMessageID: 42}
		if err := store.SaveResume(in); err != nil {
			t.Fatalf("%s: save resume: %v", name, err)
		}
		out, err := store.LoadResume()
		if err != nil {
			t.Fatalf("%s: load resume: %v", name, err)
		}
		if out.LastMessageID != 42 {
			t.Fatalf("%s: lost message id: %+v", name, out)
		}
		if len(out.Subscriptions) != 2 || out.Subscriptions[0] != "activity" {
			t.Fatalf("%s: lost subscriptions: %+v", name, out)
		}
	}
}

func TestStore_CommandsLimit(t *testing.T) {
	for name, store := range stores(t) {
		commands := []model.TerminalCommand{
			{ID: "c1", Command: "go vet ./...", Timestamp: 100},
			{ID: "c2", Command: "git status", Timestamp: 300},
			{ID: "c3", Command: "ls", Timestamp: 200},
		}
		if err := store.StoreCommands(commands); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		got, err := store.Commands(2)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(got) != 2 {
			t.Fatalf("%s: expected 2 commands, got %d", name, len(got))
		}
		if got[0].ID != "c2" || got[1].ID != "c3" {
			t.Fatalf("%s: commands must come back newest-first: %v", name, got)
		}
	}
}

func TestStore_EmptyIDsSkipped(t *testing.T) {
	for name, store := range stores(t) {
		if err := store.StoreEvents([]model.Event{{ID: "", Timestamp: 1}}); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		events, _, err := store.GetAll()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(events) != 0 {
			t.Fatalf("%s: id-less records must be dropped, got %v", name, events)
		}
	}
}
