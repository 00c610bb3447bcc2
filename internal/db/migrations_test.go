package db

import (
	"path/filepath"
	"testing"
)

func TestOpenSQLite_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	gdb, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	for _, table := range []string{
		"cached_events", "cached_prompts", "cached_commands", "sync_state", "realtime_state",
	} {
		var count int64
		err := gdb.Raw(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).
			Scan(&count).Error
		if err != nil {
			t.Fatalf("query sqlite_master: %v", err)
		}
		if count != 1 {
			t.Fatalf("table %s missing after schema sync", table)
		}
	}
}

func TestSyncSchema_Indexes(t *testing.T) {
	gdb, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	for _, index := range []string{
		"idx_cached_events_workspace_ts",
		"idx_cached_prompts_workspace_ts",
		"idx_cached_prompts_composer",
	} {
		var count int64
		err := gdb.Raw(`SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?`, index).
			Scan(&count).Error
		if err != nil {
			t.Fatalf("query sqlite_master: %v", err)
		}
		if count != 1 {
			t.Fatalf("index %s missing", index)
		}
	}
}

func TestSyncSchema_Rerunnable(t *testing.T) {
	gdb, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := SyncSchema(gdb); err != nil {
		t.Fatalf("second schema sync must be a no-op: %v", err)
	}
}

func TestSyncSchema_NilDB(t *testing.T) {
	if err := SyncSchema(nil); err == nil {
		t.Fatal("nil db must be rejected")
	}
}
