package db

import (
	"errors"

	"gorm.io/gorm"
)

// SyncSchema creates/updates tables and indexes from models. Table structure
// changes do not use versioned migrations.
func SyncSchema(db *gorm.DB) error {
	if db == nil {
		return errors.New("db is required")
	}
	if err := db.AutoMigrate(
		&CachedEvent{},
		&CachedPrompt{},
		&CachedCommand{},
		&SyncState{},
		&RealtimeState{},
	); err != nil {
		return err
	}
	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_cached_events_workspace_ts ON cached_events(workspace_path, timestamp DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_cached_prompts_workspace_ts ON cached_prompts(workspace, timestamp DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_cached_prompts_composer ON cached_prompts(composer_id);`,
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
