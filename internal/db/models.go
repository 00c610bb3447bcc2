package db

type CachedEvent struct {
	EventID       string `gorm:"column:event_id;primaryKey"`
	Timestamp     int64  `gorm:"column:timestamp;not null;default:0;index"`
	EventType     string `gorm:"column:event_type;not null;default:''"`
	WorkspacePath string `gorm:"column:workspace_path;not null;default:''"`
	SessionID     string `gorm:"column:session_id;not null;default:''"`
	RecordJSON    string `gorm:"column:record_json;not null;default:''"`
	UpdatedAt     int64  `gorm:"column:updated_at;not null;default:0"`
}

func (CachedEvent) TableName() string { return "cached_events" }

type CachedPrompt struct {
	PromptID   string `gorm:"column:prompt_id;primaryKey"`
	Timestamp  int64  `gorm:"column:timestamp;not null;default:0;index"`
	Workspace  string `gorm:"column:workspace;not null;default:''"`
	ComposerID string `gorm:"column:composer_id;not null;default:''"`
	RecordJSON string `gorm:"column:record_json;not null;default:''"`
	UpdatedAt  int64  `gorm:"column:updated_at;not null;default:0"`
}

func (CachedPrompt) TableName() string { return "cached_prompts" }

type CachedCommand struct {
	CommandID  string `gorm:"column:command_id;primaryKey"`
	Timestamp  int64  `gorm:"column:timestamp;not null;default:0;index"`
	Workspace  string `gorm:"column:workspace;not null;default:''"`
	RecordJSON string `gorm:"column:record_json;not null;default:''"`
	UpdatedAt  int64  `gorm:"column:updated_at;not null;default:0"`
}

func (CachedCommand) TableName() string { return "cached_commands" }

// SyncState holds scalar checkpoints, e.g. the reconciled server sequence.
type SyncState struct {
	Key       string `gorm:"column:key;primaryKey"`
	Value     string `gorm:"column:value;not null;default:''"`
	UpdatedAt int64  `gorm:"column:updated_at;not null;default:0"`
}

func (SyncState) TableName() string { return "sync_state" }

// RealtimeState persists the channel resume hint across reconnects.
type RealtimeState struct {
	StateKey          string `gorm:"column:state_key;primaryKey"`
	SubscriptionsJSON string `gorm:"column:subscriptions_json;not null;default:''"`
	LastMessageID     int64  `gorm:"column:last_message_id;not null;default:0"`
	UpdatedAt         int64  `gorm:"column:updated_at;not null;default:0"`
}

func (RealtimeState) TableName() string { return "realtime_state" }
