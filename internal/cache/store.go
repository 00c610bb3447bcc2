package cache

import (
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbmodel "pulseboard/dashboard/internal/db"
	"pulseboard/dashboard/internal/model"
)

const serverSequenceKey = "server_sequence"

// ResumeState is the realtime channel's persisted resume hint.
type ResumeState struct {
	Subscriptions []string `json:"subscriptions"`
	LastMessageID int64    `json:"lastMessageId"`
	Timestamp     int64    `json:"timestamp"`
}

// Store is the client's persistent KV of events/prompts plus the server
// sequence checkpoint. Implementations: SQLStore (sqlite) and MemoryStore
// (degraded mode when storage is unavailable).
type Store interface {
	GetAll() ([]model.Event, []model.Prompt, error)
	StoreEvents(events []model.Event) error
	StorePrompts(prompts []model.Prompt) error
	StoreCommands(commands []model.TerminalCommand) error
	Commands(limit int) ([]model.TerminalCommand, error)
	ServerSequence() (int64, error)
	UpdateServerSequence(n int64) error
	IsCacheStale(serverSeq int64) (bool, error)
	Trim(maxEvents, maxPrompts int) error
	SaveResume(state ResumeState) error
	LoadResume() (ResumeState, error)
}

type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) GetAll() ([]model.Event, []model.Prompt, error) {
	var eventRows []dbmodel.CachedEvent
	if err := s.db.Order("timestamp ASC").Find(&eventRows).Error; err != nil {
		return nil, nil, err
	}
	var promptRows []dbmodel.CachedPrompt
	if err := s.db.Order("timestamp ASC").Find(&promptRows).Error; err != nil {
		return nil, nil, err
	}

	events := make([]model.Event, 0, len(eventRows))
	for _, row := range eventRows {
		var ev model.Event
		if err := json.Unmarshal([]byte(row.RecordJSON), &ev); err != nil {
			// Malformed rows are skipped, not fatal.
			continue
		}
		events = append(events, ev)
	}
	prompts := make([]model.Prompt, 0, len(promptRows))
	for _, row := range promptRows {
		var p model.Prompt
		if err := json.Unmarshal([]byte(row.RecordJSON), &p); err != nil {
			continue
		}
		prompts = append(prompts, p)
	}
	return events, prompts, nil
}

func (s *SQLStore) StoreEvents(events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	now := time.Now().UTC().Unix()
	rows := make([]dbmodel.CachedEvent, 0, len(events))
	for _, ev := range events {
		if ev.ID == "" {
			continue
		}
		raw, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		rows = append(rows, dbmodel.CachedEvent{
			EventID:       ev.ID,
			Timestamp:     ev.Timestamp,
			EventType:     ev.Type,
			WorkspacePath: ev.WorkspacePath,
			SessionID:     ev.SessionID,
			RecordJSON:    string(raw),
			UpdatedAt:     now,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		UpdateAll: true,
	}).CreateInBatches(rows, 200).Error
}

func (s *SQLStore) StorePrompts(prompts []model.Prompt) error {
	if len(prompts) == 0 {
		return nil
	}
	now := time.Now().UTC().Unix()
	rows := make([]dbmodel.CachedPrompt, 0, len(prompts))
	for _, p := range prompts {
		if p.ID == "" {
			continue
		}
		raw, err := json.Marshal(p)
		if err != nil {
			continue
		}
		rows = append(rows, dbmodel.CachedPrompt{
			PromptID:   p.ID,
			Timestamp:  p.Timestamp,
			Workspace:  p.Workspace(),
			ComposerID: p.ComposerID,
			RecordJSON: string(raw),
			UpdatedAt:  now,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "prompt_id"}},
		UpdateAll: true,
	}).CreateInBatches(rows, 200).Error
}

func (s *SQLStore) StoreCommands(commands []model.TerminalCommand) error {
	if len(commands) == 0 {
		return nil
	}
	now := time.Now().UTC().Unix()
	rows := make([]dbmodel.CachedCommand, 0, len(commands))
	for _, c := range commands {
		if c.ID == "" {
			continue
		}
		raw, err := json.Marshal(c)
		if err != nil {
			continue
		}
		rows = append(rows, dbmodel.CachedCommand{
			CommandID:  c.ID,
			Timestamp:  c.Timestamp,
			Workspace:  c.WorkspacePath,
			RecordJSON: string(raw),
			UpdatedAt:  now,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "command_id"}},
		UpdateAll: true,
	}).CreateInBatches(rows, 200).Error
}

func (s *SQLStore) Commands(limit int) ([]model.TerminalCommand, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []dbmodel.CachedCommand
	if err := s.db.Order("timestamp DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.TerminalCommand, 0, len(rows))
	for _, row := range rows {
		var c model.TerminalCommand
		if err := json.Unmarshal([]byte(row.RecordJSON), &c); err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *SQLStore) ServerSequence() (int64, error) {
	var row dbmodel.SyncState
	err := s.db.Where("key = ?", serverSequenceKey).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, _ := strconv.ParseInt(row.Value, 10, 64)
	return n, nil
}

// UpdateServerSequence advances the checkpoint; a lower value is ignored so
// the sequence stays monotonic.
func (s *SQLStore) UpdateServerSequence(n int64) error {
	current, err := s.ServerSequence()
	if err != nil {
		return err
	}
	if n < current {
		return nil
	}
	row := dbmodel.SyncState{
		Key:       serverSequenceKey,
		Value:     strconv.FormatInt(n, 10),
		UpdatedAt: time.Now().UTC().Unix(),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      row.Value,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row).Error
}

func (s *SQLStore) IsCacheStale(serverSeq int64) (bool, error) {
	stored, err := s.ServerSequence()
	if err != nil {
		return false, err
	}
	return serverSeq > stored, nil
}

// Trim drops the oldest rows beyond the caps. The newest-by-timestamp rows
// are always retained.
func (s *SQLStore) Trim(maxEvents, maxPrompts int) error {
	if maxEvents > 0 {
		if err := trimTable(s.db, &dbmodel.CachedEvent{}, "cached_events", "event_id", maxEvents); err != nil {
			return err
		}
	}
	if maxPrompts > 0 {
		if err := trimTable(s.db, &dbmodel.CachedPrompt{}, "cached_prompts", "prompt_id", maxPrompts); err != nil {
			return err
		}
	}
	return nil
}

func trimTable(db *gorm.DB, mdl any, table, idColumn string, keep int) error {
	var total int64
	if err := db.Model(mdl).Count(&total).Error; err != nil {
		return err
	}
	if total <= int64(keep) {
		return nil
	}
	stmt := `DELETE FROM ` + table + ` WHERE ` + idColumn + ` IN (
		SELECT ` + idColumn + ` FROM ` + table + ` ORDER BY timestamp ASC LIMIT ?)`
	return db.Exec(stmt, total-int64(keep)).Error
}

func (s *SQLStore) SaveResume(state ResumeState) error {
	raw, err := json.Marshal(state.Subscriptions)
	if err != nil {
		return err
	}
	row := dbmodel.RealtimeState{
		StateKey:          "realtime",
		SubscriptionsJSON: string(raw),
		LastMessageID:     state.LastMessageID,
		UpdatedAt:         time.Now().UTC().Unix(),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "state_key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"subscriptions_json": row.SubscriptionsJSON,
			"last_message_id":    row.LastMessageID,
			"updated_at":         row.UpdatedAt,
		}),
	}).Create(&row).Error
}

func (s *SQLStore) LoadResume() (ResumeState, error) {
	var row dbmodel.RealtimeState
	err := s.db.Where("state_key = ?", "realtime").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ResumeState{}, nil
	}
	if err != nil {
		return ResumeState{}, err
	}
	state := ResumeState{LastMessageID: row.LastMessageID, Timestamp: row.UpdatedAt * 1000}
	if row.SubscriptionsJSON != "" {
		_ = json.Unmarshal([]byte(row.SubscriptionsJSON), &state.Subscriptions)
	}
	return state, nil
}

// sortEventsByTimestamp is shared with the memory store.
func sortEventsByTimestamp(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp < events[j].Timestamp })
}

func sortPromptsByTimestamp(prompts []model.Prompt) {
	sort.SliceStable(prompts, func(i, j int) bool { return prompts[i].Timestamp < prompts[j].Timestamp })
}
