package cache

import (
	"sort"
	"sync"

	"pulseboard/dashboard/internal/model"
)

// MemoryStore is the degraded mode used when sqlite cannot be opened. Same
// contract as SQLStore, nothing survives the process.
type MemoryStore struct {
	mu        sync.Mutex
	events    map[string]model.Event
	prompts   map[string]model.Prompt
	commands  map[string]model.TerminalCommand
	serverSeq int64
	resume    ResumeState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:   map[string]model.Event{},
		prompts:  map[string]model.Prompt{},
		commands: map[string]model.TerminalCommand{},
	}
}

func (s *MemoryStore) GetAll() ([]model.Event, []model.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := make([]model.Event, 0, len(s.events))
	for _, ev := range s.events {
		events = append(events, ev)
	}
	prompts := make([]model.Prompt, 0, len(s.prompts))
	for _, p := range s.prompts {
		prompts = append(prompts, p)
	}
	sortEventsByTimestamp(events)
	sortPromptsByTimestamp(prompts)
	return events, prompts, nil
}

func (s *MemoryStore) StoreEvents(events []model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range events {
		if ev.ID == "" {
			continue
		}
		s.events[ev.ID] = ev
	}
	return nil
}

func (s *MemoryStore) StorePrompts(prompts []model.Prompt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range prompts {
		if p.ID == "" {
			continue
		}
		s.prompts[p.ID] = p
	}
	return nil
}

func (s *MemoryStore) StoreCommands(commands []model.TerminalCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range commands {
		if c.ID == "" {
			continue
		}
		s.commands[c.ID] = c
	}
	return nil
}

func (s *MemoryStore) Commands(limit int) ([]model.TerminalCommand, error) {
	if limit <= 0 {
		limit = 100
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.TerminalCommand, 0, len(s.commands))
	for _, c := range s.commands {
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ServerSequence() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serverSeq, nil
}

func (s *MemoryStore) UpdateServerSequence(n int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n >= s.serverSeq {
		s.serverSeq = n
	}
	return nil
}

func (s *MemoryStore) IsCacheStale(serverSeq int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return serverSeq > s.serverSeq, nil
}

func (s *MemoryStore) Trim(maxEvents, maxPrompts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if maxEvents > 0 && len(s.events) > maxEvents {
		events := make([]model.Event, 0, len(s.events))
		for _, ev := range s.events {
			events = append(events, ev)
		}
		sortEventsByTimestamp(events)
		for _, ev := range events[:len(events)-maxEvents] {
			delete(s.events, ev.ID)
		}
	}
	if maxPrompts > 0 && len(s.prompts) > maxPrompts {
		prompts := make([]model.Prompt, 0, len(s.prompts))
		for _, p := range s.prompts {
			prompts = append(prompts, p)
		}
		sortPromptsByTimestamp(prompts)
		for _, p := range prompts[:len(prompts)-maxPrompts] {
			delete(s.prompts, p.ID)
		}
	}
	return nil
}

func (s *MemoryStore) SaveResume(state ResumeState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resume = state
	return nil
}

func (s *MemoryStore) LoadResume() (ResumeState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resume, nil
}
