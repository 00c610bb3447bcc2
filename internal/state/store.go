package state

import (
	"sort"
	"sync"

	"pulseboard/dashboard/internal/model"
)

const commandRingCap = 100

// Store is the single in-memory state shared by the sync coordinator, the
// realtime channel, and the view controller. Views read immutable snapshots;
// only those three writers mutate.
type Store struct {
	mu           sync.RWMutex
	events       map[string]model.Event
	prompts      map[string]model.Prompt
	commands     []model.TerminalCommand
	workspaces   []model.Workspace
	todos        []model.TodoItem
	fileContents map[string]string
	workspace    string
}

// Snapshot is an immutable copy taken at render time. Events and prompts are
// sorted ascending by timestamp.
type Snapshot struct {
	Events       []model.Event
	Prompts      []model.Prompt
	Commands     []model.TerminalCommand
	Workspaces   []model.Workspace
	Todos        []model.TodoItem
	FileContents map[string]string
	Workspace    string
}

func NewStore() *Store {
	return &Store{
		events:  map[string]model.Event{},
		prompts: map[string]model.Prompt{},
	}
}

func (s *Store) ApplyEvents(events []model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range events {
		if ev.ID == "" {
			continue
		}
		s.events[ev.ID] = ev
	}
}

func (s *Store) ApplyPrompts(prompts []model.Prompt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range prompts {
		if p.ID == "" {
			continue
		}
		s.prompts[p.ID] = p
	}
}

// PrependCommand pushes onto the terminal ring, capped at 100 entries.
func (s *Store) PrependCommand(cmd model.TerminalCommand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append([]model.TerminalCommand{cmd}, s.commands...)
	if len(s.commands) > commandRingCap {
		s.commands = s.commands[:commandRingCap]
	}
}

func (s *Store) SetCommands(commands []model.TerminalCommand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(commands) > commandRingCap {
		commands = commands[:commandRingCap]
	}
	s.commands = append([]model.TerminalCommand{}, commands...)
}

func (s *Store) SetWorkspaces(workspaces []model.Workspace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspaces = append([]model.Workspace{}, workspaces...)
}

func (s *Store) SetTodos(todos []model.TodoItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.todos = append([]model.TodoItem{}, todos...)
}

// SetFileContents replaces the file bodies used by the latent layout.
func (s *Store) SetFileContents(contents map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileContents = make(map[string]string, len(contents))
	for path, body := range contents {
		s.fileContents[path] = body
	}
}

func (s *Store) SetWorkspace(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspace = path
}

func (s *Store) Counts() (events, prompts int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events), len(s.prompts)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]model.Event, 0, len(s.events))
	for _, ev := range s.events {
		events = append(events, ev)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp < events[j].Timestamp })

	prompts := make([]model.Prompt, 0, len(s.prompts))
	for _, p := range s.prompts {
		prompts = append(prompts, p)
	}
	sort.SliceStable(prompts, func(i, j int) bool { return prompts[i].Timestamp < prompts[j].Timestamp })

	contents := make(map[string]string, len(s.fileContents))
	for path, body := range s.fileContents {
		contents[path] = body
	}

	return Snapshot{
		Events:       events,
		Prompts:      prompts,
		Commands:     append([]model.TerminalCommand{}, s.commands...),
		Workspaces:   append([]model.Workspace{}, s.workspaces...),
		Todos:        append([]model.TodoItem{}, s.todos...),
		FileContents: contents,
		Workspace:    s.workspace,
	}
}
