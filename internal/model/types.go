package model

// Event types reported by the companion.
const (
	EventFileChange        = "file_change"
	EventCodeChange        = "code_change"
	EventPromptResponse    = "prompt_response"
	EventTerminalCommand   = "terminal_command"
	EventIDEState          = "ide_state"
	EventSystemMetric      = "system_metric"
	EventGitCommit         = "git_commit"
	EventHistoricalCommand = "historical_command"
	EventHistoricalPrompt  = "historical_prompt"
)

// Event is one file-change/code-change observation. Timestamps are epoch ms.
type Event struct {
	ID            string        `json:"id"`
	Timestamp     int64         `json:"timestamp"`
	Type          string        `json:"type"`
	WorkspacePath string        `json:"workspacePath"`
	SessionID     string        `json:"sessionId,omitempty"`
	Details       EventDetails  `json:"details"`
	Context       *EventContext `json:"context,omitempty"`
}

type EventDetails struct {
	FilePath      string `json:"filePath,omitempty"`
	CharsAdded    int    `json:"charsAdded,omitempty"`
	CharsDeleted  int    `json:"charsDeleted,omitempty"`
	LinesAdded    int    `json:"linesAdded,omitempty"`
	LinesRemoved  int    `json:"linesRemoved,omitempty"`
	BeforeContent string `json:"beforeContent,omitempty"`
	AfterContent  string `json:"afterContent,omitempty"`
}

type EventContext struct {
	AtMentions   []string `json:"atMentions,omitempty"`
	AtFiles      []string `json:"atFiles,omitempty"`
	ContextFiles []string `json:"contextFiles,omitempty"`
	UITabs       []string `json:"uiTabs,omitempty"`
}

// Prompt is one AI interaction record.
type Prompt struct {
	ID                   string   `json:"id"`
	Timestamp            int64    `json:"timestamp"`
	Text                 string   `json:"prompt"`
	Response             string   `json:"response,omitempty"`
	Source               string   `json:"source,omitempty"`
	WorkspaceID          string   `json:"workspaceId,omitempty"`
	WorkspaceName        string   `json:"workspaceName,omitempty"`
	ComposerID           string   `json:"composerId,omitempty"`
	ParentConversationID string   `json:"parentConversationId,omitempty"`
	MessageRole          string   `json:"messageRole,omitempty"`
	ModelName            string   `json:"modelName,omitempty"`
	ModelType            string   `json:"modelType,omitempty"`
	Mode                 string   `json:"mode,omitempty"`
	IsAuto               bool     `json:"isAuto,omitempty"`
	ContextUsage         float64  `json:"contextUsage,omitempty"`
	ContextFiles         []string `json:"contextFiles,omitempty"`
	AtFiles              []string `json:"atFiles,omitempty"`
	LinesAdded           int      `json:"linesAdded,omitempty"`
	LinesRemoved         int      `json:"linesRemoved,omitempty"`
	ResponseTimeMs       int64    `json:"responseTime,omitempty"`
	LinkedEntryID        string   `json:"linkedEntryId,omitempty"`
}

// Workspace returns either field, preferring the display name, for matching.
func (p Prompt) Workspace() string {
	if p.WorkspaceName != "" {
		return p.WorkspaceName
	}
	return p.WorkspaceID
}

// ConversationKey groups prompts into composer threads.
func (p Prompt) ConversationKey() string {
	if p.ComposerID != "" {
		return p.ComposerID
	}
	return p.ParentConversationID
}

type TerminalCommand struct {
	ID            string `json:"id"`
	Command       string `json:"command"`
	Shell         string `json:"shell,omitempty"`
	WorkspacePath string `json:"workspacePath,omitempty"`
	Timestamp     int64  `json:"timestamp"`
	ExitCode      int    `json:"exitCode,omitempty"`
	DurationMs    int64  `json:"duration,omitempty"`
	Source        string `json:"source,omitempty"`
	LinkedEntryID string `json:"linkedEntryId,omitempty"`
}

type Workspace struct {
	Path       string `json:"path"`
	Name       string `json:"name"`
	EntryCount int    `json:"entryCount"`
	EventCount int    `json:"eventCount"`
}

// Todo status values. Transitions are pending -> in_progress -> completed.
const (
	TodoPending    = "pending"
	TodoInProgress = "in_progress"
	TodoCompleted  = "completed"
)

type TodoItem struct {
	ID                 string   `json:"id"`
	Content            string   `json:"content"`
	Status             string   `json:"status"`
	CreatedAt          int64    `json:"createdAt"`
	StartedAt          int64    `json:"startedAt,omitempty"`
	CompletedAt        int64    `json:"completedAt,omitempty"`
	EventCount         int      `json:"eventCount,omitempty"`
	PromptsWhileActive []string `json:"promptsWhileActive,omitempty"`
	FilesModified      []string `json:"filesModified,omitempty"`
}

type ContextSnapshot struct {
	Timestamp     int64    `json:"timestamp"`
	AtMentions    []string `json:"atMentions,omitempty"`
	ContextFiles  []string `json:"contextFiles,omitempty"`
	TokenEstimate int      `json:"tokenEstimate"`
	Utilization   float64  `json:"utilization"`
}

// FilePaths returns every file the prompt's context references, deduplicated.
func (p Prompt) FilePaths() []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(p.AtFiles)+len(p.ContextFiles))
	for _, group := range [][]string{p.AtFiles, p.ContextFiles} {
		for _, f := range group {
			if f == "" {
				continue
			}
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}
