package model

import (
	"time"

	"github.com/tidwall/gjson"
)

// Normalization happens once at the sync boundary: the companion emits a mix
// of snake_case and camelCase fields plus several aliases for the prompt body
// (text|prompt|preview|content). Downstream code sees one canonical shape.

func pick(doc gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := doc.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

func pickString(doc gjson.Result, keys ...string) string {
	return pick(doc, keys...).String()
}

func pickInt(doc gjson.Result, keys ...string) int64 {
	return pick(doc, keys...).Int()
}

func stringList(v gjson.Result) []string {
	if !v.Exists() || !v.IsArray() {
		return nil
	}
	arr := v.Array()
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		// Context file entries may be plain strings or {path: ...} objects.
		if item.IsObject() {
			if p := item.Get("path"); p.Exists() {
				out = append(out, p.String())
				continue
			}
		}
		if s := item.String(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// NormalizeTimestamp accepts epoch ms, epoch seconds, or ISO-8601 and returns
// epoch ms. Zero on anything unparseable.
func NormalizeTimestamp(v gjson.Result) int64 {
	if !v.Exists() {
		return 0
	}
	if v.Type == gjson.Number {
		n := v.Int()
		if n > 0 && n < 100_000_000_000 {
			return n * 1000
		}
		return n
	}
	s := v.String()
	if s == "" {
		return 0
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}

// NormalizeEvent converts one raw companion activity record.
func NormalizeEvent(raw []byte) Event {
	doc := gjson.ParseBytes(raw)
	ev := Event{
		ID:            pickString(doc, "id", "event_id", "eventId"),
		Timestamp:     NormalizeTimestamp(pick(doc, "timestamp", "time", "created_at", "createdAt")),
		Type:          pickString(doc, "type", "event_type", "eventType"),
		WorkspacePath: pickString(doc, "workspace_path", "workspacePath", "workspace"),
		SessionID:     pickString(doc, "session_id", "sessionId"),
	}

	details := pick(doc, "details")
	if details.Type == gjson.String {
		// Details may arrive as an embedded JSON string; a malformed one is
		// swallowed and the derived fields stay empty.
		details = gjson.Parse(details.String())
	}
	if details.IsObject() {
		ev.Details = EventDetails{
			FilePath:      pickString(details, "file_path", "filePath", "path"),
			CharsAdded:    int(pickInt(details, "chars_added", "charsAdded")),
			CharsDeleted:  int(pickInt(details, "chars_deleted", "charsDeleted")),
			LinesAdded:    int(pickInt(details, "lines_added", "linesAdded")),
			LinesRemoved:  int(pickInt(details, "lines_removed", "linesRemoved")),
			BeforeContent: pickString(details, "before_content", "beforeContent"),
			AfterContent:  pickString(details, "after_content", "afterContent"),
		}
	}
	if ev.Details.FilePath == "" {
		ev.Details.FilePath = pickString(doc, "file_path", "filePath")
	}

	if ctx := pick(doc, "context"); ctx.IsObject() {
		ec := EventContext{
			AtMentions:   stringList(pick(ctx, "at_mentions", "atMentions")),
			AtFiles:      stringList(pick(ctx, "at_files", "atFiles")),
			UITabs:       stringList(pick(ctx, "ui_tabs", "uiTabs", "tabs")),
			ContextFiles: contextFileList(pick(ctx, "context_files", "contextFiles")),
		}
		if len(ec.AtMentions)+len(ec.AtFiles)+len(ec.ContextFiles)+len(ec.UITabs) > 0 {
			ev.Context = &ec
		}
	}
	return ev
}

// contextFileList flattens {attached:[], codebase:[]} or a plain array.
func contextFileList(v gjson.Result) []string {
	if !v.Exists() {
		return nil
	}
	if v.IsArray() {
		return stringList(v)
	}
	if v.IsObject() {
		out := stringList(v.Get("attached"))
		out = append(out, stringList(v.Get("codebase"))...)
		return out
	}
	return nil
}

// NormalizePrompt converts one raw companion entry record.
func NormalizePrompt(raw []byte) Prompt {
	doc := gjson.ParseBytes(raw)
	p := Prompt{
		ID:                   pickString(doc, "id", "entry_id", "entryId"),
		Timestamp:            NormalizeTimestamp(pick(doc, "timestamp", "time", "created_at", "createdAt")),
		Text:                 pickString(doc, "text", "prompt", "preview", "content"),
		Response:             pickString(doc, "response", "response_text", "responseText"),
		Source:               pickString(doc, "source"),
		WorkspaceID:          pickString(doc, "workspace_id", "workspaceId"),
		WorkspaceName:        pickString(doc, "workspace_name", "workspaceName"),
		ComposerID:           pickString(doc, "composer_id", "composerId"),
		ParentConversationID: pickString(doc, "parent_conversation_id", "parentConversationId"),
		MessageRole:          pickString(doc, "message_role", "messageRole", "role"),
		ModelName:            pickString(doc, "model_name", "modelName", "model"),
		ModelType:            pickString(doc, "model_type", "modelType"),
		Mode:                 pickString(doc, "mode"),
		IsAuto:               pick(doc, "is_auto", "isAuto").Bool(),
		ContextUsage:         pick(doc, "context_usage", "contextUsage").Float(),
		LinesAdded:           int(pickInt(doc, "lines_added", "linesAdded")),
		LinesRemoved:         int(pickInt(doc, "lines_removed", "linesRemoved")),
		ResponseTimeMs:       pickInt(doc, "response_time", "responseTime"),
		LinkedEntryID:        pickString(doc, "linked_entry_id", "linkedEntryId"),
	}
	p.AtFiles = stringList(pick(doc, "at_files", "atFiles"))
	p.ContextFiles = contextFileList(pick(doc, "context_files", "contextFiles"))
	if p.Mode == "" {
		p.Mode = "not-specified"
	}
	return p
}

// NormalizeTerminalCommand converts one raw terminal history record.
func NormalizeTerminalCommand(raw []byte) TerminalCommand {
	doc := gjson.ParseBytes(raw)
	return TerminalCommand{
		ID:            pickString(doc, "id", "command_id", "commandId"),
		Command:       pickString(doc, "command", "cmd"),
		Shell:         pickString(doc, "shell"),
		WorkspacePath: pickString(doc, "workspace_path", "workspacePath", "workspace", "cwd"),
		Timestamp:     NormalizeTimestamp(pick(doc, "timestamp", "time", "executed_at", "executedAt")),
		ExitCode:      int(pickInt(doc, "exit_code", "exitCode")),
		DurationMs:    pickInt(doc, "duration", "duration_ms", "durationMs"),
		Source:        pickString(doc, "source"),
		LinkedEntryID: pickString(doc, "linked_entry_id", "linkedEntryId"),
	}
}

// NormalizeWorkspace converts one raw workspace record.
func NormalizeWorkspace(raw []byte) Workspace {
	doc := gjson.ParseBytes(raw)
	return Workspace{
		Path:       pickString(doc, "path", "workspace_path", "workspacePath"),
		Name:       pickString(doc, "name", "display_name", "displayName"),
		EntryCount: int(pickInt(doc, "entry_count", "entryCount", "entries")),
		EventCount: int(pickInt(doc, "event_count", "eventCount", "events")),
	}
}

// NormalizeTodo converts one raw todo record.
func NormalizeTodo(raw []byte) TodoItem {
	doc := gjson.ParseBytes(raw)
	return TodoItem{
		ID:                 pickString(doc, "id", "todo_id", "todoId"),
		Content:            pickString(doc, "content", "text", "title"),
		Status:             pickString(doc, "status"),
		CreatedAt:          NormalizeTimestamp(pick(doc, "created_at", "createdAt")),
		StartedAt:          NormalizeTimestamp(pick(doc, "started_at", "startedAt")),
		CompletedAt:        NormalizeTimestamp(pick(doc, "completed_at", "completedAt")),
		EventCount:         int(pickInt(doc, "event_count", "eventCount")),
		PromptsWhileActive: stringList(pick(doc, "prompts_while_active", "promptsWhileActive")),
		FilesModified:      stringList(pick(doc, "files_modified", "filesModified")),
	}
}
