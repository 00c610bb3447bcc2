package correlate

import (
	"pulseboard/dashboard/internal/model"
)

// EventActiveFor reports whether the event happened inside the todo's
// in_progress window: startedAt ≤ event.timestamp ≤ (completedAt | now).
func EventActiveFor(todo model.TodoItem, event model.Event, nowMs int64) bool {
	if todo.StartedAt == 0 {
		return false
	}
	end := todo.CompletedAt
	if end == 0 {
		if todo.Status != model.TodoInProgress {
			return false
		}
		end = nowMs
	}
	return event.Timestamp >= todo.StartedAt && event.Timestamp <= end
}

// AnnotateTodos fills each todo's EventCount, FilesModified, and
// PromptsWhileActive from the in-memory collections. Returns new values;
// the inputs are not mutated.
func AnnotateTodos(todos []model.TodoItem, events []model.Event, prompts []model.Prompt, nowMs int64) []model.TodoItem {
	out := make([]model.TodoItem, len(todos))
	for i, todo := range todos {
		annotated := todo
		annotated.EventCount = 0
		annotated.FilesModified = nil
		annotated.PromptsWhileActive = nil

		seenFiles := map[string]struct{}{}
		for _, ev := range events {
			if !EventActiveFor(todo, ev, nowMs) {
				continue
			}
			annotated.EventCount++
			fp := ev.Details.FilePath
			if fp == "" {
				continue
			}
			if _, ok := seenFiles[fp]; ok {
				continue
			}
			seenFiles[fp] = struct{}{}
			annotated.FilesModified = append(annotated.FilesModified, fp)
		}

		if todo.StartedAt > 0 {
			end := todo.CompletedAt
			if end == 0 && todo.Status == model.TodoInProgress {
				end = nowMs
			}
			for _, p := range prompts {
				if end > 0 && p.Timestamp >= todo.StartedAt && p.Timestamp <= end {
					annotated.PromptsWhileActive = append(annotated.PromptsWhileActive, p.ID)
				}
			}
		}
		out[i] = annotated
	}
	return out
}
