package correlate

import (
	"sort"
	"strings"

	"pulseboard/dashboard/internal/model"
)

const DefaultWindowMinutes = 5

// Scoring weights: recency dominates, workspace affinity breaks ties.
const (
	recencyWeight   = 0.7
	workspaceWeight = 0.3
)

// RelatedPrompt is one scored candidate; Score ∈ [0,1].
type RelatedPrompt struct {
	Prompt model.Prompt
	Score  float64
}

// FindRelatedPrompts returns prompts that preceded the event by at most
// windowMinutes in a matching workspace, sorted by score descending. Prompts
// newer than the event are never returned.
func FindRelatedPrompts(event model.Event, prompts []model.Prompt, windowMinutes int) []RelatedPrompt {
	if windowMinutes <= 0 {
		windowMinutes = DefaultWindowMinutes
	}
	windowMs := float64(windowMinutes) * 60000

	out := []RelatedPrompt{}
	for _, p := range prompts {
		if !workspacesMatch(event.WorkspacePath, p.Workspace()) {
			continue
		}
		delta := float64(event.Timestamp - p.Timestamp)
		if delta < 0 || delta > windowMs {
			continue
		}
		wsScore := 0.5
		if event.WorkspacePath == p.Workspace() {
			wsScore = 1.0
		}
		score := recencyWeight*(1-delta/windowMs) + workspaceWeight*wsScore
		out = append(out, RelatedPrompt{Prompt: p, Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// workspacesMatch requires containment in either direction when both fields
// are non-empty; an empty side matches anything.
func workspacesMatch(a, b string) bool {
	if a == "" || b == "" {
		return true
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
