package correlate

import (
	"sort"

	"pulseboard/dashboard/internal/model"
)

const ThreadType = "conversation-thread"

// Thread is a composer session: ordered user/assistant messages with no
// parent of its own.
type Thread struct {
	Type      string         `json:"type"`
	Key       string         `json:"key"`
	Timestamp int64          `json:"timestamp"`
	Messages  []model.Prompt `json:"messages"`
}

// Threads groups prompts by composerId/parentConversationId. Prompts with no
// conversation key come back in the second return value unchanged.
func Threads(prompts []model.Prompt) ([]Thread, []model.Prompt) {
	byKey := map[string][]model.Prompt{}
	order := []string{}
	loose := []model.Prompt{}

	for _, p := range prompts {
		key := p.ConversationKey()
		if key == "" {
			loose = append(loose, p)
			continue
		}
		if _, ok := byKey[key]; !ok {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], p)
	}

	threads := make([]Thread, 0, len(order))
	for _, key := range order {
		msgs := byKey[key]
		sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Timestamp < msgs[j].Timestamp })
		var maxTS int64
		for i := range msgs {
			if msgs[i].MessageRole == "" {
				// Prompts default to the user side; responses arrive as
				// separate assistant-role records.
				msgs[i].MessageRole = "user"
			}
			if msgs[i].Timestamp > maxTS {
				maxTS = msgs[i].Timestamp
			}
		}
		threads = append(threads, Thread{
			Type:      ThreadType,
			Key:       key,
			Timestamp: maxTS,
			Messages:  msgs,
		})
	}
	return threads, loose
}
