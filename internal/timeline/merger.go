package timeline

import (
	"sort"

	"pulseboard/dashboard/internal/correlate"
	"pulseboard/dashboard/internal/model"
)

const (
	ItemEvent        = "event"
	ItemPrompt       = "prompt"
	ItemTerminal     = "terminal"
	ItemConversation = "conversation"
)

// Item is one merged timeline entry. Exactly one payload pointer is set,
// matching ItemType.
type Item struct {
	ItemType string                 `json:"itemType"`
	SortTime int64                  `json:"sortTime"`
	Event    *model.Event           `json:"event,omitempty"`
	Prompt   *model.Prompt          `json:"prompt,omitempty"`
	Command  *model.TerminalCommand `json:"command,omitempty"`
	Thread   *correlate.Thread      `json:"thread,omitempty"`
}

type Options struct {
	Limit              int
	GroupConversations bool
}

// Merge joins events, prompts, and commands into one list sorted descending
// by SortTime and capped at Limit. With GroupConversations, prompts sharing a
// composer fold into a single conversation item whose SortTime is the max of
// its messages.
func Merge(events []model.Event, prompts []model.Prompt, commands []model.TerminalCommand, opts Options) []Item {
	items := make([]Item, 0, len(events)+len(prompts)+len(commands))

	for i := range events {
		ev := events[i]
		items = append(items, Item{ItemType: ItemEvent, SortTime: ev.Timestamp, Event: &ev})
	}

	if opts.GroupConversations {
		threads, loose := correlate.Threads(prompts)
		for i := range threads {
			th := threads[i]
			items = append(items, Item{ItemType: ItemConversation, SortTime: th.Timestamp, Thread: &th})
		}
		for i := range loose {
			p := loose[i]
			items = append(items, Item{ItemType: ItemPrompt, SortTime: p.Timestamp, Prompt: &p})
		}
	} else {
		for i := range prompts {
			p := prompts[i]
			items = append(items, Item{ItemType: ItemPrompt, SortTime: p.Timestamp, Prompt: &p})
		}
	}

	for i := range commands {
		c := commands[i]
		items = append(items, Item{ItemType: ItemTerminal, SortTime: c.Timestamp, Command: &c})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].SortTime > items[j].SortTime })
	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return items
}
