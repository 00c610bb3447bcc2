package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"pulseboard/dashboard/internal/cache"
	"pulseboard/dashboard/internal/logging"
	"pulseboard/dashboard/internal/model"
	"pulseboard/dashboard/internal/protocol"
	"pulseboard/dashboard/internal/state"
	"pulseboard/dashboard/internal/status"
)

const (
	reconnectBase = time.Second
	reconnectCap  = 5 * time.Second
	maxReconnects = 5
)

// Channel maintains the realtime subscription to the companion. It survives
// reconnects by replaying a resume hint (last seen message id plus the
// subscription set) before re-subscribing each channel exactly once.
type Channel struct {
	url      string
	dialer   Dialer
	store    cache.Store
	memory   *state.Store
	statusSt *status.Stream
	logger   *slog.Logger
	onUpdate func()
	sleep    func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	sock   Socket
	subs   map[string]bool
	lastID int64
}

type ChannelOption func(*Channel)

func WithChannelLogger(lg *slog.Logger) ChannelOption {
	return func(c *Channel) { c.logger = lg }
}

func WithChannelStatus(st *status.Stream) ChannelOption {
	return func(c *Channel) { c.statusSt = st }
}

// WithUpdateFunc registers the callback fired after inbound data changes the
// in-memory state.
func WithUpdateFunc(fn func()) ChannelOption {
	return func(c *Channel) { c.onUpdate = fn }
}

func withSleepFunc(fn func(ctx context.Context, d time.Duration) error) ChannelOption {
	return func(c *Channel) { c.sleep = fn }
}

func NewChannel(url string, dialer Dialer, store cache.Store, memory *state.Store, opts ...ChannelOption) *Channel {
	c := &Channel{
		url:    url,
		dialer: dialer,
		store:  store,
		memory: memory,
		subs:   map[string]bool{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewNopLogger()
	}
	if c.statusSt == nil {
		c.statusSt = status.NewStream(status.WithLogger(c.logger))
	}
	if c.sleep == nil {
		c.sleep = func(ctx context.Context, d time.Duration) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
				return nil
			}
		}
	}
	if state, err := store.LoadResume(); err == nil {
		c.lastID = state.LastMessageID
		for _, ch := range state.Subscriptions {
			c.subs[ch] = true
		}
	}
	return c
}

// Subscribe adds a channel to the subscription set and, when connected,
// sends the subscribe op immediately.
func (c *Channel) Subscribe(ctx context.Context, channel string) error {
	c.mu.Lock()
	if c.subs[channel] {
		c.mu.Unlock()
		return nil
	}
	c.subs[channel] = true
	sock := c.sock
	c.mu.Unlock()

	c.persistResume()
	if sock == nil {
		return nil
	}
	return c.sendOp(ctx, sock, "subscribe", channel)
}

func (c *Channel) Unsubscribe(ctx context.Context, channel string) error {
	c.mu.Lock()
	if !c.subs[channel] {
		c.mu.Unlock()
		return nil
	}
	delete(c.subs, channel)
	sock := c.sock
	c.mu.Unlock()

	c.persistResume()
	if sock == nil {
		return nil
	}
	return c.sendOp(ctx, sock, "unsubscribe", channel)
}

func (c *Channel) Subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.subs))
	for ch := range c.subs {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

func (c *Channel) LastMessageID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastID
}

// Run connects and pumps messages until ctx is done. Reconnects back off
// from one second, doubling up to five seconds, for at most five consecutive
// failures; a session that delivers data resets the counter.
func (c *Channel) Run(ctx context.Context) error {
	failures := 0
	backoff := reconnectBase
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sock, err := c.dialer.Dial(ctx, c.url)
		if err != nil {
			failures++
			c.logger.Warn("realtime dial failed", "attempt", failures, "err", err)
			if failures >= maxReconnects {
				c.statusSt.Error("realtime channel unavailable, live updates disabled")
				return err
			}
			if err := c.sleep(ctx, backoff); err != nil {
				return err
			}
			backoff = min(backoff*2, reconnectCap)
			continue
		}
		failures = 0
		backoff = reconnectBase

		err = c.session(ctx, sock)
		c.mu.Lock()
		c.sock = nil
		c.mu.Unlock()
		_ = sock.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("realtime session ended, reconnecting", "err", err)
		c.statusSt.Warning("realtime connection lost, reconnecting")
		if err := c.sleep(ctx, backoff); err != nil {
			return err
		}
		backoff = min(backoff*2, reconnectCap)
	}
}

// session replays the resume hint, re-subscribes every channel once, then
// reads until the socket fails.
func (c *Channel) session(ctx context.Context, sock Socket) error {
	c.mu.Lock()
	c.sock = sock
	lastID := c.lastID
	channels := make([]string, 0, len(c.subs))
	for ch := range c.subs {
		channels = append(channels, ch)
	}
	c.mu.Unlock()
	sort.Strings(channels)

	resume := protocol.Message{
		ID: uuid.NewString(),
		Op: "resume",
		Payload: protocol.MustRaw(map[string]any{
			"lastMessageId": lastID,
			"subscriptions": channels,
		}),
	}
	if err := c.send(ctx, sock, resume); err != nil {
		return err
	}
	for _, ch := range channels {
		if err := c.sendOp(ctx, sock, "subscribe", ch); err != nil {
			return err
		}
	}
	c.statusSt.Success("realtime connected")

	for {
		text, err := sock.ReadText(ctx)
		if err != nil {
			return err
		}
		c.handle(text)
	}
}

func (c *Channel) sendOp(ctx context.Context, sock Socket, op, channel string) error {
	return c.send(ctx, sock, protocol.Message{
		ID:      uuid.NewString(),
		Op:      op,
		Payload: protocol.MustRaw(map[string]string{"channel": channel}),
	})
}

func (c *Channel) send(ctx context.Context, sock Socket, msg protocol.Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return sock.WriteText(ctx, string(b))
}

// handle dispatches one inbound frame by type and advances the resume
// cursor. Unknown types are logged and skipped.
func (c *Channel) handle(text string) {
	var msg protocol.Message
	if err := json.Unmarshal([]byte(text), &msg); err != nil {
		c.logger.Debug("unparseable realtime frame", "err", err)
		return
	}
	if id, err := strconv.ParseInt(msg.ID, 10, 64); err == nil {
		c.advanceCursor(id)
	}

	data := msg.Data
	if len(data) == 0 {
		data = msg.Payload
	}
	changed := false
	switch msg.Type {
	case "activityUpdate", "activity", "event":
		events := collectEvents(data)
		if len(events) > 0 {
			c.memory.ApplyEvents(events)
			if err := c.store.StoreEvents(events); err != nil {
				c.logger.Warn("event cache write failed", "err", err)
			}
			changed = true
		}
	case "promptUpdate", "entry", "prompt":
		prompts := collectPrompts(data)
		if len(prompts) > 0 {
			c.memory.ApplyPrompts(prompts)
			if err := c.store.StorePrompts(prompts); err != nil {
				c.logger.Warn("prompt cache write failed", "err", err)
			}
			changed = true
		}
	case "terminal-command", "terminalCommand":
		cmd := model.NormalizeTerminalCommand(data)
		if cmd.ID != "" {
			c.memory.PrependCommand(cmd)
			changed = true
		}
	case "workspaceChanged", "workspace":
		if path := gjson.GetBytes(data, "path").String(); path != "" {
			c.memory.SetWorkspace(path)
			changed = true
		}
	case "todosUpdated", "todos":
		todos := collectTodos(data)
		c.memory.SetTodos(todos)
		changed = true
	case "status":
		if txt := gjson.GetBytes(data, "message").String(); txt != "" {
			c.statusSt.Info(txt)
		}
	default:
		c.logger.Debug("unhandled realtime frame", "type", msg.Type)
	}

	if changed && c.onUpdate != nil {
		c.onUpdate()
	}
}

func (c *Channel) advanceCursor(id int64) {
	c.mu.Lock()
	if id <= c.lastID {
		c.mu.Unlock()
		return
	}
	c.lastID = id
	c.mu.Unlock()
	c.persistResume()
}

func (c *Channel) persistResume() {
	c.mu.Lock()
	state := cache.ResumeState{
		LastMessageID: c.lastID,
		Timestamp:     time.Now().UnixMilli(),
	}
	for ch := range c.subs {
		state.Subscriptions = append(state.Subscriptions, ch)
	}
	c.mu.Unlock()
	sort.Strings(state.Subscriptions)
	if err := c.store.SaveResume(state); err != nil {
		c.logger.Warn("resume state write failed", "err", err)
	}
}

// collectEvents accepts either a single object or an array.
func collectEvents(data []byte) []model.Event {
	doc := gjson.ParseBytes(data)
	var out []model.Event
	add := func(item gjson.Result) {
		ev := model.NormalizeEvent([]byte(item.Raw))
		if ev.ID != "" {
			out = append(out, ev)
		}
	}
	if doc.IsArray() {
		doc.ForEach(func(_, item gjson.Result) bool { add(item); return true })
	} else if doc.IsObject() {
		add(doc)
	}
	return out
}

func collectPrompts(data []byte) []model.Prompt {
	doc := gjson.ParseBytes(data)
	var out []model.Prompt
	add := func(item gjson.Result) {
		p := model.NormalizePrompt([]byte(item.Raw))
		if p.ID != "" {
			out = append(out, p)
		}
	}
	if doc.IsArray() {
		doc.ForEach(func(_, item gjson.Result) bool { add(item); return true })
	} else if doc.IsObject() {
		add(doc)
	}
	return out
}

func collectTodos(data []byte) []model.TodoItem {
	doc := gjson.ParseBytes(data)
	var out []model.TodoItem
	add := func(item gjson.Result) {
		todo := model.NormalizeTodo([]byte(item.Raw))
		if todo.ID != "" {
			out = append(out, todo)
		}
	}
	if doc.IsArray() {
		doc.ForEach(func(_, item gjson.Result) bool { add(item); return true })
	} else if doc.IsObject() {
		add(doc)
	}
	return out
}
