package syncer

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"pulseboard/dashboard/internal/cache"
	"pulseboard/dashboard/internal/diffstat"
	"pulseboard/dashboard/internal/logging"
	"pulseboard/dashboard/internal/model"
	"pulseboard/dashboard/internal/state"
	"pulseboard/dashboard/internal/status"
)

const (
	defaultPageSize        = 500
	defaultRefreshInterval = 120 * time.Second
	fetchSpacing           = 100 * time.Millisecond
)

// Coordinator owns the warm-start flow and the guarded periodic refresh. It
// is one of the three writers allowed to mutate the in-memory store.
type Coordinator struct {
	fetcher  *Fetcher
	store    cache.Store
	memory   *state.Store
	statusSt *status.Stream
	logger   *slog.Logger
	onRender func(state.Snapshot)

	pageSize        int
	refreshInterval time.Duration
	maxEvents       int
	maxPrompts      int
	fetchOpts       Options

	mu          sync.Mutex
	refreshing  bool
	lastRefresh time.Time
}

type CoordinatorOption func(*Coordinator)

func WithPageSize(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

func WithRefreshInterval(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.refreshInterval = d
		}
	}
}

func WithCacheCaps(maxEvents, maxPrompts int) CoordinatorOption {
	return func(c *Coordinator) {
		c.maxEvents = maxEvents
		c.maxPrompts = maxPrompts
	}
}

// WithFetchOptions sets the timeout/retry policy for every coordinator GET.
func WithFetchOptions(opts Options) CoordinatorOption {
	return func(c *Coordinator) { c.fetchOpts = opts }
}

func WithStatusStream(st *status.Stream) CoordinatorOption {
	return func(c *Coordinator) { c.statusSt = st }
}

func WithLogger(lg *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = lg }
}

// WithRenderFunc registers the callback invoked whenever fresh data is ready
// to draw.
func WithRenderFunc(fn func(state.Snapshot)) CoordinatorOption {
	return func(c *Coordinator) { c.onRender = fn }
}

func NewCoordinator(fetcher *Fetcher, store cache.Store, memory *state.Store, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		fetcher:         fetcher,
		store:           store,
		memory:          memory,
		pageSize:        defaultPageSize,
		refreshInterval: defaultRefreshInterval,
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
	return c
}

// WarmStart renders cached data first, then reconciles with the companion
// only when the server sequence says the cache is stale. Fetch failures keep
// the last good state.
func (c *Coordinator) WarmStart(ctx context.Context) error {
	events, prompts, err := c.store.GetAll()
	if err != nil {
		c.logger.Warn("cache read failed, starting cold", "err", err)
	}
	if len(events) > 0 || len(prompts) > 0 {
		c.memory.ApplyEvents(events)
		c.memory.ApplyPrompts(prompts)
		c.statusSt.Info("restored " + strconv.Itoa(len(events)) + " events and " + strconv.Itoa(len(prompts)) + " prompts from cache")
		c.render()
	}

	serverSeq, healthErr := c.fetchServerSequence(ctx)
	if healthErr != nil {
		c.logger.Warn("health check failed, keeping cached data", "err", healthErr)
		c.statusSt.Warning("companion unreachable, showing cached data")
		return nil
	}

	stale, err := c.store.IsCacheStale(serverSeq)
	if err != nil {
		c.logger.Warn("staleness check failed", "err", err)
		stale = true
	}
	if !stale {
		c.logger.Info("cache is current", "server_sequence", serverSeq)
		go c.fetchOlderHistory(context.WithoutCancel(ctx))
		return nil
	}

	c.logger.Info("cache is stale, fetching recent window", "server_sequence", serverSeq, "page_size", c.pageSize)
	if err := c.fetchRecent(ctx); err != nil {
		return err
	}
	if err := c.store.UpdateServerSequence(serverSeq); err != nil {
		c.logger.Warn("sequence checkpoint failed", "err", err)
	}
	if c.maxEvents > 0 || c.maxPrompts > 0 {
		if err := c.store.Trim(c.maxEvents, c.maxPrompts); err != nil {
			c.logger.Warn("cache trim failed", "err", err)
		}
	}
	c.render()

	// Older history is best effort; it runs after the warm window so it never
	// delays first render.
	go c.fetchOlderHistory(context.WithoutCancel(ctx))
	return nil
}

func (c *Coordinator) fetchServerSequence(ctx context.Context) (int64, error) {
	body, err := c.fetcher.Get(ctx, "/health", c.fetchOpts)
	if err != nil {
		return 0, err
	}
	doc := gjson.ParseBytes(body)
	return doc.Get("sequence").Int(), nil
}

// fetchRecent pulls the bounded recent window for activity and entries plus
// the workspace list, sequentially with a small spacing.
func (c *Coordinator) fetchRecent(ctx context.Context) error {
	limit := strconv.Itoa(c.pageSize)

	if body, err := c.fetcher.Get(ctx, "/api/activity?limit="+limit, c.fetchOpts); err == nil {
		events := parseEvents(gjson.GetBytes(body, "data"))
		c.memory.ApplyEvents(events)
		if err := c.store.StoreEvents(events); err != nil {
			c.logger.Warn("event cache write failed", "err", err)
		}
	} else {
		c.logger.Warn("activity fetch failed", "err", err)
	}
	if err := sleepCtx(ctx, fetchSpacing); err != nil {
		return err
	}

	if body, err := c.fetcher.Get(ctx, "/entries?limit="+limit, c.fetchOpts); err == nil {
		prompts := parsePrompts(gjson.GetBytes(body, "entries"))
		c.memory.ApplyPrompts(prompts)
		if err := c.store.StorePrompts(prompts); err != nil {
			c.logger.Warn("prompt cache write failed", "err", err)
		}
	} else {
		c.logger.Warn("entries fetch failed", "err", err)
	}
	if err := sleepCtx(ctx, fetchSpacing); err != nil {
		return err
	}

	if body, err := c.fetcher.Get(ctx, "/api/workspaces", c.fetchOpts); err == nil {
		c.memory.SetWorkspaces(parseWorkspaces(gjson.ParseBytes(body)))
	} else {
		c.logger.Warn("workspaces fetch failed", "err", err)
	}
	return nil
}

// fetchOlderHistory backfills terminal history, todos and the file bodies the
// latent layout embeds. Failures are logged and dropped.
func (c *Coordinator) fetchOlderHistory(ctx context.Context) {
	if body, err := c.fetcher.Get(ctx, "/api/terminal/history?limit=100", c.fetchOpts); err == nil {
		commands := parseCommands(gjson.GetBytes(body, "data"))
		c.memory.SetCommands(commands)
		if err := c.store.StoreCommands(commands); err != nil {
			c.logger.Warn("command cache write failed", "err", err)
		}
	} else {
		c.logger.Debug("terminal history fetch failed", "err", err)
	}

	if body, err := c.fetcher.Get(ctx, "/api/todos", c.fetchOpts); err == nil {
		c.memory.SetTodos(parseTodos(gjson.GetBytes(body, "todos")))
	} else {
		c.logger.Debug("todos fetch failed", "err", err)
	}

	if contents, err := c.FileContents(ctx); err == nil {
		c.memory.SetFileContents(contents)
	} else {
		c.logger.Debug("file contents fetch failed", "err", err)
	}
	c.render()
}

// RunRefreshLoop re-fetches the recent window on a fixed interval. A refresh
// is skipped while one is in flight or when the previous one finished less
// than one interval ago.
func (c *Coordinator) RunRefreshLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.RefreshTick(ctx)
		}
	}
}

// RefreshTick runs one guarded refresh. Exported so a tick can be driven
// directly in tests and by the manual refresh action.
func (c *Coordinator) RefreshTick(ctx context.Context) {
	c.mu.Lock()
	if c.refreshing {
		c.mu.Unlock()
		c.logger.Info("refresh skipped: already in progress")
		return
	}
	if !c.lastRefresh.IsZero() && time.Since(c.lastRefresh) < c.refreshInterval {
		c.mu.Unlock()
		c.logger.Info("refresh skipped: previous refresh too recent")
		return
	}
	c.refreshing = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.refreshing = false
		c.lastRefresh = time.Now()
		c.mu.Unlock()
	}()

	serverSeq, err := c.fetchServerSequence(ctx)
	if err != nil {
		c.logger.Warn("refresh health check failed", "err", err)
		return
	}
	stale, err := c.store.IsCacheStale(serverSeq)
	if err != nil || !stale {
		return
	}
	if err := c.fetchRecent(ctx); err != nil {
		return
	}
	if err := c.store.UpdateServerSequence(serverSeq); err != nil {
		c.logger.Warn("sequence checkpoint failed", "err", err)
	}
	c.render()
}

func (c *Coordinator) render() {
	if c.onRender != nil {
		c.onRender(c.memory.Snapshot())
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func parseEvents(arr gjson.Result) []model.Event {
	out := make([]model.Event, 0, int(arr.Get("#").Int()))
	arr.ForEach(func(_, item gjson.Result) bool {
		ev := model.NormalizeEvent([]byte(item.Raw))
		if ev.ID == "" {
			return true
		}
		// Fill line stats from content when the companion omits them.
		if ev.Details.LinesAdded == 0 && ev.Details.LinesRemoved == 0 &&
			(ev.Details.BeforeContent != "" || ev.Details.AfterContent != "") {
			st := diffstat.Compute(ev.Details.BeforeContent, ev.Details.AfterContent)
			ev.Details.LinesAdded = st.LinesAdded
			ev.Details.LinesRemoved = st.LinesRemoved
			if ev.Details.CharsAdded == 0 && ev.Details.CharsDeleted == 0 {
				ev.Details.CharsAdded = st.CharsAdded
				ev.Details.CharsDeleted = st.CharsDeleted
			}
		}
		out = append(out, ev)
		return true
	})
	return out
}

func parsePrompts(arr gjson.Result) []model.Prompt {
	out := make([]model.Prompt, 0, int(arr.Get("#").Int()))
	arr.ForEach(func(_, item gjson.Result) bool {
		p := model.NormalizePrompt([]byte(item.Raw))
		if p.ID != "" {
			out = append(out, p)
		}
		return true
	})
	return out
}

func parseCommands(arr gjson.Result) []model.TerminalCommand {
	out := make([]model.TerminalCommand, 0, int(arr.Get("#").Int()))
	arr.ForEach(func(_, item gjson.Result) bool {
		cmd := model.NormalizeTerminalCommand([]byte(item.Raw))
		if cmd.ID != "" {
			out = append(out, cmd)
		}
		return true
	})
	return out
}

func parseWorkspaces(arr gjson.Result) []model.Workspace {
	out := make([]model.Workspace, 0, int(arr.Get("#").Int()))
	arr.ForEach(func(_, item gjson.Result) bool {
		ws := model.NormalizeWorkspace([]byte(item.Raw))
		if ws.Path != "" {
			out = append(out, ws)
		}
		return true
	})
	return out
}

func parseTodos(arr gjson.Result) []model.TodoItem {
	out := make([]model.TodoItem, 0, int(arr.Get("#").Int()))
	arr.ForEach(func(_, item gjson.Result) bool {
		todo := model.NormalizeTodo([]byte(item.Raw))
		if todo.ID != "" {
			out = append(out, todo)
		}
		return true
	})
	return out
}
