package view

import (
	"log/slog"
	"sync"
	"time"

	"pulseboard/dashboard/internal/logging"
	"pulseboard/dashboard/internal/search"
	"pulseboard/dashboard/internal/state"
)

type Name string

const (
	Overview  Name = "overview"
	Activity  Name = "activity"
	Analytics Name = "analytics"
	FileGraph Name = "filegraph"
	Navigator Name = "navigator"
	Todos     Name = "todos"
	System    Name = "system"
	APIDocs   Name = "api-docs"
)

// Views is the finite set of selectable views, in display order.
var Views = []Name{Overview, Activity, Analytics, FileGraph, Navigator, Todos, System, APIDocs}

func Valid(n Name) bool {
	for _, v := range Views {
		if v == n {
			return true
		}
	}
	return false
}

// Chart is a render-target handle owned by the view that created it.
type Chart interface {
	Destroy()
}

// Renderer is the thin adapter the controller draws through. Implementations
// own the actual widgets; the controller owns state and lifecycle.
type Renderer interface {
	RenderView(v Name, snap state.Snapshot)
	ShowPalette(visible bool)
	RenderPaletteResults(results []search.Result, selected int)
	Navigate(doc search.Document)
}

// Key is one normalized keyboard event.
type Key struct {
	Name string // "k", "Escape", "ArrowUp", "ArrowDown", "Enter"
	Cmd  bool
	Ctrl bool
}

const paletteDebounce = 300 * time.Millisecond

type chartEntry struct {
	chart Chart
	owner Name
}

// Controller selects the current view, owns chart handles keyed by canvas
// id, and routes keyboard shortcuts into the search palette.
type Controller struct {
	renderer Renderer
	index    *search.Index
	snapshot func() state.Snapshot
	logger   *slog.Logger
	debounce time.Duration

	mu       sync.Mutex
	current  Name
	charts   map[string]chartEntry
	palette  paletteState
	debTimer *time.Timer
}

type paletteState struct {
	open     bool
	query    string
	results  []search.Result
	selected int
}

type Option func(*Controller)

func WithLogger(lg *slog.Logger) Option {
	return func(c *Controller) { c.logger = lg }
}

func withDebounce(d time.Duration) Option {
	return func(c *Controller) { c.debounce = d }
}

func NewController(renderer Renderer, index *search.Index, snapshot func() state.Snapshot, opts ...Option) *Controller {
	c := &Controller{
		renderer: renderer,
		index:    index,
		snapshot: snapshot,
		current:  Overview,
		charts:   map[string]chartEntry{},
		debounce: paletteDebounce,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewNopLogger()
	}
	return c
}

func (c *Controller) Current() Name {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Switch activates a view. Charts owned by the outgoing view are destroyed
// before the new view renders.
func (c *Controller) Switch(v Name) {
	if !Valid(v) {
		c.logger.Warn("unknown view", "view", string(v))
		return
	}
	c.mu.Lock()
	outgoing := c.current
	if outgoing == v {
		c.mu.Unlock()
		c.Render()
		return
	}
	c.current = v
	var doomed []Chart
	for id, entry := range c.charts {
		if entry.owner == outgoing {
			doomed = append(doomed, entry.chart)
			delete(c.charts, id)
		}
	}
	c.mu.Unlock()

	for _, ch := range doomed {
		ch.Destroy()
	}
	c.Render()
}

// RegisterChart tracks a chart handle under a canvas id. Re-registering the
// same id destroys the prior handle first.
func (c *Controller) RegisterChart(canvasID string, chart Chart) {
	c.mu.Lock()
	prior, had := c.charts[canvasID]
	c.charts[canvasID] = chartEntry{chart: chart, owner: c.current}
	c.mu.Unlock()
	if had {
		prior.chart.Destroy()
	}
}

func (c *Controller) ChartCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.charts)
}

// Render redraws the current view from a fresh snapshot.
func (c *Controller) Render() {
	c.mu.Lock()
	v := c.current
	c.mu.Unlock()
	c.renderer.RenderView(v, c.snapshot())
}

// HandleKey routes one keyboard event. Returns true when the key was
// consumed.
func (c *Controller) HandleKey(k Key) bool {
	c.mu.Lock()
	open := c.palette.open
	c.mu.Unlock()

	if (k.Cmd || k.Ctrl) && (k.Name == "k" || k.Name == "K") {
		c.OpenPalette()
		return true
	}
	if !open {
		return false
	}
	switch k.Name {
	case "Escape":
		c.ClosePalette()
	case "ArrowDown":
		c.movePaletteSelection(1)
	case "ArrowUp":
		c.movePaletteSelection(-1)
	case "Enter":
		c.selectPaletteResult()
	default:
		return false
	}
	return true
}

func (c *Controller) OpenPalette() {
	c.mu.Lock()
	c.palette = paletteState{open: true}
	c.mu.Unlock()
	c.renderer.ShowPalette(true)
	// Empty query shows recent documents immediately.
	c.runPaletteQuery("")
}

func (c *Controller) ClosePalette() {
	c.mu.Lock()
	c.palette = paletteState{}
	if c.debTimer != nil {
		c.debTimer.Stop()
		c.debTimer = nil
	}
	c.mu.Unlock()
	c.renderer.ShowPalette(false)
}

func (c *Controller) PaletteOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.palette.open
}

// SetPaletteQuery records the typed query and schedules a debounced search.
func (c *Controller) SetPaletteQuery(q string) {
	c.mu.Lock()
	if !c.palette.open {
		c.mu.Unlock()
		return
	}
	c.palette.query = q
	if c.debTimer != nil {
		c.debTimer.Stop()
	}
	c.debTimer = time.AfterFunc(c.debounce, func() {
		c.mu.Lock()
		current := c.palette.query
		open := c.palette.open
		c.mu.Unlock()
		if open && current == q {
			c.runPaletteQuery(q)
		}
	})
	c.mu.Unlock()
}

func (c *Controller) runPaletteQuery(q string) {
	results, err := c.index.Query(q, search.DefaultLimit)
	if err != nil {
		c.logger.Debug("palette query failed", "err", err)
		results = nil
	}
	c.mu.Lock()
	if !c.palette.open {
		c.mu.Unlock()
		return
	}
	c.palette.results = results
	c.palette.selected = 0
	selected := c.palette.selected
	c.mu.Unlock()
	c.renderer.RenderPaletteResults(results, selected)
}

func (c *Controller) movePaletteSelection(delta int) {
	c.mu.Lock()
	n := len(c.palette.results)
	if n == 0 {
		c.mu.Unlock()
		return
	}
	c.palette.selected = (c.palette.selected + delta + n) % n
	results := c.palette.results
	selected := c.palette.selected
	c.mu.Unlock()
	c.renderer.RenderPaletteResults(results, selected)
}

func (c *Controller) selectPaletteResult() {
	c.mu.Lock()
	if len(c.palette.results) == 0 {
		c.mu.Unlock()
		c.ClosePalette()
		return
	}
	doc := c.palette.results[c.palette.selected].Document
	c.mu.Unlock()
	c.ClosePalette()
	c.renderer.Navigate(doc)
}

// IndexSnapshot upserts the current state into the search index. Called by
// render paths after data changes.
func (c *Controller) IndexSnapshot(snap state.Snapshot) {
	docs := make([]search.Document, 0, len(snap.Events)+len(snap.Prompts)+len(snap.Workspaces))
	for _, ev := range snap.Events {
		docs = append(docs, search.Document{
			ID:        "event:" + ev.ID,
			Type:      "event",
			Title:     ev.Details.FilePath,
			Content:   ev.Type,
			Workspace: ev.WorkspacePath,
			Timestamp: ev.Timestamp,
		})
	}
	for _, p := range snap.Prompts {
		docs = append(docs, search.Document{
			ID:        "prompt:" + p.ID,
			Type:      "prompt",
			Title:     p.Text,
			Content:   p.Response,
			Workspace: p.Workspace(),
			Timestamp: p.Timestamp,
		})
	}
	for _, ws := range snap.Workspaces {
		docs = append(docs, search.Document{
			ID:        "workspace:" + ws.Path,
			Type:      "workspace",
			Title:     ws.Name,
			Content:   ws.Path,
			Workspace: ws.Path,
		})
	}
	c.index.Add(docs...)
}
