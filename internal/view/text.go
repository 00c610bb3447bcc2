package view

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"pulseboard/dashboard/internal/analytics"
	"pulseboard/dashboard/internal/correlate"
	"pulseboard/dashboard/internal/graph"
	"pulseboard/dashboard/internal/layout"
	"pulseboard/dashboard/internal/model"
	"pulseboard/dashboard/internal/reduce"
	"pulseboard/dashboard/internal/search"
	"pulseboard/dashboard/internal/state"
	"pulseboard/dashboard/internal/textutil"
	"pulseboard/dashboard/internal/tfidf"
	"pulseboard/dashboard/internal/timeline"
)

const (
	viewportWidth  = 1280.0
	viewportHeight = 800.0
)

// TextRenderer draws view summaries as plain text. It is the default adapter
// when no richer render target is attached.
type TextRenderer struct {
	mu            sync.Mutex
	out           io.Writer
	linkThreshold float64
	timelineLimit int
	mode          layout.ViewMode
}

func NewTextRenderer(out io.Writer, linkThreshold float64, timelineLimit int) *TextRenderer {
	if linkThreshold <= 0 {
		linkThreshold = graph.DefaultLinkThreshold
	}
	if timelineLimit <= 0 {
		timelineLimit = 100
	}
	return &TextRenderer{out: out, linkThreshold: linkThreshold, timelineLimit: timelineLimit,
		mode: layout.ModeHybrid}
}

// SetMode picks the physical/latent blend the navigator renders at.
func (r *TextRenderer) SetMode(m layout.ViewMode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = m
}

func (r *TextRenderer) RenderView(v Name, snap state.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "\n== %s ==\n", v)
	switch v {
	case Overview:
		r.renderOverview(snap)
	case Activity:
		r.renderActivity(snap)
	case Analytics:
		r.renderAnalytics(snap)
	case FileGraph:
		r.renderGraph(snap)
	case Navigator:
		r.renderNavigator(snap)
	case Todos:
		r.renderTodos(snap)
	case System:
		fmt.Fprintf(r.out, "events=%d prompts=%d commands=%d workspaces=%d\n",
			len(snap.Events), len(snap.Prompts), len(snap.Commands), len(snap.Workspaces))
	case APIDocs:
		fmt.Fprintln(r.out, "companion endpoints: /health /api/activity /entries /api/workspaces /api/terminal/history /api/todos /api/export/database")
	}
}

func (r *TextRenderer) renderOverview(snap state.Snapshot) {
	o := analytics.ComputeOverview(snap.Prompts)
	fmt.Fprintf(r.out, "prompts=%d avgLen=%.0f span=%s rate=%.1f/h\n",
		o.TotalPrompts, o.AvgPromptLength, o.TimeSpan, o.PromptsPerHour)
	items := timeline.Merge(snap.Events, snap.Prompts, snap.Commands, timeline.Options{Limit: 5})
	for _, item := range items {
		fmt.Fprintf(r.out, "  %s %s %s\n",
			textutil.TimeAgo(item.SortTime), item.ItemType, itemLabel(item))
	}
}

func (r *TextRenderer) renderActivity(snap state.Snapshot) {
	items := timeline.Merge(snap.Events, snap.Prompts, snap.Commands,
		timeline.Options{Limit: r.timelineLimit, GroupConversations: true})
	for _, item := range items {
		fmt.Fprintf(r.out, "%s  %-12s %s\n",
			time.UnixMilli(item.SortTime).Format("15:04:05"), item.ItemType, itemLabel(item))
	}
}

func (r *TextRenderer) renderAnalytics(snap state.Snapshot) {
	report := analytics.Aggregate(snap.Prompts, snap.Events)
	fmt.Fprintf(r.out, "effectiveness=%.0f%% avgComplexity=%.1f cost=$%.4f\n",
		report.Effectiveness, report.AvgComplexity, report.TotalCostUSD)
	for _, cat := range report.Categories {
		fmt.Fprintf(r.out, "  %-16s %d\n", cat.Name, cat.Count)
	}
	for _, ins := range report.Insights {
		fmt.Fprintf(r.out, "  insight: %s (%s)\n", ins.Label, ins.Detail)
	}
}

func (r *TextRenderer) renderGraph(snap state.Snapshot) {
	g := graph.Build(snap.Events, snap.Prompts, r.linkThreshold)
	graph.Assign(&g, graph.ClusterByFileType)
	positions := layout.Compute(&g, layout.AlgorithmForce, viewportWidth, viewportHeight)
	fmt.Fprintf(r.out, "nodes=%d links=%d\n", len(g.Nodes), len(g.Links))
	for i, n := range g.Nodes {
		if i >= 20 {
			fmt.Fprintf(r.out, "  … %d more\n", len(g.Nodes)-i)
			break
		}
		pos := positions[n.ID]
		fmt.Fprintf(r.out, "  %-40s cluster=%-10s (%.0f,%.0f) %s\n",
			textutil.Truncate(n.Name, 40), n.Cluster, pos.X, pos.Y, humanize.Comma(int64(n.Changes)))
	}
}

// renderNavigator draws the semantic explorer: node positions are the
// physical force layout blended toward the latent embedding by the current
// mode, with cluster hulls and the nearest prompts by tf·idf cosine.
func (r *TextRenderer) renderNavigator(snap state.Snapshot) {
	g := graph.Build(snap.Events, snap.Prompts, r.linkThreshold)
	graph.Assign(&g, graph.ClusterByFileType)
	physical := layout.Compute(&g, layout.AlgorithmForce, viewportWidth, viewportHeight)
	latent := layout.LatentPositions(&g, snap.FileContents, reduce.AlgorithmPCA, viewportWidth, viewportHeight)
	positions := layout.Interpolate(physical, latent, r.mode.T())

	clusterOf := make(map[string]string, len(g.Nodes))
	members := map[string][]graph.Point{}
	for _, n := range g.Nodes {
		clusterOf[n.ID] = n.Cluster
		members[n.Cluster] = append(members[n.Cluster], positions[n.ID])
	}
	fmt.Fprintf(r.out, "mode=%s t=%.2f coherence=%.0f nodes=%d links=%d\n",
		r.mode, r.mode.T(), layout.Coherence(latent, clusterOf), len(g.Nodes), len(g.Links))
	for i, n := range g.Nodes {
		if i >= 20 {
			fmt.Fprintf(r.out, "  … %d more\n", len(g.Nodes)-i)
			break
		}
		pos := positions[n.ID]
		fmt.Fprintf(r.out, "  %-40s cluster=%-10s (%.0f,%.0f)\n",
			textutil.Truncate(n.Name, 40), n.Cluster, pos.X, pos.Y)
	}

	clusters := make([]string, 0, len(members))
	for name := range members {
		clusters = append(clusters, name)
	}
	sort.Strings(clusters)
	for _, name := range clusters {
		hull := graph.ClusterHull(members[name])
		fmt.Fprintf(r.out, "  hull %s: %d vertices\n", name, len(hull))
	}
	r.renderSimilarPrompts(snap)
}

// renderSimilarPrompts lists the prompts closest to the newest one.
func (r *TextRenderer) renderSimilarPrompts(snap state.Snapshot) {
	if len(snap.Prompts) < 2 {
		return
	}
	texts := make([]string, len(snap.Prompts))
	for i, p := range snap.Prompts {
		texts[i] = p.Text
	}
	m := tfidf.FitTexts(texts)
	newest := len(snap.Prompts) - 1

	type scored struct {
		idx   int
		score float64
	}
	var ranked []scored
	for i := range snap.Prompts {
		if i == newest {
			continue
		}
		if s := tfidf.Cosine(m.Vectors[newest], m.Vectors[i]); s > 0 {
			ranked = append(ranked, scored{idx: i, score: s})
		}
	}
	if len(ranked) == 0 {
		return
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}
	fmt.Fprintf(r.out, "similar to %q:\n", textutil.Truncate(snap.Prompts[newest].Text, 48))
	for _, s := range ranked {
		fmt.Fprintf(r.out, "  %.2f %s\n", s.score, textutil.Truncate(snap.Prompts[s.idx].Text, 64))
	}
}

func (r *TextRenderer) renderTodos(snap state.Snapshot) {
	now := time.Now().UnixMilli()
	annotated := correlate.AnnotateTodos(snap.Todos, snap.Events, snap.Prompts, now)
	for _, todo := range annotated {
		marker := " "
		if todo.Status == model.TodoInProgress {
			marker = "*"
		}
		fmt.Fprintf(r.out, "[%s] %-12s %s (%d events)\n",
			marker, todo.Status, textutil.Truncate(todo.Content, 72), todo.EventCount)
	}
}

func (r *TextRenderer) ShowPalette(visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if visible {
		fmt.Fprintln(r.out, "-- search --")
	}
}

func (r *TextRenderer) RenderPaletteResults(results []search.Result, selected int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, res := range results {
		marker := "  "
		if i == selected {
			marker = "> "
		}
		fmt.Fprintf(r.out, "%s[%s] %s\n", marker, res.Document.Type, textutil.Truncate(res.Document.Title, 64))
	}
}

func (r *TextRenderer) Navigate(doc search.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "open %s %s\n", doc.Type, doc.ID)
}

func itemLabel(item timeline.Item) string {
	switch {
	case item.Event != nil:
		return item.Event.Details.FilePath
	case item.Prompt != nil:
		return textutil.Truncate(item.Prompt.Text, 64)
	case item.Command != nil:
		return textutil.Truncate(item.Command.Command, 64)
	case item.Thread != nil:
		return fmt.Sprintf("%d messages", len(item.Thread.Messages))
	}
	return ""
}
