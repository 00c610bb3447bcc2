package analytics

import (
	"math"
	"strings"
	"testing"

	"pulseboard/dashboard/internal/model"
)

func TestEstimateTokens(t *testing.T) {
	cases := map[string]int{
		"":      0,
		"a":     1,
		"abcd":  1,
		"abcde": 2,
	}
	for in, want := range cases {
		if got := EstimateTokens(in); got != want {
			t.Fatalf("EstimateTokens(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestEstimateCost(t *testing.T) {
	// gpt-4o: 0.0025 in / 0.01 out per 1000 tokens.
	got := EstimateCost("GPT-4o-mini", 1000, 2000)
	want := 0.0025 + 2*0.01
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("gpt-4o cost: got %v want %v", got, want)
	}
	// gpt-4o must win over the broader gpt-4 substring.
	if RateFor("gpt-4o") == RateFor("gpt-4-turbo") {
		t.Fatal("gpt-4o and gpt-4 must price differently")
	}
	// Unknown models fall back to the default rate.
	got = EstimateCost("mystery-model", 1000, 1000)
	want = 0.001 + 0.002
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("default cost: got %v want %v", got, want)
	}
}

func TestCategorize(t *testing.T) {
	prompts := []model.Prompt{
		{ID: "p1", Text: "write a test for the parser"},  // code generation + testing
		{ID: "p2", Text: "fix the crash in the handler"}, // debugging
		{ID: "p3", Text: "hello there"},                  // general fallback
	}
	cats := Categorize(prompts)
	byName := map[string]Category{}
	for _, c := range cats {
		byName[c.Name] = c
	}
	if byName["code generation"].Count != 1 || byName["testing"].Count != 1 {
		t.Fatalf("p1 must land in both matching categories: %v", cats)
	}
	if byName["debugging"].Count != 1 {
		t.Fatalf("missing debugging category: %v", cats)
	}
	if byName["general"].Count != 1 {
		t.Fatalf("unmatched prompt must fall back to general: %v", cats)
	}
	if len(byName["debugging"].Examples) != 1 || !strings.Contains(byName["debugging"].Examples[0], "crash") {
		t.Fatalf("examples must carry the prompt text: %v", byName["debugging"].Examples)
	}
}

func TestCategorize_ExampleCap(t *testing.T) {
	prompts := make([]model.Prompt, 5)
	for i := range prompts {
		prompts[i] = model.Prompt{ID: string(rune('a' + i)), Text: "debug the failing import"}
	}
	cats := Categorize(prompts)
	for _, c := range cats {
		if c.Name == "debugging" {
			if c.Count != 5 || len(c.Examples) != 3 {
				t.Fatalf("expected 5 hits with 3 examples, got %+v", c)
			}
			return
		}
	}
	t.Fatal("debugging category missing")
}

func TestEffectiveness_Window(t *testing.T) {
	prompts := []model.Prompt{
		{ID: "p1", Timestamp: 0},          // change at 60s, inside window
		{ID: "p2", Timestamp: 10_000_000}, // no change after
	}
	events := []model.Event{
		{ID: "e1", Type: model.EventFileChange, Timestamp: 60_000},
		{ID: "e2", Type: model.EventFileChange, Timestamp: 9_000_000}, // before p2
	}
	got := Effectiveness(prompts, events)
	if got != 50 {
		t.Fatalf("expected 50%%, got %v", got)
	}
}

func TestEffectiveness_OnlyChangesCount(t *testing.T) {
	prompts := []model.Prompt{{ID: "p1", Timestamp: 0}}
	events := []model.Event{{ID: "e1", Type: model.EventIDEState, Timestamp: 1000}}
	if got := Effectiveness(prompts, events); got != 0 {
		t.Fatalf("non-change events must not count, got %v", got)
	}
}

func TestComplexity_CodeBonus(t *testing.T) {
	plain := Complexity("short note")
	withCode := Complexity("short note ```go\nfmt.Println()\n```")
	if withCode-plain < 2 {
		t.Fatalf("code blocks must add at least the flat bonus: plain=%v code=%v", plain, withCode)
	}
	if Complexity("why? how? what?") <= Complexity("why how what") {
		t.Fatal("question marks must raise the score")
	}
}

func TestInsights_Thresholds(t *testing.T) {
	// 20 prompts inside one hour with code-heavy responses.
	prompts := make([]model.Prompt, 20)
	for i := range prompts {
		prompts[i] = model.Prompt{
			ID:        string(rune('a' + i)),
			Timestamp: int64(i) * 60_000,
			Text:      "tweak",
			Response:  "```go\npackage main\n```",
		}
	}
	insights := Insights(prompts)
	labels := map[string]bool{}
	for _, in := range insights {
		labels[in.Label] = true
	}
	if !labels["high prompt rate"] {
		t.Fatalf("expected a prompt-rate insight: %v", insights)
	}
	if !labels["code-heavy responses"] {
		t.Fatalf("expected a code-heavy insight: %v", insights)
	}

	if got := Insights(nil); len(got) != 0 {
		t.Fatalf("no prompts should yield no insights, got %v", got)
	}
}

func TestContextUsage(t *testing.T) {
	reported := model.Prompt{ContextUsage: 42}
	if got := ContextUsage(reported); got != 42 {
		t.Fatalf("reported usage wins, got %v", got)
	}
	capped := model.Prompt{ContextUsage: 250}
	if got := ContextUsage(capped); got != 100 {
		t.Fatalf("reported usage caps at 100, got %v", got)
	}
	fallback := model.Prompt{ContextFiles: []string{"a.go", "b.go"}}
	if got := ContextUsage(fallback); got != 6 {
		t.Fatalf("fallback is 3%% per file, got %v", got)
	}
}

func TestComputeOverview(t *testing.T) {
	prompts := []model.Prompt{
		{ID: "p1", Timestamp: 0, Text: "abcd", Response: "yes"},
		{ID: "p2", Timestamp: 30 * 60_000, Text: "efgh"},
	}
	o := ComputeOverview(prompts)
	if o.TotalPrompts != 2 || o.TotalChars != 8 {
		t.Fatalf("unexpected totals: %+v", o)
	}
	if o.AvgPromptLength != 4 {
		t.Fatalf("avg prompt length: %v", o.AvgPromptLength)
	}
	if o.AvgResponseLength != 3 {
		t.Fatalf("avg response length counts only answered prompts: %v", o.AvgResponseLength)
	}
	// 2 prompts over 30 minutes is 4 per hour.
	if math.Abs(o.PromptsPerHour-4) > 1e-9 {
		t.Fatalf("prompts per hour: %v", o.PromptsPerHour)
	}
	if o.TimeSpan != "0h 30m" {
		t.Fatalf("time span: %q", o.TimeSpan)
	}
}

func TestComputeOverview_Empty(t *testing.T) {
	o := ComputeOverview(nil)
	if o.TotalPrompts != 0 || o.TimeSpan != "0h 0m" {
		t.Fatalf("unexpected zero-value overview: %+v", o)
	}
}

func TestComputeTemporal(t *testing.T) {
	// Two prompts one hour apart plus one a week later, so the pairs land on
	// the same weekday and daily bucket in every timezone.
	base := int64(1623067200000) // 2021-06-07 12:00 UTC
	prompts := []model.Prompt{
		{ID: "p1", Timestamp: base},
		{ID: "p2", Timestamp: base + 3600_000},
		{ID: "p3", Timestamp: base + 7*24*3600_000},
	}
	tp := ComputeTemporal(prompts)
	if len(tp.Daily) != 2 {
		t.Fatalf("expected 2 daily buckets, got %v", tp.Daily)
	}
	if tp.Daily[0].Count+tp.Daily[1].Count != 3 {
		t.Fatalf("daily buckets must cover all prompts: %v", tp.Daily)
	}
	if tp.MostActiveDay == "" {
		t.Fatal("most active day must be set when prompts exist")
	}
	dowTotal := 0
	for _, c := range tp.DayOfWeek {
		dowTotal += c
	}
	if dowTotal != 3 {
		t.Fatalf("weekday histogram must cover all prompts, got %d", dowTotal)
	}
	total := 0
	for _, c := range tp.Hourly {
		total += c
	}
	if total != 3 {
		t.Fatalf("hourly histogram must cover all prompts, got %d", total)
	}
	if tp.PeakCount < 1 {
		t.Fatalf("peak count must reflect the busiest hour, got %d", tp.PeakCount)
	}
}

func TestModelUsageStats(t *testing.T) {
	prompts := []model.Prompt{
		{ID: "p1", ModelName: "gpt-4o", Text: "abcd"},
		{ID: "p2", ModelName: "gpt-4o", Text: "abcd", ResponseTimeMs: 200},
		{ID: "p3", Text: "abcd"},
	}
	usage := ModelUsageStats(prompts)
	if len(usage) != 2 {
		t.Fatalf("expected 2 model buckets, got %v", usage)
	}
	top := usage[0]
	if top.Model != "gpt-4o" || top.Count != 2 {
		t.Fatalf("unexpected top model: %+v", top)
	}
	if math.Abs(top.Percent-100.0*2/3) > 1e-9 {
		t.Fatalf("percent: %v", top.Percent)
	}
	if top.AvgResponseTimeMs != 200 {
		t.Fatalf("avg response time counts only timed prompts: %v", top.AvgResponseTimeMs)
	}
	if usage[1].Model != "unknown" {
		t.Fatalf("nameless prompts must bucket as unknown: %+v", usage[1])
	}
}
