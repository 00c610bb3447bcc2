package analytics

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"pulseboard/dashboard/internal/model"
	"pulseboard/dashboard/internal/textutil"
)

// Pure functions over immutable snapshots of the in-memory state. Nothing in
// this package mutates its inputs.

type Overview struct {
	TotalPrompts      int     `json:"totalPrompts"`
	TotalChars        int     `json:"totalChars"`
	AvgPromptLength   float64 `json:"avgPromptLength"`
	AvgResponseLength float64 `json:"avgResponseLength"`
	PromptsPerHour    float64 `json:"promptsPerHour"`
	TimeSpan          string  `json:"timeSpan"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type Temporal struct {
	Hourly        [24]int      `json:"hourly"`
	Daily         []DailyCount `json:"daily"`
	PeakHour      int          `json:"peakHour"`
	PeakCount     int          `json:"peakCount"`
	DayOfWeek     [7]int       `json:"dayOfWeek"`
	MostActiveDay string       `json:"mostActiveDay"`
}

type Category struct {
	Name     string   `json:"name"`
	Count    int      `json:"count"`
	Examples []string `json:"examples"`
}

type ModelUsage struct {
	Model             string  `json:"model"`
	Count             int     `json:"count"`
	Percent           float64 `json:"percent"`
	EstimatedTokens   int     `json:"estimatedTokens"`
	AvgResponseTimeMs float64 `json:"avgResponseTimeMs,omitempty"`
}

type Insight struct {
	Label  string `json:"label"`
	Detail string `json:"detail"`
}

type Report struct {
	Overview      Overview     `json:"overview"`
	Temporal      Temporal     `json:"temporal"`
	Categories    []Category   `json:"categories"`
	Models        []ModelUsage `json:"models"`
	TotalCostUSD  float64      `json:"totalCostUsd"`
	Effectiveness float64      `json:"effectiveness"`
	AvgComplexity float64      `json:"avgComplexity"`
	Insights      []Insight    `json:"insights"`
}

// intentPatterns classify prompts; a prompt may hit several categories and
// falls back to "general" only when none match.
var intentPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"code generation", regexp.MustCompile(`(?i)\b(write|create|generate|implement|add|build|make)\b`)},
	{"review", regexp.MustCompile(`(?i)\b(review|check|look at|inspect|audit)\b`)},
	{"debugging", regexp.MustCompile(`(?i)\b(debug|fix|error|bug|issue|broken|crash|fail)\b`)},
	{"explanation", regexp.MustCompile(`(?i)\b(explain|what|how|why|describe|understand)\b`)},
	{"refactoring", regexp.MustCompile(`(?i)\b(refactor|rename|restructure|clean|simplify|extract)\b`)},
	{"testing", regexp.MustCompile(`(?i)\b(test|spec|coverage|mock|assert)\b`)},
	{"documentation", regexp.MustCompile(`(?i)\b(document|docs|comment|readme|changelog)\b`)},
	{"optimization", regexp.MustCompile(`(?i)\b(optimi[sz]e|performance|faster|slow|memory|cache)\b`)},
}

var (
	codeBlockRe  = regexp.MustCompile("```")
	inlineCodeRe = regexp.MustCompile("`[^`]+`|\\b\\w+\\([^)]*\\)")
	sentenceRe   = regexp.MustCompile(`[.!?]+`)
)

const effectivenessWindowMs = 5 * 60 * 1000

// Aggregate computes the full analytics report.
func Aggregate(prompts []model.Prompt, events []model.Event) Report {
	return Report{
		Overview:      ComputeOverview(prompts),
		Temporal:      ComputeTemporal(prompts),
		Categories:    Categorize(prompts),
		Models:        ModelUsageStats(prompts),
		TotalCostUSD:  TotalCost(prompts),
		Effectiveness: Effectiveness(prompts, events),
		AvgComplexity: avgComplexity(prompts),
		Insights:      Insights(prompts),
	}
}

func ComputeOverview(prompts []model.Prompt) Overview {
	o := Overview{TotalPrompts: len(prompts), TimeSpan: "0h 0m"}
	if len(prompts) == 0 {
		return o
	}
	var respChars, respCount int
	minTS, maxTS := prompts[0].Timestamp, prompts[0].Timestamp
	for _, p := range prompts {
		o.TotalChars += len(p.Text)
		if p.Response != "" {
			respChars += len(p.Response)
			respCount++
		}
		if p.Timestamp < minTS {
			minTS = p.Timestamp
		}
		if p.Timestamp > maxTS {
			maxTS = p.Timestamp
		}
	}
	o.AvgPromptLength = float64(o.TotalChars) / float64(len(prompts))
	if respCount > 0 {
		o.AvgResponseLength = float64(respChars) / float64(respCount)
	}
	spanMs := maxTS - minTS
	o.TimeSpan = textutil.FormatTimeSpan(spanMs)
	if spanMs > 0 {
		o.PromptsPerHour = float64(len(prompts)) / (float64(spanMs) / 3600000)
	} else {
		o.PromptsPerHour = float64(len(prompts))
	}
	return o
}

func ComputeTemporal(prompts []model.Prompt) Temporal {
	var t Temporal
	dailyCounts := map[string]int{}
	for _, p := range prompts {
		ts := time.UnixMilli(p.Timestamp)
		t.Hourly[ts.Hour()]++
		t.DayOfWeek[int(ts.Weekday())]++
		dailyCounts[ts.Format("2006-01-02")]++
	}
	for h, c := range t.Hourly {
		if c > t.PeakCount {
			t.PeakHour, t.PeakCount = h, c
		}
	}
	dates := make([]string, 0, len(dailyCounts))
	for d := range dailyCounts {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	for _, d := range dates {
		t.Daily = append(t.Daily, DailyCount{Date: d, Count: dailyCounts[d]})
	}
	best := 0
	for d := 1; d < 7; d++ {
		if t.DayOfWeek[d] > t.DayOfWeek[best] {
			best = d
		}
	}
	if len(prompts) > 0 {
		t.MostActiveDay = time.Weekday(best).String()
	}
	return t
}

// Categorize classifies prompts by intent, keeping up to three example
// snippets per category.
func Categorize(prompts []model.Prompt) []Category {
	counts := map[string]int{}
	examples := map[string][]string{}
	record := func(name, text string) {
		counts[name]++
		if len(examples[name]) < 3 {
			examples[name] = append(examples[name], textutil.Truncate(text, 80))
		}
	}
	for _, p := range prompts {
		matched := false
		for _, ip := range intentPatterns {
			if ip.re.MatchString(p.Text) {
				record(ip.name, p.Text)
				matched = true
			}
		}
		if !matched {
			record("general", p.Text)
		}
	}
	out := make([]Category, 0, len(counts))
	for name, count := range counts {
		out = append(out, Category{Name: name, Count: count, Examples: examples[name]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func ModelUsageStats(prompts []model.Prompt) []ModelUsage {
	type acc struct {
		count     int
		tokens    int
		respTime  int64
		respCount int
	}
	byModel := map[string]*acc{}
	for _, p := range prompts {
		name := p.ModelName
		if name == "" {
			name = "unknown"
		}
		a, ok := byModel[name]
		if !ok {
			a = &acc{}
			byModel[name] = a
		}
		a.count++
		a.tokens += EstimateTokens(p.Text) + EstimateTokens(p.Response)
		if p.ResponseTimeMs > 0 {
			a.respTime += p.ResponseTimeMs
			a.respCount++
		}
	}
	total := len(prompts)
	out := make([]ModelUsage, 0, len(byModel))
	for name, a := range byModel {
		u := ModelUsage{
			Model:           name,
			Count:           a.count,
			EstimatedTokens: a.tokens,
		}
		if total > 0 {
			u.Percent = float64(a.count) / float64(total) * 100
		}
		if a.respCount > 0 {
			u.AvgResponseTimeMs = float64(a.respTime) / float64(a.respCount)
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Model < out[j].Model
	})
	return out
}

func TotalCost(prompts []model.Prompt) float64 {
	var total float64
	for _, p := range prompts {
		total += EstimateCost(p.ModelName, EstimateTokens(p.Text), EstimateTokens(p.Response))
	}
	return total
}

// Effectiveness is the percent of prompts followed by a file/code change
// within five minutes. Only same-order pairs count: the change must come
// after the prompt.
func Effectiveness(prompts []model.Prompt, events []model.Event) float64 {
	if len(prompts) == 0 {
		return 0
	}
	changeTimes := make([]int64, 0, len(events))
	for _, ev := range events {
		if ev.Type == model.EventFileChange || ev.Type == model.EventCodeChange {
			changeTimes = append(changeTimes, ev.Timestamp)
		}
	}
	sort.Slice(changeTimes, func(i, j int) bool { return changeTimes[i] < changeTimes[j] })

	effective := 0
	for _, p := range prompts {
		idx := sort.Search(len(changeTimes), func(i int) bool { return changeTimes[i] >= p.Timestamp })
		if idx < len(changeTimes) && changeTimes[idx]-p.Timestamp <= effectivenessWindowMs {
			effective++
		}
	}
	return float64(effective) / float64(len(prompts)) * 100
}

// Complexity scores one prompt:
// 0.5·ln(len+1) + 0.3·ln(words+1) + 0.2·sentences + (2 if has-code) + 0.5·questions.
func Complexity(text string) float64 {
	words := len(strings.Fields(text))
	sentences := len(sentenceRe.FindAllString(text, -1))
	questions := strings.Count(text, "?")
	score := 0.5*math.Log(float64(len(text)+1)) +
		0.3*math.Log(float64(words+1)) +
		0.2*float64(sentences) +
		0.5*float64(questions)
	if codeBlockRe.MatchString(text) || inlineCodeRe.MatchString(text) {
		score += 2
	}
	return score
}

func avgComplexity(prompts []model.Prompt) float64 {
	if len(prompts) == 0 {
		return 0
	}
	var sum float64
	for _, p := range prompts {
		sum += Complexity(p.Text)
	}
	return sum / float64(len(prompts))
}

// Insights emits labeled findings when activity crosses fixed thresholds.
func Insights(prompts []model.Prompt) []Insight {
	out := []Insight{}
	o := ComputeOverview(prompts)
	if o.PromptsPerHour > 10 {
		out = append(out, Insight{
			Label:  "high prompt rate",
			Detail: fmt.Sprintf("%.1f prompts per hour", o.PromptsPerHour),
		})
	}
	if avg := avgComplexity(prompts); avg > 7 {
		out = append(out, Insight{
			Label:  "complex prompts",
			Detail: fmt.Sprintf("average complexity %.1f", avg),
		})
	}
	if len(prompts) > 0 {
		withCode := 0
		withResponse := 0
		for _, p := range prompts {
			if p.Response == "" {
				continue
			}
			withResponse++
			if strings.Contains(p.Response, "```") {
				withCode++
			}
		}
		if withResponse > 0 && float64(withCode)/float64(withResponse) >= 0.5 {
			out = append(out, Insight{
				Label:  "code-heavy responses",
				Detail: fmt.Sprintf("%d of %d responses contain code blocks", withCode, withResponse),
			})
		}
	}
	return out
}

// ContextUsage returns the prompt's reported context utilization, falling
// back to 3% per referenced context file, capped at 100.
func ContextUsage(p model.Prompt) float64 {
	if p.ContextUsage > 0 {
		return math.Min(p.ContextUsage, 100)
	}
	estimate := float64(len(p.FilePaths())) * 3
	return math.Min(estimate, 100)
}
