package search

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"
)

const (
	DefaultLimit = 20
	MaxLimit     = 50
)

// ErrInitializing is returned before the first indexing pass; callers show a
// sentinel instead of failing.
var ErrInitializing = errors.New("search index is initializing")

type Document struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Workspace string `json:"workspace"`
	Timestamp int64  `json:"timestamp"`
}

type Result struct {
	Document Document
	Score    int
}

// Index is an upsert-by-id document index. Re-indexing never loses previously
// added documents.
type Index struct {
	mu    sync.RWMutex
	docs  []Document
	byID  map[string]int
	ready bool
}

func NewIndex() *Index {
	return &Index{byID: map[string]int{}}
}

func (ix *Index) Add(docs ...Document) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, doc := range docs {
		if doc.ID == "" {
			continue
		}
		if i, ok := ix.byID[doc.ID]; ok {
			ix.docs[i] = doc
			continue
		}
		ix.byID[doc.ID] = len(ix.docs)
		ix.docs = append(ix.docs, doc)
	}
	ix.ready = true
}

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// docSource adapts a document slice for fuzzy matching over title+content.
type docSource []Document

func (s docSource) String(i int) string { return s[i].Title + " " + s[i].Content }
func (s docSource) Len() int            { return len(s) }

// Query runs a free-text search with optional `type:` and `workspace:` filter
// prefixes. Results are ranked by fuzzy score; with an empty term they fall
// back to recency order.
func (ix *Index) Query(q string, limit int) ([]Result, error) {
	ix.mu.RLock()
	ready := ix.ready
	docs := make([]Document, len(ix.docs))
	copy(docs, ix.docs)
	ix.mu.RUnlock()

	if !ready {
		return nil, ErrInitializing
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	term, typeFilter, workspaceFilter := parseQuery(q)

	filtered := docs[:0]
	for _, doc := range docs {
		if typeFilter != "" && !strings.EqualFold(doc.Type, typeFilter) {
			continue
		}
		if workspaceFilter != "" && !strings.Contains(strings.ToLower(doc.Workspace), workspaceFilter) {
			continue
		}
		filtered = append(filtered, doc)
	}

	if term == "" {
		sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Timestamp > filtered[j].Timestamp })
		if len(filtered) > limit {
			filtered = filtered[:limit]
		}
		out := make([]Result, len(filtered))
		for i, doc := range filtered {
			out[i] = Result{Document: doc}
		}
		return out, nil
	}

	matches := fuzzy.FindFrom(term, docSource(filtered))
	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]Result, len(matches))
	for i, m := range matches {
		out[i] = Result{Document: filtered[m.Index], Score: m.Score}
	}
	return out, nil
}

// parseQuery splits `type:` / `workspace:` prefixes out of the free text.
func parseQuery(q string) (term, typeFilter, workspaceFilter string) {
	parts := strings.Fields(q)
	rest := make([]string, 0, len(parts))
	for _, part := range parts {
		lower := strings.ToLower(part)
		switch {
		case strings.HasPrefix(lower, "type:"):
			typeFilter = strings.TrimPrefix(lower, "type:")
		case strings.HasPrefix(lower, "workspace:"):
			workspaceFilter = strings.TrimPrefix(lower, "workspace:")
		default:
			rest = append(rest, part)
		}
	}
	return strings.Join(rest, " "), typeFilter, workspaceFilter
}
