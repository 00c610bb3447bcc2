package graph

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"pulseboard/dashboard/internal/model"
)

const DefaultLinkThreshold = 0.2

// Similarity weights: prompt co-reference dominates session co-occurrence.
const (
	promptWeight  = 0.7
	sessionWeight = 0.3
)

// Node is one file in the relationship graph. Coordinates are filled by the
// layout engine.
type Node struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Ext          string  `json:"ext"`
	Workspace    string  `json:"workspace"`
	Directory    string  `json:"directory"`
	Events       int     `json:"events"`
	Changes      int     `json:"changes"`
	Size         int     `json:"size"`
	LastModified int64   `json:"lastModified"`
	Cluster      string  `json:"cluster,omitempty"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
}

// Link is an undirected, deduplicated (i<j) edge.
type Link struct {
	Source         string  `json:"source"`
	Target         string  `json:"target"`
	Similarity     float64 `json:"similarity"`
	SharedPrompts  int     `json:"sharedPrompts"`
	SharedSessions int     `json:"sharedSessions"`
}

type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

var gitObjectHashRe = regexp.MustCompile(`^[0-9a-f]{38,40}$`)

// isGitObjectPath filters git object blobs out of the graph. Only paths under
// .git/objects/ are treated as hashes; hash-like names elsewhere pass through.
func isGitObjectPath(path string) bool {
	if !strings.Contains(path, ".git/objects/") {
		return false
	}
	base := strings.ReplaceAll(filepath.Base(path), string(filepath.Separator), "")
	return gitObjectHashRe.MatchString(base) || gitObjectHashRe.MatchString(strings.ReplaceAll(path[strings.Index(path, ".git/objects/")+len(".git/objects/"):], "/", ""))
}

type stringSet map[string]struct{}

func (s stringSet) add(v string) {
	if v != "" {
		s[v] = struct{}{}
	}
}

// Build assembles the file graph from events and prompts. A link is emitted
// iff the weighted Jaccard similarity exceeds the threshold.
func Build(events []model.Event, prompts []model.Prompt, threshold float64) Graph {
	if threshold <= 0 {
		threshold = DefaultLinkThreshold
	}

	eventByID := make(map[string]model.Event, len(events))
	for _, ev := range events {
		eventByID[ev.ID] = ev
	}

	type fileInfo struct {
		node     Node
		prompts  stringSet
		sessions stringSet
	}
	files := map[string]*fileInfo{}
	order := []string{}

	touch := func(path string) *fileInfo {
		if path == "" || isGitObjectPath(path) {
			return nil
		}
		fi, ok := files[path]
		if !ok {
			fi = &fileInfo{
				node: Node{
					ID:        path,
					Name:      filepath.Base(path),
					Ext:       strings.TrimPrefix(filepath.Ext(path), "."),
					Directory: filepath.Dir(path),
				},
				prompts:  stringSet{},
				sessions: stringSet{},
			}
			files[path] = fi
			order = append(order, path)
		}
		return fi
	}

	for _, ev := range events {
		fi := touch(ev.Details.FilePath)
		if fi == nil {
			continue
		}
		fi.node.Events++
		if ev.Type == model.EventFileChange || ev.Type == model.EventCodeChange {
			fi.node.Changes++
		}
		fi.node.Size += ev.Details.CharsAdded - ev.Details.CharsDeleted
		if ev.Timestamp > fi.node.LastModified {
			fi.node.LastModified = ev.Timestamp
		}
		if fi.node.Workspace == "" {
			fi.node.Workspace = ev.WorkspacePath
		}
		fi.sessions.add(ev.SessionID)
		if ev.Context != nil {
			for _, group := range [][]string{ev.Context.AtFiles, ev.Context.ContextFiles} {
				for _, f := range group {
					if other := touch(f); other != nil {
						other.sessions.add(ev.SessionID)
					}
				}
			}
		}
	}

	for _, p := range prompts {
		for _, f := range p.FilePaths() {
			if fi := touch(f); fi != nil {
				fi.prompts.add(p.ID)
				if fi.node.Workspace == "" {
					fi.node.Workspace = p.Workspace()
				}
			}
		}
		if p.LinkedEntryID != "" {
			if ev, ok := eventByID[p.LinkedEntryID]; ok {
				if fi := touch(ev.Details.FilePath); fi != nil {
					fi.prompts.add(p.ID)
				}
			}
		}
	}

	g := Graph{Nodes: make([]Node, 0, len(order))}
	for _, path := range order {
		g.Nodes = append(g.Nodes, files[path].node)
	}

	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			a, b := files[order[i]], files[order[j]]
			sharedPrompts := intersection(a.prompts, b.prompts)
			sharedSessions := intersection(a.sessions, b.sessions)
			sim := promptWeight*jaccard(sharedPrompts, a.prompts, b.prompts) +
				sessionWeight*jaccard(sharedSessions, a.sessions, b.sessions)
			if sim > threshold {
				g.Links = append(g.Links, Link{
					Source:         order[i],
					Target:         order[j],
					Similarity:     sim,
					SharedPrompts:  sharedPrompts,
					SharedSessions: sharedSessions,
				})
			}
		}
	}
	sort.SliceStable(g.Links, func(i, j int) bool { return g.Links[i].Similarity > g.Links[j].Similarity })
	return g
}

func intersection(a, b stringSet) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

// jaccard = |A∩B| / |A∪B|, 0 for an empty union.
func jaccard(shared int, a, b stringSet) float64 {
	union := len(a) + len(b) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}
