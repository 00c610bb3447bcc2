package graph

import (
	"fmt"
	"math"
	"sort"
)

type ClusterAlgorithm string

const (
	ClusterByFileType   ClusterAlgorithm = "fileType"
	ClusterByWorkspace  ClusterAlgorithm = "workspace"
	ClusterByDirectory  ClusterAlgorithm = "directory"
	ClusterBySimilarity ClusterAlgorithm = "similarity"
	ClusterByCommunity  ClusterAlgorithm = "community"
)

// Assign labels every node's Cluster field in place and returns the set of
// cluster ids. One algorithm at a time.
func Assign(g *Graph, algo ClusterAlgorithm) []string {
	if g == nil || len(g.Nodes) == 0 {
		return nil
	}
	switch algo {
	case ClusterByWorkspace:
		return assignByAttr(g, func(n Node) string { return orUnknown(n.Workspace) })
	case ClusterByDirectory:
		return assignByAttr(g, func(n Node) string { return orUnknown(n.Directory) })
	case ClusterBySimilarity:
		return assignKMeans(g)
	case ClusterByCommunity:
		return assignCommunity(g)
	default:
		return assignByAttr(g, func(n Node) string { return orUnknown(n.Ext) })
	}
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

func assignByAttr(g *Graph, attr func(Node) string) []string {
	seen := map[string]struct{}{}
	ids := []string{}
	for i := range g.Nodes {
		id := attr(g.Nodes[i])
		g.Nodes[i].Cluster = id
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// assignKMeans runs a k-means-like pass on link connectivity: k = min(5,
// ceil(N/10)), centroids are node indices, distance = 1 - similarity when a
// link exists, else 1. 10 outer iterations; each iteration reassigns all
// nodes then picks the most-connected member of each cluster as the new
// centroid.
func assignKMeans(g *Graph) []string {
	n := len(g.Nodes)
	k := int(math.Ceil(float64(n) / 10))
	if k > 5 {
		k = 5
	}
	if k < 1 {
		k = 1
	}

	indexOf := make(map[string]int, n)
	for i, node := range g.Nodes {
		indexOf[node.ID] = i
	}
	sim := make(map[[2]int]float64, len(g.Links))
	degree := make([]int, n)
	for _, l := range g.Links {
		i, j := indexOf[l.Source], indexOf[l.Target]
		sim[pairKey(i, j)] = l.Similarity
		degree[i]++
		degree[j]++
	}
	dist := func(a, b int) float64 {
		if a == b {
			return 0
		}
		if s, ok := sim[pairKey(a, b)]; ok {
			return 1 - s
		}
		return 1
	}

	centroids := make([]int, k)
	for c := range centroids {
		centroids[c] = c * n / k
	}
	assignment := make([]int, n)

	for iter := 0; iter < 10; iter++ {
		for i := 0; i < n; i++ {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				if d := dist(i, centroid); d < bestDist {
					best, bestDist = c, d
				}
			}
			assignment[i] = best
		}
		for c := range centroids {
			bestNode, bestDegree := centroids[c], -1
			for i := 0; i < n; i++ {
				if assignment[i] == c && degree[i] > bestDegree {
					bestNode, bestDegree = i, degree[i]
				}
			}
			centroids[c] = bestNode
		}
	}

	ids := make([]string, k)
	for c := range ids {
		ids[c] = fmt.Sprintf("cluster-%d", c)
	}
	for i := range g.Nodes {
		g.Nodes[i].Cluster = ids[assignment[i]]
	}
	return ids
}

// assignCommunity greedily merges the community pair that maximizes internal
// links minus expected links (|merged|·(|merged|-1))/(2·|E|). Stops after 5
// iterations or when no merge improves the score.
func assignCommunity(g *Graph) []string {
	n := len(g.Nodes)
	indexOf := make(map[string]int, n)
	for i, node := range g.Nodes {
		indexOf[node.ID] = i
	}

	totalEdges := len(g.Links)
	if totalEdges == 0 {
		// Singleton communities only.
		ids := make([]string, n)
		for i := range g.Nodes {
			ids[i] = fmt.Sprintf("community-%d", i)
			g.Nodes[i].Cluster = ids[i]
		}
		return ids
	}

	adj := make([]map[int]struct{}, n)
	for i := range adj {
		adj[i] = map[int]struct{}{}
	}
	for _, l := range g.Links {
		i, j := indexOf[l.Source], indexOf[l.Target]
		adj[i][j] = struct{}{}
		adj[j][i] = struct{}{}
	}

	communities := make([][]int, n)
	for i := range communities {
		communities[i] = []int{i}
	}

	score := func(members []int) float64 {
		internal := 0
		for x := 0; x < len(members); x++ {
			for y := x + 1; y < len(members); y++ {
				if _, ok := adj[members[x]][members[y]]; ok {
					internal++
				}
			}
		}
		size := float64(len(members))
		expected := size * (size - 1) / (2 * float64(totalEdges))
		return float64(internal) - expected
	}

	for iter := 0; iter < 5 && len(communities) > 1; iter++ {
		bestA, bestB := -1, -1
		bestGain := 0.0
		for a := 0; a < len(communities); a++ {
			for b := a + 1; b < len(communities); b++ {
				merged := append(append([]int{}, communities[a]...), communities[b]...)
				gain := score(merged) - score(communities[a]) - score(communities[b])
				if gain > bestGain {
					bestGain, bestA, bestB = gain, a, b
				}
			}
		}
		if bestA < 0 {
			break
		}
		communities[bestA] = append(communities[bestA], communities[bestB]...)
		communities = append(communities[:bestB], communities[bestB+1:]...)
	}

	ids := make([]string, 0, len(communities))
	for c, members := range communities {
		id := fmt.Sprintf("community-%d", c)
		ids = append(ids, id)
		for _, i := range members {
			g.Nodes[i].Cluster = id
		}
	}
	return ids
}

func pairKey(i, j int) [2]int {
	if i > j {
		i, j = j, i
	}
	return [2]int{i, j}
}
