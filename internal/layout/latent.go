package layout

import (
	"sort"

	"pulseboard/dashboard/internal/graph"
	"pulseboard/dashboard/internal/reduce"
	"pulseboard/dashboard/internal/textutil"
)

const latentTopWords = 100

// extFeatures is the small one-hot extension set used in the structural part
// of the latent feature vector.
var extFeatures = []string{"js", "ts", "tsx", "py", "go", "rs", "md", "json", "css", "html"}

// LatentPositions embeds nodes by semantic proximity: each node's feature
// vector combines its top-100 word counts with structural features
// (normalized change count, normalized event count, extension one-hot), then
// the reducer projects to 2D and the result is scaled into the viewport.
func LatentPositions(g *graph.Graph, contents map[string]string, algo reduce.Algorithm, width, height float64) Positions {
	if g == nil || len(g.Nodes) == 0 {
		return Positions{}
	}

	tokens := make([][]string, len(g.Nodes))
	wordTotals := map[string]int{}
	for i, node := range g.Nodes {
		tokens[i] = textutil.Tokenize(contents[node.ID])
		for _, t := range tokens[i] {
			wordTotals[t]++
		}
	}

	type wc struct {
		word  string
		count int
	}
	ranked := make([]wc, 0, len(wordTotals))
	for w, c := range wordTotals {
		ranked = append(ranked, wc{w, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})
	if len(ranked) > latentTopWords {
		ranked = ranked[:latentTopWords]
	}
	wordIndex := make(map[string]int, len(ranked))
	for i, w := range ranked {
		wordIndex[w.word] = i
	}

	maxChanges, maxEvents := 1, 1
	for _, node := range g.Nodes {
		if node.Changes > maxChanges {
			maxChanges = node.Changes
		}
		if node.Events > maxEvents {
			maxEvents = node.Events
		}
	}

	dim := len(ranked) + 2 + len(extFeatures)
	vectors := make([][]float64, len(g.Nodes))
	for i, node := range g.Nodes {
		v := make([]float64, dim)
		for _, t := range tokens[i] {
			if idx, ok := wordIndex[t]; ok {
				v[idx]++
			}
		}
		v[len(ranked)] = float64(node.Changes) / float64(maxChanges)
		v[len(ranked)+1] = float64(node.Events) / float64(maxEvents)
		for e, ext := range extFeatures {
			if node.Ext == ext {
				v[len(ranked)+2+e] = 1
			}
		}
		vectors[i] = v
	}

	coords := reduce.Reduce(vectors, reduce.Options{Dim: 2, Algorithm: algo})
	return scaleToViewport(g, coords, width, height)
}

// scaleToViewport maps raw embedding coordinates into the viewport with a
// margin, preserving relative distances per axis.
func scaleToViewport(g *graph.Graph, coords [][]float64, width, height float64) Positions {
	out := make(Positions, len(g.Nodes))
	if len(coords) == 0 {
		return out
	}
	minX, maxX := coords[0][0], coords[0][0]
	minY, maxY := coords[0][1], coords[0][1]
	for _, c := range coords {
		if c[0] < minX {
			minX = c[0]
		}
		if c[0] > maxX {
			maxX = c[0]
		}
		if c[1] < minY {
			minY = c[1]
		}
		if c[1] > maxY {
			maxY = c[1]
		}
	}
	const margin = 80.0
	spanX, spanY := maxX-minX, maxY-minY
	for i, node := range g.Nodes {
		x, y := width/2, height/2
		if spanX > 0 {
			x = margin + (coords[i][0]-minX)/spanX*(width-2*margin)
		}
		if spanY > 0 {
			y = margin + (coords[i][1]-minY)/spanY*(height-2*margin)
		}
		out[node.ID] = graph.Point{X: x, Y: y}
	}
	return out
}
