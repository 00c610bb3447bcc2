package layout

import (
	"math"
	"sort"

	"pulseboard/dashboard/internal/graph"
)

type Algorithm string

const (
	AlgorithmForce    Algorithm = "force"
	AlgorithmCircular Algorithm = "circular"
	AlgorithmRadial   Algorithm = "radial"
)

// Force simulation constants.
const (
	linkDistanceIntra = 50.0
	linkDistanceInter = 150.0
	chargeStrength    = -400.0
	collisionRadius   = 35.0
	clusterStrength   = 0.1
	forceTicks        = 300
	alphaDecay        = 0.0228 // 1 - pow(0.001, 1/300)
)

// Positions maps node id to a 2D coordinate.
type Positions map[string]graph.Point

// Compute produces node positions for the requested algorithm inside a
// W×H viewport. Node Cluster fields (when assigned) shape the result.
func Compute(g *graph.Graph, algo Algorithm, width, height float64) Positions {
	if g == nil || len(g.Nodes) == 0 {
		return Positions{}
	}
	switch algo {
	case AlgorithmCircular:
		return circular(g, width, height)
	case AlgorithmRadial:
		return radial(g, width, height)
	default:
		return force(g, width, height)
	}
}

// force is a cooled relaxation: link springs (shorter inside a cluster),
// pairwise charge repulsion, collision separation, and a per-tick pull
// toward the node's cluster centroid with strength 0.1·α.
func force(g *graph.Graph, width, height float64) Positions {
	n := len(g.Nodes)
	cx, cy := width/2, height/2

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range g.Nodes {
		angle := 2 * math.Pi * float64(i) / float64(n)
		r := 10 + float64(i%7)*15
		xs[i] = cx + r*math.Cos(angle)
		ys[i] = cy + r*math.Sin(angle)
	}

	indexOf := make(map[string]int, n)
	for i, node := range g.Nodes {
		indexOf[node.ID] = i
	}

	alpha := 1.0
	for tick := 0; tick < forceTicks && alpha > 0.001; tick++ {
		// Link springs.
		for _, l := range g.Links {
			i, j := indexOf[l.Source], indexOf[l.Target]
			target := linkDistanceInter
			if g.Nodes[i].Cluster != "" && g.Nodes[i].Cluster == g.Nodes[j].Cluster {
				target = linkDistanceIntra
			}
			dx, dy := xs[j]-xs[i], ys[j]-ys[i]
			dist := math.Hypot(dx, dy)
			if dist == 0 {
				dist = 1e-6
			}
			k := alpha * (dist - target) / dist / 2
			xs[i] += dx * k
			ys[i] += dy * k
			xs[j] -= dx * k
			ys[j] -= dy * k
		}

		// Charge repulsion.
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				dx, dy := xs[j]-xs[i], ys[j]-ys[i]
				distSq := dx*dx + dy*dy
				if distSq == 0 {
					distSq = 1e-6
				}
				f := alpha * chargeStrength / distSq
				dist := math.Sqrt(distSq)
				fx, fy := f*dx/dist, f*dy/dist
				xs[i] += fx
				ys[i] += fy
				xs[j] -= fx
				ys[j] -= fy
			}
		}

		// Collision separation.
		resolveCollisions(xs, ys)

		// Cluster centroid pull.
		centroids := clusterCentroids(g, xs, ys)
		for i := range g.Nodes {
			c, ok := centroids[g.Nodes[i].Cluster]
			if !ok {
				continue
			}
			xs[i] += (c.X - xs[i]) * clusterStrength * alpha
			ys[i] += (c.Y - ys[i]) * clusterStrength * alpha
		}

		alpha -= alpha * alphaDecay
	}

	return collect(g, xs, ys)
}

// circular places nodes at equal angles on one ring, then runs a short
// collision-only relaxation.
func circular(g *graph.Graph, width, height float64) Positions {
	n := len(g.Nodes)
	cx, cy := width/2, height/2
	radius := math.Min(width, height)/2 - 100
	if radius < collisionRadius {
		radius = collisionRadius
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range g.Nodes {
		angle := 2 * math.Pi * float64(i) / float64(n)
		xs[i] = cx + radius*math.Cos(angle)
		ys[i] = cy + radius*math.Sin(angle)
	}
	for tick := 0; tick < 30; tick++ {
		if !resolveCollisions(xs, ys) {
			break
		}
	}
	return collect(g, xs, ys)
}

// radial groups nodes by cluster: cluster centers sit on an outer ring,
// members on an inner ring around their center.
func radial(g *graph.Graph, width, height float64) Positions {
	cx, cy := width/2, height/2
	outer := math.Min(width, height)/2 - 100
	if outer < collisionRadius {
		outer = collisionRadius
	}

	members := map[string][]int{}
	clusterIDs := []string{}
	for i, node := range g.Nodes {
		id := node.Cluster
		if id == "" {
			id = "unclustered"
		}
		if _, ok := members[id]; !ok {
			clusterIDs = append(clusterIDs, id)
		}
		members[id] = append(members[id], i)
	}
	sort.Strings(clusterIDs)

	n := len(g.Nodes)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for c, id := range clusterIDs {
		angle := 2 * math.Pi * float64(c) / float64(len(clusterIDs))
		ccx := cx + outer*math.Cos(angle)
		ccy := cy + outer*math.Sin(angle)
		ring := members[id]
		inner := collisionRadius * math.Sqrt(float64(len(ring)))
		for m, i := range ring {
			a := 2 * math.Pi * float64(m) / float64(len(ring))
			xs[i] = ccx + inner*math.Cos(a)
			ys[i] = ccy + inner*math.Sin(a)
		}
	}
	return collect(g, xs, ys)
}

func resolveCollisions(xs, ys []float64) bool {
	moved := false
	minDist := 2 * collisionRadius
	for i := 0; i < len(xs); i++ {
		for j := i + 1; j < len(xs); j++ {
			dx, dy := xs[j]-xs[i], ys[j]-ys[i]
			dist := math.Hypot(dx, dy)
			if dist >= minDist {
				continue
			}
			moved = true
			if dist == 0 {
				dx, dy, dist = 1, 0, 1
			}
			push := (minDist - dist) / dist / 2
			xs[i] -= dx * push
			ys[i] -= dy * push
			xs[j] += dx * push
			ys[j] += dy * push
		}
	}
	return moved
}

func clusterCentroids(g *graph.Graph, xs, ys []float64) map[string]graph.Point {
	sums := map[string]*graph.Point{}
	counts := map[string]int{}
	for i, node := range g.Nodes {
		if node.Cluster == "" {
			continue
		}
		p, ok := sums[node.Cluster]
		if !ok {
			p = &graph.Point{}
			sums[node.Cluster] = p
		}
		p.X += xs[i]
		p.Y += ys[i]
		counts[node.Cluster]++
	}
	out := make(map[string]graph.Point, len(sums))
	for id, p := range sums {
		out[id] = graph.Point{X: p.X / float64(counts[id]), Y: p.Y / float64(counts[id])}
	}
	return out
}

func collect(g *graph.Graph, xs, ys []float64) Positions {
	out := make(Positions, len(g.Nodes))
	for i, node := range g.Nodes {
		x, y := xs[i], ys[i]
		if math.IsNaN(x) || math.IsInf(x, 0) {
			x = 0
		}
		if math.IsNaN(y) || math.IsInf(y, 0) {
			y = 0
		}
		out[node.ID] = graph.Point{X: x, Y: y}
	}
	return out
}
