package graph

import (
	"math"
	"sort"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

const hullPadding = 20.0

// ClusterHull returns the convex hull of the member positions, each vertex
// pushed radially outward from the centroid by a fixed padding. Fewer than
// three members yield the points themselves.
func ClusterHull(points []Point) []Point {
	if len(points) == 0 {
		return nil
	}
	hull := convexHull(points)

	var cx, cy float64
	for _, p := range hull {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(hull))
	cy /= float64(len(hull))

	out := make([]Point, len(hull))
	for i, p := range hull {
		dx, dy := p.X-cx, p.Y-cy
		dist := math.Hypot(dx, dy)
		if dist == 0 {
			out[i] = Point{X: p.X + hullPadding, Y: p.Y}
			continue
		}
		scale := (dist + hullPadding) / dist
		out[i] = Point{X: cx + dx*scale, Y: cy + dy*scale}
	}
	return out
}

// convexHull is the monotone chain algorithm.
func convexHull(points []Point) []Point {
	pts := append([]Point{}, points...)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
	if len(pts) < 3 {
		return pts
	}

	cross := func(o, a, b Point) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	lower := []Point{}
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	upper := []Point{}
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}
