package layout

import (
	"math"
	"time"

	"pulseboard/dashboard/internal/graph"
)

// View modes map onto the interpolation parameter t.
type ViewMode string

const (
	ModePhysical ViewMode = "physical"
	ModeHybrid   ViewMode = "hybrid"
	ModeLatent   ViewMode = "latent"
)

func (m ViewMode) T() float64 {
	switch m {
	case ModeLatent:
		return 1.0
	case ModeHybrid:
		return 0.5
	default:
		return 0.0
	}
}

// Interpolate renders each node at (1−t)·physical + t·latent. Nodes missing
// from one map hold the position they have in the other.
func Interpolate(physical, latent Positions, t float64) Positions {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	out := make(Positions, len(physical))
	for id, p := range physical {
		l, ok := latent[id]
		if !ok {
			out[id] = p
			continue
		}
		out[id] = graph.Point{
			X: (1-t)*p.X + t*l.X,
			Y: (1-t)*p.Y + t*l.Y,
		}
	}
	for id, l := range latent {
		if _, ok := physical[id]; !ok {
			out[id] = l
		}
	}
	return out
}

// EaseInOutQuad is the transition easing curve.
func EaseInOutQuad(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - math.Pow(-2*t+2, 2)/2
}

// Transition animates the interpolation parameter from one value to another
// over 1000/speed milliseconds.
type Transition struct {
	FromT    float64
	ToT      float64
	Start    time.Time
	Duration time.Duration
}

func NewTransition(fromT, toT, speed float64, start time.Time) Transition {
	if speed <= 0 {
		speed = 1
	}
	return Transition{
		FromT:    fromT,
		ToT:      toT,
		Start:    start,
		Duration: time.Duration(1000/speed) * time.Millisecond,
	}
}

// At returns the eased interpolation parameter at the given instant.
func (tr Transition) At(now time.Time) float64 {
	if tr.Duration <= 0 {
		return tr.ToT
	}
	frac := float64(now.Sub(tr.Start)) / float64(tr.Duration)
	eased := EaseInOutQuad(frac)
	return tr.FromT + (tr.ToT-tr.FromT)*eased
}

func (tr Transition) Done(now time.Time) bool {
	return now.Sub(tr.Start) >= tr.Duration
}

// Coherence scores how well clusters separate spatially:
// max(0, min(100, (1 − avgIntra/avgInter) · 100)). Zero when either average
// is undefined.
func Coherence(pos Positions, clusterOf map[string]string) float64 {
	ids := make([]string, 0, len(pos))
	for id := range pos {
		ids = append(ids, id)
	}
	var intraSum, interSum float64
	var intraN, interN int
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := pos[ids[i]], pos[ids[j]]
			d := math.Hypot(a.X-b.X, a.Y-b.Y)
			if clusterOf[ids[i]] == clusterOf[ids[j]] {
				intraSum += d
				intraN++
			} else {
				interSum += d
				interN++
			}
		}
	}
	if intraN == 0 || interN == 0 || interSum == 0 {
		return 0
	}
	avgIntra := intraSum / float64(intraN)
	avgInter := interSum / float64(interN)
	score := (1 - avgIntra/avgInter) * 100
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
