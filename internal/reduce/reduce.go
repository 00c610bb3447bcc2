package reduce

import (
	"math"
	"math/rand"
)

type Algorithm string

const (
	AlgorithmPCA Algorithm = "pca"
	AlgorithmMDS Algorithm = "mds"
	// AlgorithmTSNE is currently an alias of MDS. The public contract
	// (inputs, outputs, ranges) is the same either way.
	AlgorithmTSNE Algorithm = "tsne"
)

const maxComponents = 50

// Options control a reduction. Dim must be 2 or 3; Components is optional
// and clamped to [2, min(D, 50)].
type Options struct {
	Dim        int
	Algorithm  Algorithm
	Components int
}

// Reduce embeds N vectors of dimension D into Dim coordinates. Outputs are
// always finite; degenerate inputs produce zero coordinates rather than NaN.
func Reduce(vectors [][]float64, opts Options) [][]float64 {
	if len(vectors) == 0 {
		return nil
	}
	dim := opts.Dim
	if dim != 3 {
		dim = 2
	}
	switch opts.Algorithm {
	case AlgorithmMDS, AlgorithmTSNE:
		return mds(vectors, dim)
	default:
		return pcaLike(vectors, dim, opts.Components)
	}
}

// pcaLike mean-centers, truncates each centered vector to the leading
// coordinates, L2-normalizes, and pads/trims to dim. A simplification used
// for visualization only; not an eigendecomposition.
func pcaLike(vectors [][]float64, dim, components int) [][]float64 {
	n := len(vectors)
	d := len(vectors[0])
	if d == 0 {
		return zeros(n, dim)
	}

	c := components
	if c <= 0 || c > maxComponents {
		c = maxComponents
	}
	if c < 2 {
		c = 2
	}
	keep := min3(c, d, dim)

	mean := make([]float64, d)
	for _, v := range vectors {
		for i := 0; i < d && i < len(v); i++ {
			mean[i] += v[i]
		}
	}
	for i := range mean {
		mean[i] /= float64(n)
	}

	out := make([][]float64, n)
	for i, v := range vectors {
		coords := make([]float64, dim)
		var mag float64
		for j := 0; j < keep && j < len(v); j++ {
			coords[j] = v[j] - mean[j]
			mag += coords[j] * coords[j]
		}
		mag = math.Sqrt(mag)
		if mag > 0 {
			for j := range coords {
				coords[j] /= mag
			}
		}
		out[i] = sanitize(coords)
	}
	return out
}

// mds runs fixed-step stress minimization over the pairwise Euclidean
// distance matrix. Iterations = min(20, 2N), step 0.01.
func mds(vectors [][]float64, dim int) [][]float64 {
	n := len(vectors)
	if n == 1 {
		return zeros(1, dim)
	}

	target := make([][]float64, n)
	for i := range target {
		target[i] = make([]float64, n)
		for j := range target[i] {
			if i != j {
				target[i][j] = euclidean(vectors[i], vectors[j])
			}
		}
	}

	rng := rand.New(rand.NewSource(1))
	pos := make([][]float64, n)
	for i := range pos {
		pos[i] = make([]float64, dim)
		for j := range pos[i] {
			pos[i][j] = rng.Float64()*2 - 1
		}
	}

	iterations := 2 * n
	if iterations > 20 {
		iterations = 20
	}
	const step = 0.01
	for iter := 0; iter < iterations; iter++ {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				current := euclidean(pos[i], pos[j])
				if current == 0 {
					continue
				}
				errAmt := current - target[i][j]
				for k := 0; k < dim; k++ {
					unit := (pos[j][k] - pos[i][k]) / current
					pos[i][k] += step * errAmt * unit
				}
			}
		}
	}

	for i := range pos {
		pos[i] = sanitize(pos[i])
	}
	return pos
}

func euclidean(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func sanitize(coords []float64) []float64 {
	for i, c := range coords {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			coords[i] = 0
		}
	}
	return coords
}

func zeros(n, dim int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, dim)
	}
	return out
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
