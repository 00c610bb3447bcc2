package reduce

import (
	"math"
	"reflect"
	"testing"
)

func allFinite(coords [][]float64) bool {
	for _, row := range coords {
		for _, c := range row {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return false
			}
		}
	}
	return true
}

func TestReduce_EmptyInput(t *testing.T) {
	if got := Reduce(nil, Options{Dim: 2}); got != nil {
		t.Fatalf("empty input should return nil, got %v", got)
	}
}

func TestReduce_OutputShape(t *testing.T) {
	vectors := [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for _, dim := range []int{2, 3} {
		out := Reduce(vectors, Options{Dim: dim})
		if len(out) != len(vectors) {
			t.Fatalf("dim=%d: expected %d rows, got %d", dim, len(vectors), len(out))
		}
		for i, row := range out {
			if len(row) != dim {
				t.Fatalf("dim=%d row %d: expected %d coords, got %d", dim, i, dim, len(row))
			}
		}
	}
}

func TestReduce_InvalidDimFallsBackTo2(t *testing.T) {
	out := Reduce([][]float64{{1, 2}}, Options{Dim: 7})
	if len(out[0]) != 2 {
		t.Fatalf("invalid dim should clamp to 2, got %d", len(out[0]))
	}
}

func TestReduce_PCAOutputsFinite(t *testing.T) {
	vectors := [][]float64{
		{1, 2, 3, 4},
		{4, 3, 2, 1},
		{0, 0, 0, 0},
	}
	out := Reduce(vectors, Options{Dim: 2, Algorithm: AlgorithmPCA})
	if !allFinite(out) {
		t.Fatalf("pca output contains NaN/Inf: %v", out)
	}
}

func TestReduce_PCANormalized(t *testing.T) {
	out := Reduce([][]float64{{3, 4}, {0, 0}}, Options{Dim: 2, Algorithm: AlgorithmPCA})
	mag := math.Hypot(out[0][0], out[0][1])
	if math.Abs(mag-1) > 1e-9 {
		t.Fatalf("non-degenerate row should be unit length, got %v", mag)
	}
}

func TestReduce_MDSDeterministic(t *testing.T) {
	vectors := [][]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	first := Reduce(vectors, Options{Dim: 2, Algorithm: AlgorithmMDS})
	second := Reduce(vectors, Options{Dim: 2, Algorithm: AlgorithmMDS})
	if !reflect.DeepEqual(first, second) {
		t.Fatal("mds must be deterministic for a fixed input")
	}
}

func TestReduce_TSNEAliasesMDS(t *testing.T) {
	vectors := [][]float64{{0, 0}, {3, 4}, {6, 8}}
	mdsOut := Reduce(vectors, Options{Dim: 2, Algorithm: AlgorithmMDS})
	tsneOut := Reduce(vectors, Options{Dim: 2, Algorithm: AlgorithmTSNE})
	if !reflect.DeepEqual(mdsOut, tsneOut) {
		t.Fatal("tsne must produce the same embedding as mds")
	}
}

func TestReduce_SingleVectorMDS(t *testing.T) {
	out := Reduce([][]float64{{5, 5}}, Options{Dim: 2, Algorithm: AlgorithmMDS})
	if !reflect.DeepEqual(out, [][]float64{{0, 0}}) {
		t.Fatalf("single vector should embed at the origin, got %v", out)
	}
}

func TestReduce_MDSFinite(t *testing.T) {
	vectors := make([][]float64, 30)
	for i := range vectors {
		vectors[i] = []float64{float64(i), float64(i * i)}
	}
	out := Reduce(vectors, Options{Dim: 2, Algorithm: AlgorithmMDS})
	if !allFinite(out) {
		t.Fatalf("mds output contains NaN/Inf")
	}
}
