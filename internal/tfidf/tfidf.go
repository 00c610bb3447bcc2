package tfidf

import (
	"math"
	"sort"

	"pulseboard/dashboard/internal/textutil"
)

// Vector is a sparse term -> tf·idf mapping; zero-valued entries are omitted.
type Vector map[string]float64

type TermScore struct {
	Term  string
	Score float64
}

// Model holds the fitted vocabulary and per-document vectors.
type Model struct {
	Vectors []Vector
	docFreq map[string]int
	numDocs int
}

// Fit builds tf·idf vectors for pre-tokenized documents. tf is the raw
// within-document count; idf = ln(N / df). Terms present in every document
// get idf 0 and are omitted from the sparse vectors.
func Fit(docs [][]string) *Model {
	m := &Model{docFreq: map[string]int{}, numDocs: len(docs)}
	if len(docs) == 0 {
		return m
	}

	counts := make([]map[string]int, len(docs))
	for i, doc := range docs {
		tf := map[string]int{}
		for _, term := range doc {
			tf[term]++
		}
		counts[i] = tf
		for term := range tf {
			m.docFreq[term]++
		}
	}

	n := float64(m.numDocs)
	m.Vectors = make([]Vector, len(docs))
	for i, tf := range counts {
		vec := Vector{}
		for term, count := range tf {
			idf := math.Log(n / float64(m.docFreq[term]))
			if idf == 0 {
				continue
			}
			vec[term] = float64(count) * idf
		}
		m.Vectors[i] = vec
	}
	return m
}

// FitTexts tokenizes raw texts and fits them.
func FitTexts(texts []string) *Model {
	docs := make([][]string, len(texts))
	for i, t := range texts {
		docs[i] = textutil.Tokenize(t)
	}
	return Fit(docs)
}

// Cosine returns dot/(|v1|·|v2|), or 0 when either magnitude is 0.
func Cosine(v1, v2 Vector) float64 {
	if len(v1) == 0 || len(v2) == 0 {
		return 0
	}
	// Iterate the smaller vector.
	if len(v2) < len(v1) {
		v1, v2 = v2, v1
	}
	var dot float64
	for term, a := range v1 {
		if b, ok := v2[term]; ok {
			dot += a * b
		}
	}
	m1 := magnitude(v1)
	m2 := magnitude(v2)
	if m1 == 0 || m2 == 0 {
		return 0
	}
	return dot / (m1 * m2)
}

func magnitude(v Vector) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// TopTerms returns the global top-k terms by summed tf·idf across documents.
func (m *Model) TopTerms(k int) []TermScore {
	if m == nil || k <= 0 {
		return nil
	}
	totals := map[string]float64{}
	for _, vec := range m.Vectors {
		for term, score := range vec {
			totals[term] += score
		}
	}
	out := make([]TermScore, 0, len(totals))
	for term, score := range totals {
		out = append(out, TermScore{Term: term, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Term < out[j].Term
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}
