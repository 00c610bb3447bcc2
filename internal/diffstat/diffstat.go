package diffstat

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Stat is a line/char delta derived from before/after content. The companion
// usually ships these precomputed; this fills them in when it does not.
type Stat struct {
	CharsAdded   int
	CharsDeleted int
	LinesAdded   int
	LinesRemoved int
}

func Compute(before, after string) Stat {
	if before == after {
		return Stat{}
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, true)
	dmp.DiffCleanupSemantic(diffs)

	var st Stat
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			st.CharsAdded += len(d.Text)
			st.LinesAdded += countLines(d.Text)
		case diffmatchpatch.DiffDelete:
			st.CharsDeleted += len(d.Text)
			st.LinesRemoved += countLines(d.Text)
		}
	}
	return st
}

// countLines treats any insert/delete chunk as touching at least one line.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if n == 0 {
		return 1
	}
	return n
}
