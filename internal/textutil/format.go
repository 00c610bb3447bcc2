package textutil

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Truncate cuts s to at most n runes, appending an ellipsis when trimmed.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

// TimeAgo renders an epoch-ms timestamp as a relative phrase ("3 minutes ago").
func TimeAgo(tsMillis int64) string {
	if tsMillis <= 0 {
		return "never"
	}
	return humanize.Time(time.UnixMilli(tsMillis))
}

// ByteSize renders a byte count in human units.
func ByteSize(n uint64) string {
	return humanize.Bytes(n)
}

// FormatTimeSpan renders a millisecond duration as "Hh Mm".
func FormatTimeSpan(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	d := time.Duration(ms) * time.Millisecond
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
