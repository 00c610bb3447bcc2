package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Options struct {
	Level     string
	Writer    io.Writer
	Component string
}

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// NewLogger builds the JSON logger every component hangs off. Unknown level
// names fall back to info.
func NewLogger(opts Options) *slog.Logger {
	level, ok := levelNames[strings.ToLower(strings.TrimSpace(opts.Level))]
	if !ok {
		level = slog.LevelInfo
	}
	out := opts.Writer
	if out == nil {
		out = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	if component := strings.TrimSpace(opts.Component); component != "" {
		logger = logger.With("component", component)
	}
	return logger
}

// NewNopLogger returns a logger that discards everything. Components that take
// an optional *slog.Logger fall back to this.
func NewNopLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
