package status

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"pulseboard/dashboard/internal/logging"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Message struct {
	Level Level     `json:"level"`
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
}

const (
	defaultAutoHide = 10 * time.Second
	historyCap      = 200
)

// Stream is the observable status surface. Every message is recorded; only
// messages passing the keyword filter are displayed, and the display
// auto-hides after a quiet period.
type Stream struct {
	mu           sync.Mutex
	subs         []chan Message
	history      []Message
	hideKeywords []string
	visible      bool
	hideTimer    *time.Timer
	autoHide     time.Duration
	logger       *slog.Logger
	onVisibility func(visible bool)
}

type Option func(*Stream)

func WithLogger(lg *slog.Logger) Option {
	return func(s *Stream) { s.logger = lg }
}

func WithAutoHide(d time.Duration) Option {
	return func(s *Stream) {
		if d > 0 {
			s.autoHide = d
		}
	}
}

// WithHideKeywords records, but does not display, messages containing any of
// the given keywords.
func WithHideKeywords(keywords ...string) Option {
	return func(s *Stream) { s.hideKeywords = keywords }
}

func WithVisibilityFunc(fn func(bool)) Option {
	return func(s *Stream) { s.onVisibility = fn }
}

func NewStream(opts ...Option) *Stream {
	s := &Stream{autoHide: defaultAutoHide}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNopLogger()
	}
	return s
}

func (s *Stream) Info(text string)    { s.Publish(LevelInfo, text) }
func (s *Stream) Success(text string) { s.Publish(LevelSuccess, text) }
func (s *Stream) Warning(text string) { s.Publish(LevelWarning, text) }
func (s *Stream) Error(text string)   { s.Publish(LevelError, text) }

func (s *Stream) Publish(level Level, text string) {
	msg := Message{Level: level, Text: text, At: time.Now()}

	s.mu.Lock()
	s.history = append(s.history, msg)
	if len(s.history) > historyCap {
		s.history = s.history[len(s.history)-historyCap:]
	}
	display := s.shouldDisplay(text)
	if display {
		if !s.visible {
			s.visible = true
			if s.onVisibility != nil {
				go s.onVisibility(true)
			}
		}
		if s.hideTimer != nil {
			s.hideTimer.Stop()
		}
		s.hideTimer = time.AfterFunc(s.autoHide, s.hide)
	}
	subs := append([]chan Message{}, s.subs...)
	s.mu.Unlock()

	switch level {
	case LevelError:
		s.logger.Error("status", "text", text)
	case LevelWarning:
		s.logger.Warn("status", "text", text)
	default:
		s.logger.Info("status", "text", text, "level", string(level))
	}

	if !display {
		return
	}
	for _, ch := range subs {
		select {
		case ch <- msg:
		default:
			// Slow subscribers drop messages instead of blocking publishers.
		}
	}
}

func (s *Stream) shouldDisplay(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range s.hideKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return false
		}
	}
	return true
}

func (s *Stream) hide() {
	s.mu.Lock()
	wasVisible := s.visible
	s.visible = false
	fn := s.onVisibility
	s.mu.Unlock()
	if wasVisible && fn != nil {
		fn(false)
	}
}

func (s *Stream) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// Subscribe returns a buffered channel of displayed messages.
func (s *Stream) Subscribe() <-chan Message {
	ch := make(chan Message, 16)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

// Recent returns up to n recorded messages, newest last.
func (s *Stream) Recent(n int) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || n > len(s.history) {
		n = len(s.history)
	}
	out := make([]Message, n)
	copy(out, s.history[len(s.history)-n:])
	return out
}
