// Package logging defines the structured log sink the engine reports through.
// Delivery is never load-bearing: callers fire entries and move on.
package logging

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Level classifies a log entry.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Entry is a single structured log record.
type Entry struct {
	Time    time.Time
	Level   Level
	Message string
	Fields  map[string]any
}

// Sink accepts log entries. Implementations must not block the caller on
// delivery failures.
type Sink interface {
	Log(Entry)
}

// logrusSink forwards entries to a logrus logger.
type logrusSink struct {
	logger *logrus.Logger
}

// NewLogrusSink wraps a logrus logger as a Sink.
func NewLogrusSink(logger *logrus.Logger) Sink {
	return &logrusSink{logger: logger}
}

// Default returns a Sink backed by the standard logrus logger.
func Default() Sink {
	return &logrusSink{logger: logrus.StandardLogger()}
}

func (s *logrusSink) Log(e Entry) {
	entry := s.logger.WithFields(logrus.Fields(e.Fields))
	if !e.Time.IsZero() {
		entry = entry.WithTime(e.Time)
	}
	switch e.Level {
	case LevelWarn:
		entry.Warn(e.Message)
	case LevelError:
		entry.Error(e.Message)
	default:
		entry.Info(e.Message)
	}
}

// discard drops every entry.
type discard struct{}

// Discard returns a Sink that drops all entries.
func Discard() Sink { return discard{} }

func (discard) Log(Entry) {}

// Capture records entries in memory for assertions in tests.
type Capture struct {
	mu      sync.Mutex
	entries []Entry
}

func (c *Capture) Log(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
}

// Entries returns a copy of everything logged so far.
func (c *Capture) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}
