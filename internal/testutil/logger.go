// Package testutil holds fakes shared by package tests.
package testutil

import (
	"fmt"
	"strings"
	"sync"
)

// Entry is one recorded log line.
type Entry struct {
	Level   string
	Message string
}

// Logger records every message so tests can assert on observability events.
type Logger struct {
	mu      sync.Mutex
	entries []Entry
}

func NewLogger() *Logger {
	return &Logger{}
}

func (l *Logger) record(level string, msg string) {
	l.mu.Lock()
	l.entries = append(l.entries, Entry{Level: level, Message: msg})
	l.mu.Unlock()
}

// Entries returns a copy of everything logged so far.
func (l *Logger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Count returns how many messages at level contain substr. An empty level matches all.
func (l *Logger) Count(level, substr string) int {
	n := 0
	for _, e := range l.Entries() {
		if (level == "" || e.Level == level) && strings.Contains(e.Message, substr) {
			n++
		}
	}
	return n
}

func (l *Logger) Debug(args ...interface{}) { l.record("debug", fmt.Sprint(args...)) }
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.record("debug", fmt.Sprintf(format, args...))
}
func (l *Logger) Info(args ...interface{}) { l.record("info", fmt.Sprint(args...)) }
func (l *Logger) Infof(format string, args ...interface{}) {
	l.record("info", fmt.Sprintf(format, args...))
}
func (l *Logger) Warn(args ...interface{}) { l.record("warn", fmt.Sprint(args...)) }
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.record("warn", fmt.Sprintf(format, args...))
}
func (l *Logger) Error(args ...interface{}) { l.record("error", fmt.Sprint(args...)) }
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.record("error", fmt.Sprintf(format, args...))
}
func (l *Logger) Fatal(args ...interface{}) { l.record("fatal", fmt.Sprint(args...)) }
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.record("fatal", fmt.Sprintf(format, args...))
}
