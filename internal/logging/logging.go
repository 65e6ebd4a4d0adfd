// Package logging builds the slog logger shared by a run.
//
// Records are written as text to stderr, to the run's log file and to an
// in-memory Capture whose lines end up in the run summary.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Capture is an io.Writer that keeps every complete line written to it
type Capture struct {
	mu      sync.Mutex
	partial bytes.Buffer
	lines   []string
}

func (c *Capture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.partial.Write(p)
	for {
		data := c.partial.Bytes()
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		c.lines = append(c.lines, string(data[:i]))
		c.partial.Next(i + 1)
	}
	return len(p), nil
}

// Lines returns a copy of the captured lines
func (c *Capture) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

// Logger bundles the logger with the sinks that must be closed or read later
type Logger struct {
	*slog.Logger
	Capture *Capture
	File    string

	file *os.File
}

// Close flushes and closes the log file, if any
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Options controls where records go
type Options struct {
	Level  string
	File   string    // appended to; empty disables the file sink
	Stderr io.Writer // defaults to os.Stderr; use io.Discard to silence
}

// New creates a logger writing to stderr, the optional file and a fresh Capture
func New(opts Options) (*Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	capture := &Capture{}
	writers := []io.Writer{stderr, capture}

	var f *os.File
	if opts.File != "" {
		f, err = os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
	}

	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: level})
	return &Logger{
		Logger:  slog.New(handler),
		Capture: capture,
		File:    opts.File,
		file:    f,
	}, nil
}

// Discard returns a logger that drops everything; used by tests and library callers
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
