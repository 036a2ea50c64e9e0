// Package logger holds the process-wide structured logger of the
// htmlsanitize command.
package logger

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// Options configures the logger.
type Options struct {
	Debug  bool      // log debug messages, including every sanitizer decision
	Quiet  bool      // log errors only; wins over Debug
	JSON   bool      // JSON lines instead of logfmt-style text
	Output io.Writer // defaults to stderr
}

var (
	mu      sync.RWMutex
	current = newLogger(Options{})
)

// Init replaces the process-wide logger.
func Init(opts Options) {
	l := newLogger(opts)
	mu.Lock()
	current = l
	mu.Unlock()
}

func newLogger(opts Options) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case opts.Quiet:
		level = slog.LevelError
	case opts.Debug:
		level = slog.LevelDebug
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	hopts := &slog.HandlerOptions{Level: level}
	if opts.JSON {
		return slog.New(slog.NewJSONHandler(out, hopts))
	}
	return slog.New(slog.NewTextHandler(out, hopts))
}

// Get returns the process-wide logger, e.g. to hand to a sanitizer policy.
func Get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Debug logs at debug level.
func Debug(msg string, args ...any) { Get().Debug(msg, args...) }

// Info logs at info level.
func Info(msg string, args ...any) { Get().Info(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { Get().Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { Get().Error(msg, args...) }

// With returns the process-wide logger with args attached.
func With(args ...any) *slog.Logger { return Get().With(args...) }
