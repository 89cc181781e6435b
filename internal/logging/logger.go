// Package logging provides the append-only run log
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level is the severity of a log line
type Level int

const (
	Info Level = iota
	Warning
	Error
	Success
)

func (l Level) String() string {
	switch l {
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	case Success:
		return "SUCCESS"
	default:
		return "INFO"
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case Warning:
		return slog.LevelWarn
	case Error:
		return slog.LevelError
	case Success:
		return LevelSuccess
	default:
		return slog.LevelInfo
	}
}

// Logger is the logging collaborator of the pipeline. Implementations must
// not fail the caller.
type Logger interface {
	Log(message string, level Level)
}

// FileLogger appends lines to a file and mirrors them to a slog.Logger
type FileLogger struct {
	path    string
	console *slog.Logger
	now     func() time.Time
	mu      sync.Mutex
}

// New creates a file logger. An empty path disables the file, a nil
// console disables the mirror.
func New(path string, console *slog.Logger) *FileLogger {
	if path != "" {
		// Best effort; Log reports nothing if the directory stays missing.
		_ = os.MkdirAll(filepath.Dir(path), 0o755)
	}
	return &FileLogger{path: path, console: console, now: time.Now}
}

// Path returns the log file path
func (l *FileLogger) Path() string {
	return l.path
}

// Log writes one line. Write errors are swallowed.
func (l *FileLogger) Log(message string, level Level) {
	if l == nil {
		return
	}

	if l.console != nil {
		l.console.Log(context.Background(), level.slogLevel(), message)
	}

	if l.path == "" {
		return
	}

	line := fmt.Sprintf("[%s] [%s] %s\n", l.now().Format("2006-01-02 15:04:05"), level, strings.TrimRight(message, "\n"))

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	_, _ = f.WriteString(line)
}

type nopLogger struct{}

func (nopLogger) Log(string, Level) {}

// Nop returns a logger that discards everything
func Nop() Logger {
	return nopLogger{}
}
