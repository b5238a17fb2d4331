// Package logger wraps log/slog behind the small interface this module's
// components actually call: structured Info/Warn/Debug, an Err/Er pair for
// the two error-reporting shapes call sites use (return the error, or just
// log it), and Function/With for attaching call-site context. Trimmed from
// the teacher's pkg/logger, which carries a trace-ID propagation system and
// a memory/goroutine profiling timer that nothing in this module's log call
// sites exercises.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger defines the logging interface every component depends on.
type Logger interface {
	Error(msg string, args ...any) error
	Err(msg string, err error, args ...any) error
	Er(msg string, err error, args ...any)
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
	With(args ...any) Logger
	Function(name string) Logger
}

// SlogLogger implements Logger using slog.
type SlogLogger struct {
	logger *slog.Logger
}

// New creates a logger named name. Output is JSON to stderr, or text to
// os.Stderr when LOG_FORMAT=text; under `go test` it discards output so
// test runs stay quiet.
func New(name string) Logger {
	var handler slog.Handler

	if isTestMode() {
		handler = slog.NewTextHandler(io.Discard, nil)
	} else if os.Getenv("LOG_FORMAT") == "text" {
		handler = slog.NewTextHandler(os.Stderr, nil)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	return &SlogLogger{logger: slog.New(handler).With("package", name)}
}

func isTestMode() bool {
	for _, arg := range os.Args {
		if strings.HasPrefix(arg, "-test.") {
			return true
		}
	}
	return false
}

func (l *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{logger: l.logger.With(args...)}
}

func (l *SlogLogger) Function(name string) Logger {
	return l.With("function", name)
}

// Error logs msg at error level and returns it as an error, for call sites
// that want to both log and propagate in one line.
func (l *SlogLogger) Error(msg string, args ...any) error {
	l.logger.Error(msg, args...)
	return fmt.Errorf("%s", msg)
}

// Err logs msg with err attached and returns err unchanged, so callers can
// write `return log.Err("...", err)`.
func (l *SlogLogger) Err(msg string, err error, args ...any) error {
	logArgs := append([]any{"error", err}, args...)
	l.logger.Error(msg, logArgs...)
	return err
}

// Er logs msg with err attached without returning it, for call sites that
// only need to record the failure (e.g. inside a deferred cleanup).
func (l *SlogLogger) Er(msg string, err error, args ...any) {
	logArgs := append([]any{"error", err}, args...)
	l.logger.Error(msg, logArgs...)
}

func (l *SlogLogger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

func (l *SlogLogger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

func (l *SlogLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}
