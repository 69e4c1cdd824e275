package prefs

import (
	"fmt"
	"log/slog"
)

// Logger receives diagnostic traces of binding activity (writes, removals,
// reset progress). Implementations should be safe for concurrent use.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// nopLogger discards everything. It is the default so that tracing stays a
// zero-cost no-op unless a caller opts in.
type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

var defaultLogger Logger = nopLogger{}

// NopLogger returns the logger that discards all traces.
func NopLogger() Logger {
	return defaultLogger
}

// SlogLogger adapts a *slog.Logger to the Logger interface. A nil argument
// yields the no-op logger.
func SlogLogger(l *slog.Logger) Logger {
	if l == nil {
		return defaultLogger
	}
	return slogLogger{l: l}
}

type slogLogger struct {
	l *slog.Logger
}

func (s slogLogger) Debugf(format string, args ...any) { s.l.Debug(fmt.Sprintf(format, args...)) }
func (s slogLogger) Infof(format string, args ...any)  { s.l.Info(fmt.Sprintf(format, args...)) }
func (s slogLogger) Warnf(format string, args ...any)  { s.l.Warn(fmt.Sprintf(format, args...)) }
func (s slogLogger) Errorf(format string, args ...any) { s.l.Error(fmt.Sprintf(format, args...)) }
