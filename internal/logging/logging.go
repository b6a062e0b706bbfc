package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger defines minimal logging interface used across layers.
type Logger interface {
	Debug(ctx context.Context, msg string, kv ...any)
	Debugf(ctx context.Context, format string, args ...any)
	Info(ctx context.Context, msg string, kv ...any)
	Infof(ctx context.Context, format string, args ...any)
	Warn(ctx context.Context, msg string, kv ...any)
	Warnf(ctx context.Context, format string, args ...any)
	Error(ctx context.Context, msg string, kv ...any)
	Errorf(ctx context.Context, format string, args ...any)
	With(kv ...any) Logger
}

type contextKey struct{}

var loggerKey contextKey

// WithLogger stores a logger in context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext retrieves a logger from context, returns a human logger at
// info level writing to stderr if absent.
func FromContext(ctx context.Context) Logger {
	if ctx != nil {
		if v, ok := ctx.Value(loggerKey).(Logger); ok && v != nil {
			return v
		}
	}
	l, _ := NewWithWriter("human", slog.LevelInfo, fallbackOutput)
	return l
}

// fallbackOutput receives records logged through a context without a logger.
var fallbackOutput io.Writer = os.Stderr

// ParseLevel converts debug|info|warn|error into a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unsupported log level: %s", s)
	}
	return l, nil
}

// New constructs a new Logger of given format (human|text|json) and level writing to stderr.
func New(format string, level slog.Leveler) (Logger, error) {
	return NewWithWriter(format, level, os.Stderr)
}

// NewWithWriter constructs a new Logger of given format, level, and output writer.
// The human format drops timestamps and prints the level in front of the message.
func NewWithWriter(format string, level slog.Leveler, w io.Writer) (Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "", "human":
		opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		}
		return &slogWrapper{logger: slog.New(slog.NewTextHandler(w, opts))}, nil
	case "text":
		return &slogWrapper{logger: slog.New(slog.NewTextHandler(w, opts))}, nil
	case "json":
		return &slogWrapper{logger: slog.New(slog.NewJSONHandler(w, opts))}, nil
	default:
		return nil, errors.New("unsupported log format: " + format)
	}
}

// slogWrapper adapts slog.Logger to Logger.
type slogWrapper struct{ logger *slog.Logger }

func (l *slogWrapper) Debug(ctx context.Context, msg string, kv ...any) {
	l.logger.DebugContext(ctx, msg, kv...)
}
func (l *slogWrapper) Debugf(ctx context.Context, format string, args ...any) {
	l.logger.DebugContext(ctx, fmt.Sprintf(format, args...))
}
func (l *slogWrapper) Info(ctx context.Context, msg string, kv ...any) {
	l.logger.InfoContext(ctx, msg, kv...)
}
func (l *slogWrapper) Infof(ctx context.Context, format string, args ...any) {
	l.logger.InfoContext(ctx, fmt.Sprintf(format, args...))
}
func (l *slogWrapper) Warn(ctx context.Context, msg string, kv ...any) {
	l.logger.WarnContext(ctx, msg, kv...)
}
func (l *slogWrapper) Warnf(ctx context.Context, format string, args ...any) {
	l.logger.WarnContext(ctx, fmt.Sprintf(format, args...))
}
func (l *slogWrapper) Error(ctx context.Context, msg string, kv ...any) {
	l.logger.ErrorContext(ctx, msg, kv...)
}
func (l *slogWrapper) Errorf(ctx context.Context, format string, args ...any) {
	l.logger.ErrorContext(ctx, fmt.Sprintf(format, args...))
}

func (l *slogWrapper) With(kv ...any) Logger { return &slogWrapper{logger: l.logger.With(kv...)} }
