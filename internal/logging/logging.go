package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level        slog.Level
	ErrorLogPath string
	MaxSizeMB    int
	MaxBackups   int
}

// Init installs the default slog logger: human readable records on stderr at
// cfg.Level, and error records appended as JSON to a rotating file at
// cfg.ErrorLogPath. Output of the stdlib log package is routed through the
// same handler at info level. The returned closer closes the error log file.
func Init(cfg Config) io.Closer {
	sink := &lumberjack.Logger{
		Filename:   cfg.ErrorLogPath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}

	slog.SetDefault(slog.New(NewHandler(os.Stderr, sink, cfg.Level)))

	return sink
}

// NewHandler returns a handler writing text records at level or above to
// console and JSON records at error level to errorLog.
func NewHandler(console, errorLog io.Writer, level slog.Level) slog.Handler {
	return fanout{
		slog.NewTextHandler(console, &slog.HandlerOptions{Level: level}),
		slog.NewJSONHandler(errorLog, &slog.HandlerOptions{Level: slog.LevelError, AddSource: true}),
	}
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to slog.Level.
// Unknown strings default to LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
