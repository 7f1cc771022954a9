package logger

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler writes each record to every child handler that accepts its
// level. relay serve uses it for console output plus a JSON --log-file.
type teeHandler []slog.Handler

// Multi returns a logger that tees records into the handlers of loggers.
// Nil loggers are skipped. Every child keeps its own level.
func Multi(loggers ...*slog.Logger) *slog.Logger {
	var tee teeHandler
	for _, l := range loggers {
		if l != nil {
			tee = append(tee, l.Handler())
		}
	}
	return slog.New(tee)
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes a clone of r to each enabled child. A failing child does
// not stop the others; their errors are joined.
func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t teeHandler) each(fn func(slog.Handler) slog.Handler) teeHandler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = fn(h)
	}
	return out
}
