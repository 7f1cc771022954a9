package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Output formats accepted by WithFormat and ParseFormat.
const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatPretty = "pretty"
)

// Option configures a Logger created with New.
type Option func(*config)

// WithDebug lowers the level to Debug when true and resets it to Info otherwise.
func WithDebug(debug bool) Option {
	return func(c *config) {
		c.level = slog.LevelInfo
		if debug {
			c.level = slog.LevelDebug
		}
	}
}

// WithPretty selects the colourised charmbracelet/log handler.
func WithPretty(pretty bool) Option {
	return func(c *config) {
		c.pretty = pretty
	}
}

// WithJSON selects slog's JSON handler, for relay servers feeding a log pipeline.
func WithJSON(json bool) Option {
	return func(c *config) {
		c.json = json
	}
}

// WithFormat selects the handler by name. Unknown names leave the text handler.
func WithFormat(format string) Option {
	return func(c *config) {
		c.pretty = format == FormatPretty
		c.json = format == FormatJSON
	}
}

// ParseFormat validates a --log-format value.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case FormatText, FormatJSON, FormatPretty:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown log format %q (use text, json or pretty)", s)
	}
}

// WithWriter replaces the output writer. Defaults to os.Stderr.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.writers = []io.Writer{w}
	}
}

// WithWriters fans output to every w.
func WithWriters(w ...io.Writer) Option {
	return func(c *config) {
		c.writers = w
	}
}

// WithSource adds the caller's file:line to each record.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}
