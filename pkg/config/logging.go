package config

import (
	"io"
	"log/slog"
	"strings"
)

// SlogLevel maps the configured level name, defaulting to info
func (l LoggingConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewLogger builds a JSON or text logger writing to w. debug overrides the
// configured level.
func (l LoggingConfig) NewLogger(w io.Writer, debug bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	if debug {
		opts.Level = slog.LevelDebug
	}

	if strings.EqualFold(l.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
