package app

import (
	"io"
	"log/slog"
)

// newLogger builds the app's own logger. It never touches slog.Default, so
// several apps (tests, watch re-runs) can log to different writers.
// Levels are the validated Config values; anything else falls back to info.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
