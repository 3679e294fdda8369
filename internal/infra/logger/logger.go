package logger

import (
	"io"
	"log/slog"
)

// New returns a JSON logger; env "dev" enables debug records.
func New(w io.Writer, env string) *slog.Logger {
	level := slog.LevelInfo
	if env == "dev" {
		level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("app", "stok", "env", env)
}
