package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs a JSON slog handler on stdout as the default logger.
// Unknown levels fall back to info.
func Setup(level string) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, opts)))
}

// ParseLevel maps debug, info, warn and error (any case) to a slog level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
