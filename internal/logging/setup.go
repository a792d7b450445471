package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs the process-wide slog logger. format is "json" for
// structured output or "pretty" for the colorized console handler.
func Setup(format, level string) {
	var handler slog.Handler
	switch format {
	case "pretty":
		handler = NewPrettyHandler(os.Stderr)
	default:
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(level)})
	}
	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
