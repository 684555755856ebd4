// Package logger configures the application slog logger and carries a request scoped
// logger through the request context.
//
// In dev and test environments the logs are human readable (tint), otherwise they are JSON.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// LevelNone is above every level used by the application and effectively disables logging.
const LevelNone = slog.Level(12)

// ParseLogLevel converts a LOG_LEVEL setting to a slog.Level.
// Unrecognised values default to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none", "off":
		return LevelNone
	default:
		return slog.LevelInfo
	}
}

// ValidLogLevel reports whether level is one of the supported LOG_LEVEL values.
func ValidLogLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "info", "warn", "warning", "error", "none", "off":
		return true
	}
	return false
}

// InitLogger creates the application logger and sets it as the slog default.
//
// Pass a *slog.LevelVar as level when the level needs to change at runtime.
func InitLogger(level slog.Leveler, environment string) *slog.Logger {
	l := slog.New(newHandler(os.Stderr, level, environment))
	slog.SetDefault(l)
	return l
}

func newHandler(w io.Writer, level slog.Leveler, environment string) slog.Handler {
	switch environment {
	case "dev", "test":
		return tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	default:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	}
}
