// Package logging configures colored structured logging with tint.
//
// Usage:
//
//	logging.Setup()          // level from LOG_LEVEL env
//	logging.SetLevel("debug") // takes effect on existing loggers
//
// Levels: debug, info, warn, error (default: info)
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// level backs the default logger. Loggers derived from slog.Default, before
// or after a change, all read it on every record.
var level slog.LevelVar

// Setup installs a colored default logger at the level specified by the
// LOG_LEVEL env var (default: INFO).
func Setup() {
	level.Set(ParseLevel(os.Getenv("LOG_LEVEL")))
	slog.SetDefault(New(os.Stderr, &level))
}

// SetLevel changes the level of the default logger to a named level, as
// found in the config file.
func SetLevel(name string) {
	level.Set(ParseLevel(name))
}

// New returns a tint logger writing to w.
func New(w io.Writer, leveler slog.Leveler) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      leveler,
		TimeFormat: time.Kitchen,
		AddSource:  true,
		NoColor:    w != os.Stderr,
	}))
}

// ParseLevel maps a level name to a slog level. Unknown names are INFO.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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
