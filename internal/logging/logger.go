// Package logging configures structured logging for the experiment player.
// It wraps zerolog so packages can grab a component-scoped logger without
// caring about output formatting or level configuration.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level names accepted by Setup and the --log-level flag.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

var root = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
	With().Timestamp().Logger().Level(zerolog.WarnLevel)

// Setup configures the root logger. An unknown level name falls back to warn.
// The player writes to stderr so log lines never interleave with the TUI.
func Setup(level string, out io.Writer) {
	if out == nil {
		out = os.Stderr
	}
	cw := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	root = zerolog.New(cw).With().Timestamp().Logger().Level(parseLevel(level))
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.WarnLevel
	}
}

// Component returns a child logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	return root.With().Str("component", name).Logger()
}
