// Package dlog provides the engine's shared structured-logging setup,
// generalizing cuemby-warren's pkg/log global-logger idiom to a
// per-actor scoped logger instead of a single global.
package dlog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level is the minimum severity a logger emits.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls the root logger built by New.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// New builds the engine's root logger. The Dispatcher and
// memstorage.Service derive their own scoped loggers from it via Actor;
// collection executors use memstorage's.
func New(cfg Config) zerolog.Logger {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
}

// Actor returns a child logger tagged with the actor's name, the
// scoping convention SPEC_FULL §2.2 asks every actor to use.
func Actor(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("actor", name).Logger()
}
