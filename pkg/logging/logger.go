// Package logging configures zerolog for the thread exporter.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output instead of JSON lines.
	Pretty bool

	// NoColor disables ANSI colors in pretty mode.
	NoColor bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer

	// RunID is attached to every event as "run_id" when set.
	RunID string
}

// DefaultConfig returns the configuration used by the CLI: pretty console
// output on stderr at info level.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: true,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			NoColor:    cfg.NoColor,
			TimeFormat: time.TimeOnly,
		}
	}

	ctx := zerolog.New(output).With().Timestamp()
	if cfg.RunID != "" {
		ctx = ctx.Str("run_id", cfg.RunID)
	}
	logger := ctx.Logger()

	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level. Unknown values map to info.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(string(level))) {
	case "debug", "trace":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a child of the global logger tagged with a component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: request flow, cache hits/misses, rate-limit header updates,
// per-page pagination details, exporter stdout.
//
// Info: run start/finish, channel name resolution, each exported thread.
//
// Warn: name fallbacks to raw ids, duplicate threads, exporter stderr on
// success, exhausted rate-limit buckets, partial thread lists.
//
// Error: failed exporter runs, missing exporter binary, thread search
// failures, invalid configuration.
//
// Context Fields:
//   - component: package emitting the event
//   - run_id: identifier shared by every event of one CLI invocation
//   - channel_id / thread_id / thread_name
//   - endpoint, status, error_class
//   - offset, page, total_results
//   - exit_code, output
