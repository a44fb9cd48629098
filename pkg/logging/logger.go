// Package logging configures zerolog for the slip report tooling.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config selects how log lines are written.
type Config struct {
	Level   string    // debug, info, warn or error; anything else means info
	Pretty  bool      // console output instead of JSON
	Output  io.Writer // nil means os.Stderr
	Version string    // added to every line when set
}

// Setup installs the global logger and returns it. Library packages obtain
// child loggers with NewLogger, so Setup must run before they are
// constructed for its level and output to apply.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if cfg.Version != "" {
		ctx = ctx.Str("version", cfg.Version)
	}
	log.Logger = ctx.Logger()
	return log.Logger
}

// ParseLevel maps a configured level name to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}

// NewLogger returns a child of the global logger tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: request flow and cache behaviour
//   - Alma GETs (path, status, duration)
//   - dedup cache hits and misses
//   - page fan-out sizes
//
// Info: one line per retrieval
//   - run started / completed (run_id, total_record_count, pages)
//   - server startup/shutdown
//
// Warn: degraded but completed work
//   - lending request volume backfill failures
//   - API quota below the warning threshold
//   - response cache errors (request goes straight to Alma)
//
// Error: aborted work
//   - retrieval aborted by a page or enrichment failure
//   - API quota exhausted
//
// Context Fields:
//   - component: emitting package
//   - run_id: one requested-resources retrieval
//   - page: page number
//   - path: Alma path or link
//   - status: HTTP status code
//   - error_class: client, unauthorized, server, network, decode
