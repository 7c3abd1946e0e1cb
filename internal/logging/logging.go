// Package logging builds the process-wide zerolog.Logger used by every
// component. There is no package-level global — New is called once in
// main and the resulting logger is threaded explicitly into every
// constructor, the same way the teacher threads its *slog.Logger.
package logging

import (
	"os"

	"github.com/rs/zerolog"

	"polymarket-ingestor/internal/config"
)

// New builds a base logger from the logging config. Format "json" writes
// structured JSON (production); anything else writes a human-readable
// console stream (development).
func New(cfg config.LoggingConfig) zerolog.Logger {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	var out zerolog.ConsoleWriter
	if cfg.Format == "json" {
		return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	}
	out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
