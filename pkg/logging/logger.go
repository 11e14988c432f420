// Package logging builds the process-wide zerolog logger. Components
// receive child loggers through their constructors; nothing reads
// ambient global state.
package logging

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New constructs the root logger. Level is a zerolog level name
// ("debug", "info", ...); format is "console" for human-readable output
// or anything else for JSON.
func New(level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var logger zerolog.Logger
	if format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	return logger.Level(lvl).With().Timestamp().Logger(), nil
}
