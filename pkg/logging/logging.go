// Package logging builds the devbox logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// New returns a logger writing to stderr. verbose forces debug level;
// otherwise level is parsed ("debug", "info", "warn", "error") and falls
// back to info.
func New(verbose bool, level string) *log.Logger {
	return NewWithWriter(os.Stderr, verbose, level)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, verbose bool, level string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Prefix:          "devbox",
		ReportTimestamp: verbose,
		Level:           ParseLevel(level),
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// ParseLevel parses a level name, defaulting to info.
func ParseLevel(level string) log.Level {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
