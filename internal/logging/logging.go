// Package logging centralizes zerolog setup for the onset detector,
// in place of bare log.Printf calls, with structured, leveled logging —
// the style used throughout the wider corpus
// (bl8ckfz/crypto-screener-backend, sawpanic/cryptorun).
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a logger writing human-readable output to w (pretty console
// writer, matching the corpus's development-mode default) tagged with the
// given component name.
func New(w io.Writer, component string) zerolog.Logger {
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(console).With().
		Timestamp().
		Str("component", component).
		Logger()
}

// NewJSON builds a logger writing structured JSON lines to w, suitable
// for production/daemon use where logs are shipped to a collector.
func NewJSON(w io.Writer, component string) zerolog.Logger {
	return zerolog.New(w).With().
		Timestamp().
		Str("component", component).
		Logger()
}

// Default is a console logger writing to stderr, used where a package
// needs a logger but the caller hasn't injected one explicitly.
func Default(component string) zerolog.Logger {
	return New(os.Stderr, component)
}
