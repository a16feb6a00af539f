// Package logger builds the zerolog logger shared by the CLI, web server and services.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a logger writing to w. Format "console" produces human readable lines,
// anything else JSON. Unknown levels fall back to info.
func New(w io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	out := w
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// Setup builds a stderr logger and installs it as the package-level default.
func Setup(level, format string) zerolog.Logger {
	l := New(os.Stderr, level, format)
	log.Logger = l
	zerolog.DefaultContextLogger = &l
	return l
}
