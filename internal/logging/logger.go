// Package logging builds the zerolog logger shared by the planner binaries.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls logger construction.
type Options struct {
	Level   string
	Format  string // "json" or "console"
	Service string
	Output  io.Writer
}

// New builds a logger from opts and installs it as the global zerolog logger.
func New(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(opts.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	logger := ctx.Logger()

	log.Logger = logger
	return logger
}

// Get returns the global logger.
func Get() *zerolog.Logger {
	return &log.Logger
}
