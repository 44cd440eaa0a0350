// Package logging builds the zerolog loggers used by every command.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config selects the log level and output format.
type Config struct {
	Level  string `env:"FORMRPC_LOG_LEVEL" envDefault:"info"`
	Format string `env:"FORMRPC_LOG_FORMAT" envDefault:"console"`
}

// New builds a logger tagged with service and installs it as the global
// zerolog logger. Unknown levels fall back to info.
func New(service string, cfg Config) zerolog.Logger {
	return NewWithWriter(os.Stdout, service, cfg)
}

// NewWithWriter is New writing to out.
func NewWithWriter(out io.Writer, service string, cfg Config) zerolog.Logger {
	if strings.EqualFold(cfg.Format, FormatConsole) {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(out).Level(level).With().Timestamp().Str("app", service).Logger()
	log.Logger = logger
	return logger
}

// Nop returns a disabled logger.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
