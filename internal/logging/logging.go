// Package logging configures the global zerolog logger for both binaries.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ParseLevel maps a config value to a zerolog level. Unknown values fall
// back to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development", "debug":
		return zerolog.DebugLevel
	case "trace":
		return zerolog.TraceLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "production", "prod":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Init points the global logger at a console writer on stderr.
func Init(level string) {
	InitTo(os.Stderr, level)
}

func InitTo(w io.Writer, level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"})
	zerolog.SetGlobalLevel(ParseLevel(level))
}
