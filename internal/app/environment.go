package app

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupEnvironment loads the given env files (".env" when none are given) and
// configures zerolog output and log level.
func SetupEnvironment(envFiles ...string) {
	// Missing files are fine, the process environment still applies
	err := godotenv.Load(envFiles...)

	production := os.Getenv("ENV") == "production"
	log.Logger = log.Output(logWriter(production, os.Stderr))
	if production {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	}

	levelStr := os.Getenv("LOGLEVEL")
	level, known := ParseLogLevel(levelStr, production)
	zerolog.SetGlobalLevel(level)
	if !known {
		log.Warn().Msgf("Unknown LOGLEVEL '%s', defaulting to info.", levelStr)
	}

	// reported only now so the message goes through the configured logger
	if err == nil {
		log.Debug().Strs("files", envFiles).Msg("Loaded environment variables from .env file.")
	} else {
		log.Debug().Msg("No .env file found or error loading .env file; proceeding with existing environment variables.")
	}
}

func logWriter(production bool, out io.Writer) io.Writer {
	if production {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
}

// ParseLogLevel maps a LOGLEVEL value to a zerolog level. An empty value picks
// warn in production and info elsewhere; unknown values fall back to info and
// report false.
func ParseLogLevel(value string, production bool) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "fatal", "critical":
		return zerolog.FatalLevel, true
	case "panic":
		return zerolog.PanicLevel, true
	case "disabled":
		return zerolog.Disabled, true
	case "":
		if production {
			return zerolog.WarnLevel, true
		}
		return zerolog.InfoLevel, true
	default:
		return zerolog.InfoLevel, false
	}
}
