package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LevelEnv names the environment variable holding the log level.
const LevelEnv = "COMIX_LOG_LEVEL"

// Init initializes the global logger on stderr.
// COMIX_LOG_LEVEL controls the log level: debug, info, warn, error (default: info)
func Init() {
	InitWithWriter(os.Stderr, os.Getenv(LevelEnv))
}

// InitWithWriter sets the global level and points the console writer at w.
// Protocol servers that own stdout pass stderr explicitly.
func InitWithWriter(w io.Writer, level string) {
	zerolog.SetGlobalLevel(ParseLevel(level))
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w})
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
