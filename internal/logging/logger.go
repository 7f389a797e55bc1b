package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a structured logger with sane defaults for console logs.
// Development builds log at debug level with color; production drops both.
func New(appName, env string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339Nano,
		NoColor:    env == "production",
	}
	level := zerolog.DebugLevel
	if env == "production" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(output).With().
		Timestamp().
		Str("app", appName).
		Str("env", env).
		Logger().
		Level(level)
}
