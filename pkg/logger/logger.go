package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

var (
	log         = zerolog.New(os.Stdout).With().Timestamp().Logger()
	environment = os.Getenv("ENVIRONMENT")
)

// Init configures the process logger. Development gets a human readable
// console writer, everything else gets JSON lines.
func Init(env string) {
	environment = env

	var out io.Writer = os.Stdout
	level := zerolog.InfoLevel
	if env == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		level = zerolog.DebugLevel
	}

	log = zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// SetOutput redirects all log output, mostly useful in tests.
func SetOutput(w io.Writer) {
	log = log.Output(w)
}

func Info(format string, v ...interface{}) {
	log.Info().Msgf(format, v...)
}

func Error(format string, v ...interface{}) {
	log.Error().Str("caller", caller()).Msgf(format, v...)
}

func Debug(format string, v ...interface{}) {
	if environment == "development" {
		log.Debug().Msgf(format, v...)
	}
}

func Warn(format string, v ...interface{}) {
	log.Warn().Msgf(format, v...)
}

func caller() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", file, line)
}
