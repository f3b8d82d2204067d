package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu   sync.RWMutex
	base = newLogger(os.Stdout, "console", zerolog.InfoLevel)
)

func newLogger(out io.Writer, format string, level zerolog.Level) zerolog.Logger {
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Logger().Level(level)
}

// Init configures the package logger. format is "console" or "json".
func Init(level, format string) error {
	return InitWithWriter(os.Stdout, level, format)
}

func InitWithWriter(out io.Writer, level, format string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	format = strings.ToLower(format)
	if format != "console" && format != "json" {
		return fmt.Errorf("unsupported log format %q", format)
	}

	mu.Lock()
	base = newLogger(out, format, lvl)
	mu.Unlock()
	return nil
}

// Get returns the structured logger for callers that attach fields.
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func Info(format string, v ...interface{}) {
	l := Get()
	l.Info().Msgf(format, v...)
}

func Error(format string, v ...interface{}) {
	l := Get()
	l.Error().Msgf(format, v...)
}

func Debug(format string, v ...interface{}) {
	l := Get()
	l.Debug().Msgf(format, v...)
}

func Warn(format string, v ...interface{}) {
	l := Get()
	l.Warn().Msgf(format, v...)
}

// Fatal logs and exits the process.
func Fatal(format string, v ...interface{}) {
	l := Get()
	l.Fatal().Msgf(format, v...)
}
