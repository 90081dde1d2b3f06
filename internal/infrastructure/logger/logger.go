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

const serviceName = "dm-api"

var (
	globalLogger zerolog.Logger
	mu           sync.RWMutex
	once         sync.Once
)

// GetLogger returns the global logger instance
func GetLogger() zerolog.Logger {
	once.Do(func() {
		mu.Lock()
		globalLogger = build(consoleWriter(os.Stdout), zerolog.InfoLevel)
		mu.Unlock()
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})
	mu.RLock()
	defer mu.RUnlock()
	return globalLogger
}

// Component returns the global logger tagged with a component name.
func Component(name string) zerolog.Logger {
	log := GetLogger()
	return log.With().Str("component", name).Logger()
}

// New constructs a zerolog logger based on level and format configuration
// and installs it as the global logger.
func New(level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse log level %q: %w", level, err)
	}

	var out io.Writer
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		out = os.Stdout
	case "console", "":
		out = consoleWriter(os.Stdout)
	default:
		return zerolog.Logger{}, fmt.Errorf("unsupported log format %q", format)
	}

	// make sure a later GetLogger call does not overwrite the configured logger
	once.Do(func() {})

	zerolog.SetGlobalLevel(lvl)
	log := build(out, lvl)

	mu.Lock()
	globalLogger = log
	mu.Unlock()

	return log, nil
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
}

func build(out io.Writer, lvl zerolog.Level) zerolog.Logger {
	return zerolog.New(out).With().Timestamp().Str("service", serviceName).Logger().Level(lvl)
}
