package telemetry

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = newLogger(os.Stdout)
)

func newLogger(w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "ts"
	zerolog.MessageFieldName = "msg"
	return zerolog.New(w).With().Timestamp().Logger()
}

// SetOutput redirects log lines to w and returns a func restoring the previous logger.
func SetOutput(w io.Writer) func() {
	mu.Lock()
	prev := logger
	logger = newLogger(w)
	mu.Unlock()
	return func() {
		mu.Lock()
		logger = prev
		mu.Unlock()
	}
}

// SetLevel sets the minimum level written ("debug", "info", "warn", "error").
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	mu.Lock()
	logger = logger.Level(lvl)
	mu.Unlock()
}

// Debug writes a debug-level log line with the given fields.
func Debug(msg string, fields map[string]any) {
	write(zerolog.DebugLevel, msg, fields)
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	write(zerolog.InfoLevel, msg, fields)
}

// Warn writes a warn-level log line with the given fields.
func Warn(msg string, fields map[string]any) {
	write(zerolog.WarnLevel, msg, fields)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) {
	write(zerolog.ErrorLevel, msg, fields)
}

func write(level zerolog.Level, msg string, fields map[string]any) {
	mu.RLock()
	l := logger
	mu.RUnlock()
	l.WithLevel(level).Fields(fields).Msg(msg)
}
