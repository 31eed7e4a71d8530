// Package log is the process-wide structured logger for go-visionguide,
// a thin layer over slog. Output is text during development and JSON when
// GO_ENV=production.
package log

import (
	"log/slog"
	"os"
	"sync"
)

var (
	mu     sync.Mutex
	level  = new(slog.LevelVar)
	logger *slog.Logger
)

// Init sets the global log level, building the logger on first use. Later
// calls adjust the level only, so a debug flag parsed after an early log
// line still takes effect.
func Init(lvl string) {
	mu.Lock()
	defer mu.Unlock()
	level.Set(parseLevel(lvl))
	if logger == nil {
		logger = newLogger()
		slog.SetDefault(logger)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if os.Getenv("GO_ENV") == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// L returns the global logger, initializing it at info level if needed.
func L() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		level.Set(slog.LevelInfo)
		logger = newLogger()
		slog.SetDefault(logger)
	}
	return logger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}
