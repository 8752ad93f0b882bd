package utils

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(slog.New(slog.NewTextHandler(os.Stdout, nil)))
}

// InitLogger replaces the process logger. format is "text" or "json"; level
// is one of debug, info, warn, error. A nil writer logs to stdout.
func InitLogger(level, format string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	l := slog.New(handler)
	logger.Store(l)
	slog.SetDefault(l)
	return l
}

func Logger() *slog.Logger {
	return logger.Load()
}

// NopLogger discards everything.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func LogInfo(message string, args ...any) {
	Logger().Info(message, args...)
}

func LogWarning(message string, args ...any) {
	Logger().Warn(message, args...)
}

func LogError(message string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err)
	}
	Logger().Error(message, args...)
}

// LogFatal logs at error level and exits the process.
func LogFatal(message string, err error, args ...any) {
	LogError(message, err, args...)
	os.Exit(1)
}
