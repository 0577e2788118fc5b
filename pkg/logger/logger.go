package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

var Log *slog.Logger

func init() {
	// Safe default so packages can log before Init runs (tests, tools).
	Log = slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// Init initializes the global slog logger. `level` and `format` normally
// come from config; empty values fall back to the CIPHERRELAY_LOG_LEVEL and
// CIPHERRELAY_LOG_FORMAT env vars, then to "info"/"text". The sink can be
// redirected to a file with CIPHERRELAY_LOG_SINK=file:/path/to/log.
func Init(level, format string) {
	lvl := strings.ToLower(strings.TrimSpace(level))
	if lvl == "" {
		lvl = strings.ToLower(strings.TrimSpace(os.Getenv("CIPHERRELAY_LOG_LEVEL")))
	}
	var lv slog.Level
	switch lvl {
	case "debug":
		lv = slog.LevelDebug
	case "warn", "warning":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}

	var w io.Writer = os.Stdout
	sink := os.Getenv("CIPHERRELAY_LOG_SINK")
	if strings.HasPrefix(sink, "file:") {
		path := strings.TrimPrefix(sink, "file:")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file %s: %v\n", path, err)
		} else {
			w = f
		}
	}

	f := strings.ToLower(strings.TrimSpace(format))
	if f == "" {
		f = strings.ToLower(strings.TrimSpace(os.Getenv("CIPHERRELAY_LOG_FORMAT")))
	}
	opts := &slog.HandlerOptions{Level: lv}
	if f == "json" {
		Log = slog.New(slog.NewJSONHandler(w, opts))
		return
	}
	Log = slog.New(slog.NewTextHandler(w, opts))
}

// Debug logs with slog-style key/value pairs.
func Debug(msg string, args ...any) { Log.Debug(msg, args...) }

// Info logs with slog-style key/value pairs.
func Info(msg string, args ...any) { Log.Info(msg, args...) }

// Warn logs with slog-style key/value pairs.
func Warn(msg string, args ...any) { Log.Warn(msg, args...) }

// Error logs with slog-style key/value pairs.
func Error(msg string, args ...any) { Log.Error(msg, args...) }
