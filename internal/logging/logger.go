// Package logging provides structured logging with file output support.
// It uses environment variables for configuration and supports file cleanup.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// LoggerCloser wraps a logger and provides a Close method for cleanup
type LoggerCloser struct {
	*log.Logger
	closer io.Closer
}

// Close closes the underlying writer if it's closeable
func (lc *LoggerCloser) Close() error {
	if lc.closer != nil {
		return lc.closer.Close()
	}
	return nil
}

// Level maps TRACEDIS_LOG_LEVEL onto a log level. Unknown values mean info.
func Level() log.Level {
	lvl, err := log.ParseLevel(os.Getenv("TRACEDIS_LOG_LEVEL"))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// NewLoggerWithWriter creates a new logger with the provided writer
func NewLoggerWithWriter(w io.Writer) *LoggerCloser {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Level:           Level(),
	})

	prefix := os.Getenv("TRACEDIS_LOG_PREFIX")
	if prefix == "" {
		prefix = "tracedis "
	}

	var closer io.Closer
	if c, ok := w.(io.Closer); ok && w != os.Stderr {
		closer = c
	}

	return &LoggerCloser{
		Logger: lg.WithPrefix(prefix),
		closer: closer,
	}
}

// NewLogger creates a new logger based on environment variables
// TRACEDIS_LOG_LEVEL: debug, info, warn, error (default: info)
// TRACEDIS_LOG_PREFIX: prefix for log messages (default: "tracedis ")
// TRACEDIS_LOG_TO_FILE: when set to "1", logs to a timestamped file instead of stderr
func NewLogger() *LoggerCloser {
	output := io.Writer(os.Stderr)

	if os.Getenv("TRACEDIS_LOG_TO_FILE") == "1" {
		timestamp := time.Now().Format("20060102-150405")
		logFile := fmt.Sprintf("tracedis-%s-debug.log", timestamp)

		f, err := os.OpenFile(logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err == nil {
			output = f
		}
		// If file creation fails, fall back to stderr
	}

	return NewLoggerWithWriter(output)
}

var std atomic.Pointer[log.Logger]

// Default returns the process logger. Until SetDefault is called it
// discards everything, so library packages can log unconditionally.
func Default() *log.Logger {
	if lg := std.Load(); lg != nil {
		return lg
	}
	return discard
}

var discard = log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})

// SetDefault installs lg as the process logger.
func SetDefault(lg *log.Logger) { std.Store(lg) }

// IsDebug returns true if debug logging is enabled
func IsDebug() bool {
	return Level() <= log.DebugLevel
}
