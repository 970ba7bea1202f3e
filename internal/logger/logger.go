// ABOUTME: Process-wide structured logger backed by charmbracelet/log.
// ABOUTME: Writes to a rotating file via lumberjack, and to stderr as well in debug mode.
package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the global logger instance. It stays nil until Init, and the helpers
// below are no-ops until then.
var Logger *log.Logger

// Config holds logger configuration.
type Config struct {
	Debug bool
	// Dir receives streakhub.log. Empty means stderr only.
	Dir string
}

// Init initializes the global logger.
func Init(cfg Config) error {
	level := log.WarnLevel
	if cfg.Debug {
		level = log.DebugLevel
	}

	var writer io.Writer = os.Stderr
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
			return err
		}
		fileWriter := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, "streakhub.log"),
			MaxSize:    5, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		writer = fileWriter
		if cfg.Debug {
			writer = io.MultiWriter(os.Stderr, fileWriter)
		}
	}

	Logger = New(writer, level)
	Logger.SetReportCaller(cfg.Debug)
	return nil
}

// New builds a logger with the streakhub prefix, for callers that want their own sink.
func New(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "streakhub",
	})
}

// Debug logs a debug message.
func Debug(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Debug(msg, keyvals...)
	}
}

// Info logs an info message.
func Info(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Info(msg, keyvals...)
	}
}

// Warn logs a warning.
func Warn(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Warn(msg, keyvals...)
	}
}

// Error logs an error.
func Error(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Error(msg, keyvals...)
	}
}

type contextKey struct{}

// ToContext stores a request-scoped logger in ctx.
func ToContext(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the logger stored in ctx, falling back to the global
// logger and then to a discarding one. It never returns nil.
func FromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(contextKey{}).(*log.Logger); ok && l != nil {
		return l
	}
	if Logger != nil {
		return Logger
	}
	return New(io.Discard, log.FatalLevel)
}
