// Package logging provides structured logging for factengine.
//
// It wraps Go's log/slog package to provide consistent, structured
// logging across every component: the store, the remember/recall/forget
// engine, the capability adapters, and the MCP server.
//
// Usage:
//
//	logging.Init(logging.Config{Level: "info", Format: "json", Output: "stderr"})
//	log := logging.GetLogger("mcp")
//	log.Info("request received", "method", "tools/call", "tool", "store_memory")
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string
	// Format is the output format: console, json.
	Format string
	// Output is the output destination: stderr, stdout, or a file path.
	Output string
}

var (
	defaultLogger *slog.Logger
	loggerMu      sync.RWMutex
)

func init() {
	defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// Init initializes the global logger with the given configuration. This
// should be called once at process startup.
func Init(cfg Config) {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		output = os.Stdout
	case "", "stderr":
		output = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			output = os.Stderr
		} else {
			output = f
		}
	}

	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	defaultLogger = slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// GetLogger returns a logger for the specified component.
func GetLogger(component string) *Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return &Logger{
		slog:      defaultLogger.With("component", component),
		component: component,
	}
}

// Logger wraps slog.Logger with convenience methods.
type Logger struct {
	slog      *slog.Logger
	component string
}

// With returns a new Logger with the given attributes added.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...), component: l.component}
}

func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.slog.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slog.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// LogRequest logs an incoming request.
func (l *Logger) LogRequest(method string, args ...any) {
	l.slog.Info("request", append([]any{"method", method}, args...)...)
}

// LogResponse logs an outgoing response.
func (l *Logger) LogResponse(method string, duration float64, args ...any) {
	l.slog.Info("response", append([]any{"method", method, "duration_ms", duration}, args...)...)
}

// LogError logs an error with context.
func (l *Logger) LogError(operation string, err error, args ...any) {
	l.slog.Error("operation_failed", append([]any{"operation", operation, "error", err.Error()}, args...)...)
}

// LogOperation logs a successful operation.
func (l *Logger) LogOperation(operation string, args ...any) {
	l.slog.Info("operation_success", append([]any{"operation", operation}, args...)...)
}
