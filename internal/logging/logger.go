// Package logging provides simple leveled logging for the stream core
// and its device providers.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// Logger wraps stdlib log with level support and a small chain of
// key-value context (WithDevice, WithQueue, WithRequest, WithError) that
// every message logged through the derived logger carries automatically.
type Logger struct {
	logger *log.Logger
	level  LogLevel
	format string
	fields []field
}

type field struct {
	key string
	val any
}

// LogLevel represents the available log levels
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config holds logging configuration
type Config struct {
	Level LogLevel
	// Format selects the line format: "text" (default) or "json".
	Format string
	Output io.Writer
	// Sync and NoColor are accepted for parity with richer loggers
	// elsewhere in the ecosystem; every write here already goes
	// straight through log.Logger's own synchronized Output, and text
	// lines are never colored, so both are no-ops.
	Sync    bool
	NoColor bool
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Level:  LevelInfo,
		Format: "text",
		Output: os.Stderr,
	}
}

// NewLogger creates a new logger
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}
	format := config.Format
	if format == "" {
		format = "text"
	}
	return &Logger{
		logger: log.New(output, "", log.LstdFlags),
		level:  config.Level,
		format: format,
	}
}

var (
	defaultLogger *Logger
	defaultMu     sync.RWMutex
)

// Default returns the default logger, creating it if necessary
func Default() *Logger {
	defaultMu.RLock()
	if defaultLogger != nil {
		defer defaultMu.RUnlock()
		return defaultLogger
	}
	defaultMu.RUnlock()

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault sets the default logger
func SetDefault(logger *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// clone returns a derived logger carrying one additional context field.
func (l *Logger) clone(f field) *Logger {
	fields := make([]field, len(l.fields), len(l.fields)+1)
	copy(fields, l.fields)
	fields = append(fields, f)
	return &Logger{logger: l.logger, level: l.level, format: l.format, fields: fields}
}

// WithDevice returns a logger that tags every message with device_id.
func (l *Logger) WithDevice(id int) *Logger { return l.clone(field{"device_id", id}) }

// WithQueue returns a logger that tags every message with queue_id.
func (l *Logger) WithQueue(id int) *Logger { return l.clone(field{"queue_id", id}) }

// WithRequest returns a logger that tags every message with tag and op.
func (l *Logger) WithRequest(tag int, op string) *Logger {
	fields := make([]field, len(l.fields), len(l.fields)+2)
	copy(fields, l.fields)
	fields = append(fields, field{"tag", tag}, field{"op", op})
	return &Logger{logger: l.logger, level: l.level, format: l.format, fields: fields}
}

// WithError returns a logger that tags every message with error.
func (l *Logger) WithError(err error) *Logger { return l.clone(field{"error", err}) }

// formatArgs converts key-value pairs to a string
func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}
	var result string
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			if result != "" {
				result += " "
			}
			result += fmt.Sprintf("%v=%v", args[i], args[i+1])
		}
	}
	if result != "" {
		return " " + result
	}
	return ""
}

func (l *Logger) contextArgs(extra []any) []any {
	if len(l.fields) == 0 {
		return extra
	}
	args := make([]any, 0, len(l.fields)*2+len(extra))
	for _, f := range l.fields {
		args = append(args, f.key, f.val)
	}
	return append(args, extra...)
}

func (l *Logger) log(level LogLevel, prefix, msg string, args ...any) {
	if level < l.level {
		return
	}
	args = l.contextArgs(args)

	if l.format == "json" {
		l.logger.Print(l.jsonLine(prefix, msg, args))
		return
	}
	l.logger.Printf("%s %s%s", prefix, msg, formatArgs(args))
}

func (l *Logger) jsonLine(prefix, msg string, args []any) string {
	entry := map[string]any{
		"level": prefix,
		"msg":   msg,
		"time":  time.Now().Format(time.RFC3339Nano),
	}
	for i := 0; i+1 < len(args); i += 2 {
		if key, ok := args[i].(string); ok {
			entry[key] = args[i+1]
		}
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Sprintf(`{"level":%q,"msg":%q}`, prefix, msg)
	}
	return string(b)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.log(LevelDebug, "[DEBUG]", msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.log(LevelInfo, "[INFO]", msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.log(LevelWarn, "[WARN]", msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.log(LevelError, "[ERROR]", msg, args...)
}

// Printf-style logging
func (l *Logger) Debugf(format string, args ...any) {
	l.log(LevelDebug, "[DEBUG]", fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...any) {
	l.log(LevelInfo, "[INFO]", fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...any) {
	l.log(LevelWarn, "[WARN]", fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.log(LevelError, "[ERROR]", fmt.Sprintf(format, args...))
}

// Printf for compatibility with asyncstream.Logger.
func (l *Logger) Printf(format string, args ...any) {
	l.Infof(format, args...)
}

// Global convenience functions
func Debug(msg string, args ...any) {
	Default().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	Default().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	Default().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	Default().Error(msg, args...)
}
