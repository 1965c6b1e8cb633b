package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents the severity level of log messages
type Level int

const (
	TraceLevel Level = iota
	DebugLevel
	InfoLevel
	SuccessLevel
	WarnLevel
	ErrorLevel
)

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case TraceLevel:
		return "TRACE"
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case SuccessLevel:
		return "OK"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Severity is the front-end facing name of a level (info, success, warning, error).
func (l Level) Severity() string {
	switch l {
	case SuccessLevel:
		return "success"
	case WarnLevel:
		return "warning"
	case ErrorLevel:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel maps a --log-level value to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return TraceLevel
	case "debug":
		return DebugLevel
	case "success", "ok":
		return SuccessLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Sink receives every pipeline message together with its severity.
// Front-ends install one to mirror the log stream into their own view.
type Sink interface {
	Emit(message string, level Level)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(message string, level Level)

// Emit calls f(message, level).
func (f SinkFunc) Emit(message string, level Level) { f(message, level) }

// Config holds the logger configuration
type Config struct {
	Level     Level
	UseColor  bool
	JSON      bool
	Component string
}

// Logger represents the logger instance
type Logger struct {
	config Config
	logger *log.Logger
}

// Default logger instance
var (
	defaultLogger *Logger
	defaultMu     sync.RWMutex
)

// Initialize sets up the default logger
func Initialize(config Config) error {
	l := New(config, os.Stderr)
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
	return nil
}

// New builds a standalone logger writing to w.
func New(config Config, w io.Writer) *Logger {
	return &Logger{
		config: config,
		logger: log.New(w, "", 0),
	}
}

// Default returns the process-wide logger, or nil before Initialize.
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// Emit makes *Logger usable as a Sink.
func (l *Logger) Emit(message string, level Level) {
	l.Log(level, message)
}

// Log writes a log message
func (l *Logger) Log(level Level, message string, fields ...Field) {
	if level < l.config.Level {
		return
	}

	entry := LogEntry{
		Time:      time.Now(),
		Level:     level.String(),
		Message:   message,
		Component: l.config.Component,
		Fields:    make(map[string]interface{}),
	}

	// Add caller info for debug and trace
	if level <= DebugLevel {
		_, file, line, ok := runtime.Caller(2)
		if ok {
			entry.File = file
			entry.Line = line
		}
	}

	for _, field := range fields {
		entry.Fields[field.Key] = field.Value
	}

	var output string
	if l.config.JSON {
		jsonBytes, _ := json.Marshal(entry)
		output = string(jsonBytes)
	} else {
		output = l.formatPretty(entry)
	}

	l.logger.Print(output)
}

// formatPretty formats the log entry in a human-readable way
func (l *Logger) formatPretty(entry LogEntry) string {
	var builder strings.Builder

	builder.WriteString(entry.Time.Format("2006-01-02 15:04:05"))

	level := entry.Level
	if l.config.UseColor {
		switch entry.Level {
		case "TRACE":
			level = "\033[37mTRACE\033[0m" // White
		case "DEBUG":
			level = "\033[36mDEBUG\033[0m" // Cyan
		case "INFO":
			level = "\033[34mINFO\033[0m" // Blue
		case "OK":
			level = "\033[32mOK\033[0m" // Green
		case "WARN":
			level = "\033[33mWARN\033[0m" // Yellow
		case "ERROR":
			level = "\033[31mERROR\033[0m" // Red
		}
	}

	builder.WriteString(fmt.Sprintf(" [%s]", level))

	if entry.Component != "" {
		builder.WriteString(fmt.Sprintf(" %s:", entry.Component))
	}

	builder.WriteString(fmt.Sprintf(" %s", entry.Message))

	// Fields are printed in key order so log lines are stable across runs
	if len(entry.Fields) > 0 {
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		builder.WriteString(" {")
		for i, k := range keys {
			if i > 0 {
				builder.WriteString(", ")
			}
			builder.WriteString(fmt.Sprintf("%s=%v", k, entry.Fields[k]))
		}
		builder.WriteString("}")
	}

	if entry.File != "" {
		builder.WriteString(fmt.Sprintf(" (%s:%d)", entry.File, entry.Line))
	}

	return builder.String()
}

// Field represents a structured field in a log entry
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an int field
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a bool field
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Err creates an error field
func Err(err error) Field {
	return Field{Key: "error", Value: err.Error()}
}

// LogEntry represents a log entry
type LogEntry struct {
	Time      time.Time              `json:"time"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Component string                 `json:"component,omitempty"`
	File      string                 `json:"file,omitempty"`
	Line      int                    `json:"line,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func logDefault(level Level, message string, fields ...Field) {
	if l := Default(); l != nil {
		l.Log(level, message, fields...)
	}
}

// Convenience functions for default logger
func Trace(message string, fields ...Field) { logDefault(TraceLevel, message, fields...) }

func Debug(message string, fields ...Field) { logDefault(DebugLevel, message, fields...) }

func Info(message string, fields ...Field) {
	if Default() == nil {
		// Fallback to stderr if logger not initialized
		_, _ = os.Stderr.WriteString(fmt.Sprintf("[INFO] resload: %s\n", message))
		return
	}
	logDefault(InfoLevel, message, fields...)
}

func Success(message string, fields ...Field) { logDefault(SuccessLevel, message, fields...) }

func Warn(message string, fields ...Field) { logDefault(WarnLevel, message, fields...) }

func Error(message string, fields ...Field) { logDefault(ErrorLevel, message, fields...) }

// SetOutput sets the output writer for the logger
func SetOutput(w io.Writer) {
	if l := Default(); l != nil {
		l.logger.SetOutput(w)
	}
}

// Discard is a Sink that drops everything; handy for tests and library callers.
var Discard Sink = SinkFunc(func(string, Level) {})

// Recorder is a Sink that keeps every emitted line in memory.
type Recorder struct {
	mu      sync.Mutex
	Entries []Recorded
}

// Recorded is one line captured by a Recorder.
type Recorded struct {
	Message string
	Level   Level
}

// Emit appends the message.
func (r *Recorder) Emit(message string, level Level) {
	r.mu.Lock()
	r.Entries = append(r.Entries, Recorded{Message: message, Level: level})
	r.mu.Unlock()
}

// Messages returns the recorded messages at or above min.
func (r *Recorder) Messages(min Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.Entries {
		if e.Level >= min {
			out = append(out, e.Message)
		}
	}
	return out
}
