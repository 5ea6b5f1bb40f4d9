// Package logging is a small structured logger with JSON and text output.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Level represents a log level
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the string representation of a log level
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string to a Level, defaulting to info
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Field is a key-value pair attached to a log line
type Field struct {
	Key   string
	Value any
}

// Logger is the interface for structured logging
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// With creates a child logger with the given fields pre-set
	With(fields ...Field) Logger
	SetLevel(level Level)
	GetLevel() Level
}

// Format selects how lines are written
type Format string

const (
	JSONFormat Format = "json"
	TextFormat Format = "text"
)

// New creates a logger writing to w in the given format
func New(w io.Writer, level Level, format Format) Logger {
	if format == TextFormat {
		return NewTextLogger(w, level)
	}
	return NewJSONLogger(w, level)
}

// core is shared between a logger and the children made by With
type core struct {
	mu     sync.Mutex
	writer io.Writer
	level  Level
}

// entry is one JSON log line
type entry struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// JSONLogger writes one JSON object per line
type JSONLogger struct {
	core   *core
	fields []Field
}

// NewJSONLogger creates a new JSON logger
func NewJSONLogger(w io.Writer, level Level) *JSONLogger {
	return &JSONLogger{core: &core{writer: w, level: level}}
}

func (l *JSONLogger) log(level Level, msg string, fields []Field) {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	if level < l.core.level {
		return
	}

	e := entry{
		Time:    time.Now().Format(time.RFC3339Nano),
		Level:   level.String(),
		Message: msg,
	}
	if len(l.fields)+len(fields) > 0 {
		e.Fields = make(map[string]any, len(l.fields)+len(fields))
		for _, f := range l.fields {
			e.Fields[f.Key] = f.Value
		}
		for _, f := range fields {
			e.Fields[f.Key] = f.Value
		}
	}

	data, err := json.Marshal(e)
	if err != nil {
		fmt.Fprintf(l.core.writer, "[ERROR] failed to marshal log entry: %v\n", err)
		return
	}
	l.core.writer.Write(append(data, '\n'))
}

func (l *JSONLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *JSONLogger) Info(msg string, fields ...Field) { l.log(InfoLevel, msg, fields) }
func (l *JSONLogger) Warn(msg string, fields ...Field) { l.log(WarnLevel, msg, fields) }
func (l *JSONLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

// With creates a child logger with the given fields pre-set
func (l *JSONLogger) With(fields ...Field) Logger {
	return &JSONLogger{core: l.core, fields: appendFields(l.fields, fields)}
}

// SetLevel sets the minimum log level
func (l *JSONLogger) SetLevel(level Level) {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	l.core.level = level
}

// GetLevel returns the current log level
func (l *JSONLogger) GetLevel() Level {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	return l.core.level
}

var levelColors = map[Level]*color.Color{
	DebugLevel: color.New(color.FgHiBlack),
	InfoLevel:  color.New(color.FgCyan),
	WarnLevel:  color.New(color.FgYellow),
	ErrorLevel: color.New(color.FgRed, color.Bold),
}

// TextLogger writes human-readable lines: time, level, message, key=value
type TextLogger struct {
	core   *core
	fields []Field
}

// NewTextLogger creates a text logger. Levels are coloured when the
// terminal supports it.
func NewTextLogger(w io.Writer, level Level) *TextLogger {
	return &TextLogger{core: &core{writer: w, level: level}}
}

func (l *TextLogger) log(level Level, msg string, fields []Field) {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	if level < l.core.level {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(levelColors[level].Sprintf("%-5s", level.String()))
	b.WriteByte(' ')
	b.WriteString(msg)

	all := appendFields(l.fields, fields)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Key < all[j].Key })
	for _, f := range all {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	b.WriteByte('\n')
	io.WriteString(l.core.writer, b.String())
}

func (l *TextLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *TextLogger) Info(msg string, fields ...Field) { l.log(InfoLevel, msg, fields) }
func (l *TextLogger) Warn(msg string, fields ...Field) { l.log(WarnLevel, msg, fields) }
func (l *TextLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

// With creates a child logger with the given fields pre-set
func (l *TextLogger) With(fields ...Field) Logger {
	return &TextLogger{core: l.core, fields: appendFields(l.fields, fields)}
}

func (l *TextLogger) SetLevel(level Level) {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	l.core.level = level
}

func (l *TextLogger) GetLevel() Level {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	return l.core.level
}

func appendFields(a, b []Field) []Field {
	out := make([]Field, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// NopLogger is a logger that does nothing
type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field) {}
func (NopLogger) Warn(string, ...Field) {}
func (NopLogger) Error(string, ...Field) {}
func (n NopLogger) With(...Field) Logger { return n }
func (NopLogger) SetLevel(Level) {}
func (NopLogger) GetLevel() Level { return InfoLevel }

// NewNopLogger creates a logger that discards all output
func NewNopLogger() Logger {
	return NopLogger{}
}

// DebugFunc adapts a logger to the variadic debug hook used by the
// scheduler.
func DebugFunc(l Logger) func(args ...interface{}) {
	return func(args ...interface{}) {
		l.Debug(strings.TrimSpace(fmt.Sprintln(args...)))
	}
}
