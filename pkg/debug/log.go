//go:build js && wasm
// +build js,wasm

// Package debug routes logs to the browser console.
package debug

import (
	"fmt"
	"sort"
	"strings"
	"syscall/js"

	"github.com/recera/dualgraph/internal/logging"
	"github.com/recera/dualgraph/pkg/scheduler"
)

// EnableLogging sends scheduler debug output to the console
func EnableLogging() {
	scheduler.SetDebugLog(Log)
}

// Log logs a message to the console
func Log(args ...interface{}) {
	js.Global().Get("console").Call("log", args...)
}

// Logf logs a formatted message to the console
func Logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	js.Global().Get("console").Call("log", msg)
}

// Console is a logging.Logger writing to console.debug/info/warn/error
type Console struct {
	level  *logging.Level
	fields []logging.Field
}

// NewConsole creates a console logger
func NewConsole(level logging.Level) *Console {
	return &Console{level: &level}
}

var consoleMethods = map[logging.Level]string{
	logging.DebugLevel: "debug",
	logging.InfoLevel:  "info",
	logging.WarnLevel:  "warn",
	logging.ErrorLevel: "error",
}

func (c *Console) log(level logging.Level, msg string, fields []logging.Field) {
	if level < *c.level {
		return
	}
	all := append(append([]logging.Field(nil), c.fields...), fields...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Key < all[j].Key })
	var b strings.Builder
	b.WriteString(msg)
	for _, f := range all {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	js.Global().Get("console").Call(consoleMethods[level], b.String())
}

func (c *Console) Debug(msg string, fields ...logging.Field) { c.log(logging.DebugLevel, msg, fields) }
func (c *Console) Info(msg string, fields ...logging.Field)  { c.log(logging.InfoLevel, msg, fields) }
func (c *Console) Warn(msg string, fields ...logging.Field)  { c.log(logging.WarnLevel, msg, fields) }
func (c *Console) Error(msg string, fields ...logging.Field) { c.log(logging.ErrorLevel, msg, fields) }

// With creates a child logger sharing the level
func (c *Console) With(fields ...logging.Field) logging.Logger {
	return &Console{level: c.level, fields: append(append([]logging.Field(nil), c.fields...), fields...)}
}

func (c *Console) SetLevel(level logging.Level) { *c.level = level }
func (c *Console) GetLevel() logging.Level      { return *c.level }
