package logger

import (
	"fmt"
	"io"
	"strings"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Logger defines the interface for logging throughout the application.
// Different implementations can be used for different contexts (console, silent, structured, etc.)
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
	// With returns a Logger that attaches keyvals to every record.
	With(keyvals ...interface{}) Logger
}

// KitLogger writes structured records (logfmt or JSON) through go-kit/log.
// Used by every relay process.
type KitLogger struct {
	base kitlog.Logger
}

// NewKitLogger creates a KitLogger writing to w. format is "json" or "logfmt";
// debug enables Debug records.
func NewKitLogger(w io.Writer, format string, debug bool) *KitLogger {
	var l kitlog.Logger
	if strings.EqualFold(format, "json") {
		l = kitlog.NewJSONLogger(kitlog.NewSyncWriter(w))
	} else {
		l = kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))
	}
	l = kitlog.With(l, "ts", kitlog.DefaultTimestampUTC)

	if debug {
		l = level.NewFilter(l, level.AllowDebug())
	} else {
		l = level.NewFilter(l, level.AllowInfo())
	}
	return &KitLogger{base: l}
}

func (k *KitLogger) Info(msg string, args ...interface{}) {
	_ = level.Info(k.base).Log("msg", format(msg, args))
}

func (k *KitLogger) Error(msg string, args ...interface{}) {
	_ = level.Error(k.base).Log("msg", format(msg, args))
}

func (k *KitLogger) Debug(msg string, args ...interface{}) {
	_ = level.Debug(k.base).Log("msg", format(msg, args))
}

func (k *KitLogger) With(keyvals ...interface{}) Logger {
	return &KitLogger{base: kitlog.With(k.base, keyvals...)}
}

func format(msg string, args []interface{}) string {
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

// SilentLogger discards all log messages.
// Used in tests and when another surface owns stdout (MCP stdio).
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}
func (s *SilentLogger) With(keyvals ...interface{}) Logger    { return s }
