package logger

import (
	"fmt"
	"strings"
	"sync"
)

type TestLogEntry struct {
	Severity  string
	Message   string
	Arguments []interface{}
	Prefixes  []string
	Metadata  map[string]interface{}
}

// Formatted returns the message with its arguments applied.
func (e TestLogEntry) Formatted() string {
	return fmt.Sprintf(e.Message, e.Arguments...)
}

type testLogSink struct {
	mu   sync.Mutex
	logs []TestLogEntry
}

// TestLogger records every message so tests can assert on them. Loggers
// derived with With or WithPrefix record into the same list. It is safe for
// concurrent use.
type TestLogger struct {
	sink     *testLogSink
	prefixes []string
	metadata map[string]interface{}
	level    LogLevel
}

var _ Logger = (*TestLogger)(nil)

func (c *TestLogger) derive() *TestLogger {
	return &TestLogger{
		sink:     c.sink,
		prefixes: c.prefixes,
		metadata: c.metadata,
		level:    c.level,
	}
}

// WithPrefix will return a new logger with a prefix prepended to the message
func (c *TestLogger) WithPrefix(prefix string) Logger {
	l := c.derive()
	l.prefixes = appendPrefix(c.prefixes, prefix)
	return l
}

func (c *TestLogger) With(metadata map[string]interface{}) Logger {
	l := c.derive()
	l.metadata = mergeMetadata(c.metadata, metadata)
	return l
}

func (c *TestLogger) log(level LogLevel, msg string, args ...interface{}) {
	if !c.IsLevelEnabled(level) {
		return
	}
	c.sink.mu.Lock()
	c.sink.logs = append(c.sink.logs, TestLogEntry{
		Severity:  level.String(),
		Message:   msg,
		Arguments: args,
		Prefixes:  c.prefixes,
		Metadata:  c.metadata,
	})
	c.sink.mu.Unlock()
}

func (c *TestLogger) Trace(msg string, args ...interface{}) {
	c.log(LevelTrace, msg, args...)
}

func (c *TestLogger) Debug(msg string, args ...interface{}) {
	c.log(LevelDebug, msg, args...)
}

func (c *TestLogger) Info(msg string, args ...interface{}) {
	c.log(LevelInfo, msg, args...)
}

func (c *TestLogger) Warn(msg string, args ...interface{}) {
	c.log(LevelWarn, msg, args...)
}

func (c *TestLogger) Error(msg string, args ...interface{}) {
	c.log(LevelError, msg, args...)
}

func (c *TestLogger) IsLevelEnabled(level LogLevel) bool {
	return level < LevelNone && level >= c.level
}

func (c *TestLogger) IsTraceEnabled() bool {
	return c.IsLevelEnabled(LevelTrace)
}

func (c *TestLogger) IsDebugEnabled() bool {
	return c.IsLevelEnabled(LevelDebug)
}

// Logs returns a copy of everything recorded so far.
func (c *TestLogger) Logs() []TestLogEntry {
	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()
	return append([]TestLogEntry(nil), c.sink.logs...)
}

// Contains reports whether a message of the given severity whose formatted
// text contains substr was recorded.
func (c *TestLogger) Contains(severity string, substr string) bool {
	for _, e := range c.Logs() {
		if e.Severity == severity && strings.Contains(e.Formatted(), substr) {
			return true
		}
	}
	return false
}

// NewTestLogger returns a new Logger instance useful for testing. It records
// every level.
func NewTestLogger() *TestLogger {
	return &TestLogger{sink: &testLogSink{}, level: LevelTrace}
}
