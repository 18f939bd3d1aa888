package logger

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

var noColor = os.Getenv("TERM") == "dumb" ||
	(!isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()))

const (
	reset   = "\033[0m"
	red     = "\033[31m"
	green   = "\033[32m"
	magenta = "\033[35m"
	gray    = "\033[1;90m"
	purple  = "\u001b[38;5;200m"
)

var levelColors = map[LogLevel]string{
	LevelTrace: "\033[36;1m",
	LevelDebug: "\033[34;1m",
	LevelInfo:  "\033[33;1m",
	LevelWarn:  "\033[35;1m",
	LevelError: "\033[31;1m",
}

var messageColors = map[LogLevel]string{
	LevelTrace: gray,
	LevelDebug: green,
	LevelInfo:  "\033[37;1m",
	LevelWarn:  magenta,
	LevelError: red,
}

func color(val string) string {
	if noColor {
		return ""
	}
	return val
}

type consoleLogger struct {
	prefixes []string
	metadata map[string]interface{}
	level    LogLevel
}

var _ Logger = (*consoleLogger)(nil)

func (c *consoleLogger) clone() *consoleLogger {
	return &consoleLogger{
		prefixes: append([]string(nil), c.prefixes...),
		metadata: mergeMetadata(c.metadata, nil),
		level:    c.level,
	}
}

// WithPrefix will return a new logger with a prefix prepended to the message
func (c *consoleLogger) WithPrefix(prefix string) Logger {
	l := c.clone()
	l.prefixes = appendPrefix(c.prefixes, prefix)
	return l
}

func (c *consoleLogger) With(metadata map[string]interface{}) Logger {
	l := c.clone()
	l.metadata = mergeMetadata(c.metadata, metadata)
	return l
}

func (c *consoleLogger) format(level LogLevel, msg string, args ...interface{}) string {
	var prefix, suffix string
	if len(c.prefixes) > 0 {
		prefix = color(purple) + strings.Join(c.prefixes, " ") + color(reset) + " "
	}
	if len(c.metadata) > 0 {
		if buf, err := json.Marshal(c.metadata); err == nil {
			suffix = " " + color(gray) + string(buf) + color(reset)
		}
	}
	name := level.String()
	levelText := color(levelColors[level]) + fmt.Sprintf("[%-5s]", name) + color(reset)
	message := color(messageColors[level]) + fmt.Sprintf(msg, args...) + color(reset)
	return fmt.Sprintf("%s %s%s%s", levelText, prefix, message, suffix)
}

func (c *consoleLogger) log(level LogLevel, msg string, args ...interface{}) {
	if !c.IsLevelEnabled(level) {
		return
	}
	log.Printf("%s\n", c.format(level, msg, args...))
}

func (c *consoleLogger) Trace(msg string, args ...interface{}) {
	c.log(LevelTrace, msg, args...)
}

func (c *consoleLogger) Debug(msg string, args ...interface{}) {
	c.log(LevelDebug, msg, args...)
}

func (c *consoleLogger) Info(msg string, args ...interface{}) {
	c.log(LevelInfo, msg, args...)
}

func (c *consoleLogger) Warn(msg string, args ...interface{}) {
	c.log(LevelWarn, msg, args...)
}

func (c *consoleLogger) Error(msg string, args ...interface{}) {
	c.log(LevelError, msg, args...)
}

func (c *consoleLogger) IsLevelEnabled(level LogLevel) bool {
	return level < LevelNone && level >= c.level
}

func (c *consoleLogger) IsTraceEnabled() bool {
	return c.IsLevelEnabled(LevelTrace)
}

func (c *consoleLogger) IsDebugEnabled() bool {
	return c.IsLevelEnabled(LevelDebug)
}

// NewConsoleLogger returns a new Logger instance which will log to the console.
// Without an explicit level the level comes from GetLevelFromEnv.
func NewConsoleLogger(levels ...LogLevel) Logger {
	level := GetLevelFromEnv()
	if len(levels) > 0 {
		level = levels[0]
	}
	return &consoleLogger{level: level, metadata: map[string]interface{}{}}
}
