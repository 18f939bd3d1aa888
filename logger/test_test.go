package logger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTestLoggerMethods(t *testing.T) {
	logger := NewTestLogger()

	logger.Trace("Trace message %d", 1)
	logger.Debug("Debug message %d", 2)
	logger.Info("Info message %d", 3)
	logger.Warn("Warn message %d", 4)
	logger.Error("Error message %d", 5)

	logs := logger.Logs()
	assert.Len(t, logs, 5)
	assert.Equal(t, "TRACE", logs[0].Severity)
	assert.Equal(t, "Trace message %d", logs[0].Message)
	assert.Equal(t, []interface{}{1}, logs[0].Arguments)
	assert.Equal(t, "Error message 5", logs[4].Formatted())
	assert.True(t, logger.Contains("WARN", "message 4"))
	assert.False(t, logger.Contains("INFO", "message 4"))
}

func TestTestLoggerDerivedShareLogs(t *testing.T) {
	logger := NewTestLogger()
	child := logger.WithPrefix("[child]").With(map[string]interface{}{"k": "v"})
	child.Info("hello")

	logs := logger.Logs()
	assert.Len(t, logs, 1)
	assert.Equal(t, []string{"[child]"}, logs[0].Prefixes)
	assert.Equal(t, "v", logs[0].Metadata["k"])
}

func TestTestLoggerConcurrent(t *testing.T) {
	logger := NewTestLogger()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Debug("msg")
		}()
	}
	wg.Wait()
	assert.Len(t, logger.Logs(), 10)
}
