package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"ERROR", LogLevelError},
		{"warn", LogLevelWarn},
		{"", LogLevelInfo},
		{"bogus", LogLevelInfo},
		{" debug ", LogLevelDebug},
		{"TRACE", LogLevelTrace},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, ParseLogLevel(test.input), "input %q", test.input)
	}
}

func TestLogger_WithKeepsLevel(t *testing.T) {
	logger := NewLogger(LogLevelDebug).With("partition", "week1")
	assert.Equal(t, LogLevelDebug, logger.GetLevel())

	// must not panic on any level
	logger.Trace("trace %d", 1)
	logger.Debug("debug %d", 2)
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Error("discarded %s", "message")
	assert.Equal(t, LogLevelError, logger.GetLevel())
}
