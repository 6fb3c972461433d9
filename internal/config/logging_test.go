package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/chainpay/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		input    string
		expected config.LogLevel
	}{
		{"off lowercase", "off", config.LogLevelOff},
		{"off uppercase", "OFF", config.LogLevelOff},
		{"none", "none", config.LogLevelOff},
		{"error", "error", config.LogLevelError},
		{"warn", "warn", config.LogLevelWarn},
		{"warning", "Warning", config.LogLevelWarn},
		{"info", "INFO", config.LogLevelInfo},
		{"debug", "debug", config.LogLevelDebug},
		{"with whitespace", "  debug  ", config.LogLevelDebug},
		{"invalid returns error", "invalid", config.LogLevelError},
		{"empty returns error", "", config.LogLevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, config.ParseLogLevel(tt.input))
		})
	}
}

func TestLogLevel_String(t *testing.T) {
	t.Parallel()
	for _, lvl := range []config.LogLevel{
		config.LogLevelOff, config.LogLevelError, config.LogLevelWarn, config.LogLevelInfo, config.LogLevelDebug,
	} {
		assert.Equal(t, lvl, config.ParseLogLevel(lvl.String()))
	}
	assert.Equal(t, "error", config.LogLevel(99).String())
}

func TestWriterLogger_Levels(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := config.NewWriterLogger(config.LogLevelWarn, &buf)

	logger.Debug("debug %d", 1)
	logger.Info("info %d", 2)
	logger.Warn("warn %d", 3)
	logger.Error("error %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "debug 1")
	assert.NotContains(t, out, "info 2")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "warn 3")
	assert.Contains(t, out, "ERROR")
	assert.Contains(t, out, "error 4")
}

func TestWriterLogger_SetLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := config.NewWriterLogger(config.LogLevelError, &buf)
	assert.Equal(t, config.LogLevelError, logger.Level())

	logger.Debug("hidden")
	logger.SetLevel(config.LogLevelDebug)
	assert.Equal(t, config.LogLevelDebug, logger.Level())
	logger.Debug("shown")

	logger.SetLevel(config.LogLevelOff)
	assert.Equal(t, config.LogLevelOff, logger.Level())
	logger.Error("silenced")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.NotContains(t, out, "silenced")
}

func TestLogger_Writer(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := config.NewWriterLogger(config.LogLevelDebug, &buf)

	n, err := logger.Writer(config.LogLevelInfo).Write([]byte("  from writer \n"))
	require.NoError(t, err)
	assert.Equal(t, 15, n)
	assert.Contains(t, buf.String(), "from writer")
	assert.Contains(t, buf.String(), "INFO")
}

func TestNewLogger_File(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "logs", "chainpay.log")

	logger, err := config.NewLogger(config.LogLevelDebug, path)
	require.NoError(t, err)
	logger.Debug("connected to %s", "polygon")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path) //nolint:gosec // test file
	require.NoError(t, err)
	assert.Contains(t, string(data), "connected to polygon")
}

func TestNewLogger_Off(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "off.log")

	logger, err := config.NewLogger(config.LogLevelOff, path)
	require.NoError(t, err)
	logger.Error("nothing")
	require.NoError(t, logger.Close())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestNullLogger(t *testing.T) {
	t.Parallel()
	logger := config.NullLogger()
	assert.Equal(t, config.LogLevelOff, logger.Level())
	logger.Debug("x")
	logger.Error("y")
	require.NoError(t, logger.Close())
}
