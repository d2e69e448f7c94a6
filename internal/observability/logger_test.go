package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func restoreLogger(t *testing.T) {
	orig := CLILogger
	t.Cleanup(func() { CLILogger = orig })
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{in: "", want: zapcore.InfoLevel},
		{in: "DEBUG", want: zapcore.DebugLevel},
		{in: "warning", want: zapcore.WarnLevel},
		{in: "error", want: zapcore.ErrorLevel},
		{in: "trace", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogger_Structured(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Options{Service: "ftpfinder", Level: "info", Profile: ProfileStructured, Output: &buf})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("Listed sources", zap.Int("count", 2))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "Listed sources", entry["msg"])
	assert.Equal(t, "ftpfinder", entry["service"])
	assert.Equal(t, float64(2), entry["count"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewLogger_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Options{Level: "debug", Profile: "console", Output: &buf})
	require.NoError(t, err)

	logger.Debug("Resolved session state")
	assert.Contains(t, buf.String(), "Resolved session state")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestConfigure(t *testing.T) {
	restoreLogger(t)

	var buf bytes.Buffer
	require.NoError(t, Configure(Options{Level: "warn", Output: &buf}))
	CLILogger.Info("dropped")
	CLILogger.Warn("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")

	assert.Error(t, Configure(Options{Level: "loud"}))
}

func TestInitCLILogger(t *testing.T) {
	restoreLogger(t)

	InitCLILogger("test", true)
	assert.True(t, CLILogger.Core().Enabled(zapcore.DebugLevel))

	InitCLILogger("test", false)
	assert.False(t, CLILogger.Core().Enabled(zapcore.DebugLevel))
}

func TestInitFileLogger(t *testing.T) {
	restoreLogger(t)

	path := filepath.Join(t.TempDir(), "nested", "ftpfinder.log")
	closeFn, err := InitFileLogger("ftpfinder", path, "info")
	require.NoError(t, err)

	CLILogger.Info("Dashboard started")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Dashboard started")
	assert.Contains(t, string(data), `"service":"ftpfinder"`)
}
