package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("info"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestZapAdapter_FieldsAndErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core))

	log.WithFields(map[string]interface{}{"component": "router"}).
		WithError(errors.New("boom")).
		Warn("Case repository call failed", map[string]interface{}{"operation": "search"})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "Case repository call failed", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "router", fields["component"])
	assert.Equal(t, "search", fields["operation"])
	assert.Equal(t, "boom", fields["error"])
}

func TestNewWithOutput_WritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "case-assistant.log")
	zl := NewWithOutput("info", "console", Output{Path: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})

	NewZapAdapter(zl).Info("Session reset", map[string]interface{}{"sessionId": "abc"})
	require.NoError(t, zl.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Session reset"`)
	assert.Contains(t, string(data), `"sessionId":"abc"`)
}

func TestNewWithOutput_FiltersBelowLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "case-assistant.log")
	zl := NewWithOutput("warn", "json", Output{Path: path})

	NewZapAdapter(zl).Info("hidden", nil)
	require.NoError(t, zl.Sync())

	data, err := os.ReadFile(path)
	if err == nil {
		assert.NotContains(t, string(data), "hidden")
	}
}
