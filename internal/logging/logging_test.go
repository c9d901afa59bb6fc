package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/joao-brasil/collectflow/internal/config"
)

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]zapcore.Level{
		"DEBUG":    zapcore.DebugLevel,
		"info":     zapcore.InfoLevel,
		"":         zapcore.InfoLevel,
		"WARNING":  zapcore.WarnLevel,
		"ERROR":    zapcore.ErrorLevel,
		"CRITICAL": zapcore.DPanicLevel,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("TRACE")
	assert.Error(t, err)
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.log")
	logger, closeFn, err := New(config.LoggingConfig{Level: "WARNING", Path: path})
	require.NoError(t, err)

	logger.Named("pool").Info("dropped")
	logger.Named("pool").Warn("pool exhausted")
	closeFn()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "pool")
	assert.Contains(t, out, "pool exhausted")
	assert.NotContains(t, out, "dropped")
}
