package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tq.log")
	logger, err := NewLogger(LoggerOptions{Level: "info", File: path})
	require.NoError(t, err)

	logger.Info("hello", zap.String("k", "v"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"k":"v"`)
}

func TestNewLogger_VerboseEnablesDebug(t *testing.T) {
	logger, err := NewLogger(LoggerOptions{Level: "warn", Verbose: true, File: filepath.Join(t.TempDir(), "tq.log")})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewLogger_BadLevel(t *testing.T) {
	_, err := NewLogger(LoggerOptions{Level: "chatty"})
	require.Error(t, err)
}

func TestLogObserver_FailureLoggedAsWarning(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	obs := NewLogObserver(zap.New(core))

	obs.OnCallComplete(APICallEvent{Method: "GET", Path: "/auth/me", StatusCode: 401, ErrorCode: "UNAUTHORIZED"})
	obs.OnCallComplete(APICallEvent{Method: "GET", Path: "/map/regions", StatusCode: 200, Success: true})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "UNAUTHORIZED", entries[0].ContextMap()["error_code"])
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
}
