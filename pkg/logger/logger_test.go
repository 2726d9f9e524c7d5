package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGetLoggerInitialisesDefault(t *testing.T) {
	SetLogger(nil)
	defer SetLogger(nil)

	l := GetLogger("test")
	require.NotNil(t, l)
}

func TestGetLoggerUsesInstalledLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	GetLogger("resolver").Infow("tier hit", "key", "locations")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "resolver", entries[0].LoggerName)
	assert.Equal(t, "tier hit", entries[0].Message)
	assert.Equal(t, "locations", entries[0].ContextMap()["key"])
}

func TestInitUnknownLevelFallsBackToInfo(t *testing.T) {
	defer SetLogger(nil)
	require.NoError(t, Init("chatty"))

	mu.RLock()
	l := log
	mu.RUnlock()
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}
