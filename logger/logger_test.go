package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoggerIsNoOpBeforeInitialize(t *testing.T) {
	require.NotNil(t, Logger)
	// Must not panic before Initialize is called.
	Info("pre-init message")
	Warnw("pre-init structured", "key", "value")
}

func TestInitializeJSON(t *testing.T) {
	err := Initialize(true)
	require.NoError(t, err)
	assert.True(t, JSONOutput)
	require.NotNil(t, Logger)
	Infow("initialized", "mode", "json")
	Cleanup()
}

func TestInitializeConsoleWithLevel(t *testing.T) {
	err := InitializeWithLevel(false, zap.DebugLevel)
	require.NoError(t, err)
	assert.False(t, JSONOutput)
	Debugf("debug enabled: %v", true)
	Cleanup()
}
