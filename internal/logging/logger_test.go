package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level       string
		debugHidden bool
	}{
		{level: "debug", debugHidden: false},
		{level: "info", debugHidden: true},
		{level: "warn", debugHidden: true},
		{level: "error", debugHidden: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := New(tt.level, false)
			require.NoError(t, err)
			defer logger.Sync()

			enabled := logger.Core().Enabled(zapcore.DebugLevel)
			assert.Equal(t, !tt.debugHidden, enabled)
		})
	}
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New("loud", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNewDevelopmentMode(t *testing.T) {
	logger, err := New("info", true)
	require.NoError(t, err)
	defer logger.Sync()
	assert.NotNil(t, logger)
}

func TestNop(t *testing.T) {
	logger := Nop()
	require.NotNil(t, logger)
	// Everything is disabled on the nop core.
	assert.False(t, logger.Core().Enabled(zapcore.ErrorLevel))
}
