package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		mode    string
		enabled zapcore.Level
		muted   zapcore.Level
	}{
		{"release info", "info", "release", zapcore.InfoLevel, zapcore.DebugLevel},
		{"debug mode", "debug", "debug", zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"warn only", "warn", "debug", zapcore.WarnLevel, zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.level, tt.mode)
			require.NoError(t, err)

			assert.True(t, log.Core().Enabled(tt.enabled))
			assert.False(t, log.Core().Enabled(tt.muted))
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("loud", "debug")
	assert.Error(t, err)
}
