package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Levels(t *testing.T) {
	tests := map[string]zapcore.Level{
		"":        zapcore.InfoLevel,
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			logger, err := NewLogger(in)
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(want))
			if want > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(want-1))
			}
		})
	}
}

func TestPrintfAdapter(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	a := NewPrintfAdapter(zap.New(core))

	a.Printf("applied %d migrations\n", 2)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "applied 2 migrations", logs.All()[0].Message)
	assert.False(t, a.Verbose())

	debugCore, _ := observer.New(zapcore.DebugLevel)
	assert.True(t, NewPrintfAdapter(zap.New(debugCore)).Verbose())
}
