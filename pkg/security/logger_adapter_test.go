package security

import (
	"errors"
	"testing"
	"time"

	"github.com/kevin07696/paygo-service/internal/domain/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerAdapter_TypedFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapLogger(zap.New(core))

	logger.Warn("Acquirer call failed",
		ports.String("acquirer", "vtb"),
		ports.Int64("amount", 10000),
		ports.Duration("elapsed", 2*time.Second),
		ports.Err(errors.New("connection reset")),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "Acquirer call failed", entry.Message)

	ctx := entry.ContextMap()
	assert.Equal(t, "vtb", ctx["acquirer"])
	assert.Equal(t, int64(10000), ctx["amount"])
	assert.Equal(t, 2*time.Second, ctx["elapsed"])
	assert.Equal(t, "connection reset", ctx["error"])
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("production", "")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger("development", "warn")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	_, err = NewLogger("development", "loud")
	assert.Error(t, err)
}
