package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug", "development")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger("warn", "production")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = NewLogger("loud", "production")
	assert.Error(t, err)
}

func TestSetupTracing_NoEndpoint(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "http://collector:4318", endpointURL("http://collector:4318"))
	assert.Equal(t, "https://otel.example.com:4318", endpointURL("https://otel.example.com:4318"))
	assert.Equal(t, "http://collector:4318", endpointURL("collector:4318"))
}

func TestSetupTracing_URLEndpoint(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), "http://localhost:4318")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
