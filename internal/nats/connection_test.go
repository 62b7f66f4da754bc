package nats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConnectionConfig(t *testing.T) {
	cfg := DefaultConnectionConfig("nats://localhost:4222")

	assert.Equal(t, "nats://localhost:4222", cfg.URL)
	assert.Equal(t, "prism-runner", cfg.Name)
	assert.Equal(t, 10, cfg.MaxReconnects)
	assert.Equal(t, 2*time.Second, cfg.ReconnectWait)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestConnectValidation(t *testing.T) {
	_, err := Connect(context.Background(), nil)
	assert.Error(t, err)

	_, err = Connect(context.Background(), &ConnectionConfig{})
	assert.Error(t, err)
}

func TestConnectHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := DefaultConnectionConfig("nats://127.0.0.1:1")
	cfg.Timeout = 50 * time.Millisecond
	cfg.MaxReconnects = 0

	_, err := Connect(ctx, cfg)
	assert.ErrorIs(t, err, context.Canceled)

	// Give the reaper goroutine time to collect the dial result.
	time.Sleep(100 * time.Millisecond)
}

func TestCloseAndIsConnectedOnNil(t *testing.T) {
	assert.NoError(t, Close(nil))
	assert.False(t, IsConnected(nil))
}
