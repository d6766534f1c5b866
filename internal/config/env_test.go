package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv_ClientFields(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://env-host:8081/api/v1")
	t.Setenv("API_REQUEST_TIMEOUT", "7s")
	t.Setenv("API_MAX_RETRIES", "2")
	t.Setenv("WS_URL", "ws://env-host:8081/ws")
	t.Setenv("STORAGE_DSN", "/tmp/env.db")
	t.Setenv("SYNC_PROBE_INTERVAL", "3s")

	var cfg StructuredConfig
	require.NoError(t, parseEnv(&cfg))

	assert.Equal(t, "http://env-host:8081/api/v1", cfg.API.BaseURL)
	assert.Equal(t, 7*time.Second, cfg.API.RequestTimeout)
	assert.Equal(t, 2, cfg.API.MaxRetries)
	assert.Equal(t, "ws://env-host:8081/ws", cfg.Channel.URL)
	assert.Equal(t, "/tmp/env.db", cfg.Storage.DSN)
	assert.Equal(t, 3*time.Second, cfg.Sync.ProbeInterval)
}

func TestParseEnv_BadDuration(t *testing.T) {
	t.Setenv("API_REQUEST_TIMEOUT", "not-a-duration")

	var cfg StructuredConfig
	require.Error(t, parseEnv(&cfg))
}
