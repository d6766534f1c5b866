// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artem Voskov

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_DefaultsApplied(t *testing.T) {
	cfg, err := newConfigBuilder().build()
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, DefaultRequestTimeout, cfg.API.RequestTimeout)
	assert.Equal(t, DefaultMaxRetries, cfg.API.MaxRetries)
	assert.Equal(t, DefaultBreakerThreshold, cfg.API.BreakerThreshold)
	assert.Equal(t, DefaultBreakerCooldown, cfg.API.BreakerCooldown)
	assert.Equal(t, DefaultWSURL, cfg.Channel.URL)
	assert.Equal(t, DefaultDSN, cfg.Storage.DSN)
}

func TestBuild_EarlierSourceWins(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs,
		&StructuredConfig{API: API{BaseURL: "http://first:8080/api/v1"}},
		&StructuredConfig{API: API{BaseURL: "http://second:8080/api/v1", MaxRetries: 7}},
	)

	cfg, err := b.build()
	require.NoError(t, err)

	assert.Equal(t, "http://first:8080/api/v1", cfg.API.BaseURL)
	// Field absent in the first source falls through to the second.
	assert.Equal(t, 7, cfg.API.MaxRetries)
}

func TestBuild_InvalidBaseURL(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{API: API{BaseURL: "ftp://nope"}})

	_, err := b.build()
	require.ErrorIs(t, err, ErrInvalidBaseURL)
}

func TestBuild_InvalidWSURL(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{Channel: Channel{URL: "http://not-ws"}})

	_, err := b.build()
	require.ErrorIs(t, err, ErrInvalidWSURL)
}

func TestWithJSON_MergesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	payload := `{
		"api": {"base_url": "http://json:9090/api/v1", "request_timeout": "5s"},
		"storage": {"dsn": ":memory:"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{JSONFilePath: path})

	cfg, err := b.withJSON().build()
	require.NoError(t, err)

	assert.Equal(t, "http://json:9090/api/v1", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.RequestTimeout)
	assert.Equal(t, ":memory:", cfg.Storage.DSN)
}

func TestWithJSON_MissingFile(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{JSONFilePath: "/does/not/exist.json"})

	_, err := b.withJSON().build()
	require.Error(t, err)
}
