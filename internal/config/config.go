// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artem Voskov

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the sync
// client. It is populated by merging values from environment variables,
// command-line flags, and an optional JSON file.
//
// Struct tags:
//   - envPrefix — prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type StructuredConfig struct {
	// API holds the remote REST endpoint and the resilience knobs of the
	// request client (timeout, retry, circuit breaker).
	API API `envPrefix:"API_"`

	// Channel holds the WebSocket sync-status channel settings.
	Channel Channel `envPrefix:"WS_"`

	// Storage holds the on-device sqlite database settings.
	Storage Storage `envPrefix:"STORAGE_"`

	// Sync holds offline-coordinator settings such as the connectivity
	// probe interval.
	Sync Sync `envPrefix:"SYNC_"`

	// JSONFilePath is the optional path to a JSON configuration file,
	// merged on top of env and flag values when set.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// API configures the resilient request client.
type API struct {
	// BaseURL is the versioned base path of the remote API,
	// e.g. "http://localhost:8080/api/v1".
	// Env: API_BASE_URL
	BaseURL string `env:"BASE_URL"`

	// RequestTimeout bounds every outbound request. A request that exceeds
	// it is classified as network-unavailable, not as a server error.
	// Env: API_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// RetryBaseDelay is the first retry delay; subsequent delays double
	// (1s, 2s, 4s with the default). Tests shrink it to milliseconds.
	// Env: API_RETRY_BASE_DELAY
	RetryBaseDelay time.Duration `env:"RETRY_BASE_DELAY"`

	// MaxRetries is the number of retries after the initial attempt.
	// Env: API_MAX_RETRIES
	MaxRetries int `env:"MAX_RETRIES"`

	// BreakerThreshold is the number of consecutive non-4xx failures that
	// opens the circuit breaker.
	// Env: API_BREAKER_THRESHOLD
	BreakerThreshold int `env:"BREAKER_THRESHOLD"`

	// BreakerCooldown is how long the breaker stays open before letting a
	// single half-open probe through.
	// Env: API_BREAKER_COOLDOWN
	BreakerCooldown time.Duration `env:"BREAKER_COOLDOWN"`
}

// Channel configures the WebSocket connectivity channel.
type Channel struct {
	// URL is the WebSocket endpoint, e.g. "ws://localhost:8080/ws".
	// Env: WS_URL
	URL string `env:"URL"`

	// MaxReconnectDelay caps the exponential reconnect backoff.
	// Env: WS_MAX_RECONNECT_DELAY
	MaxReconnectDelay time.Duration `env:"MAX_RECONNECT_DELAY"`
}

// Storage configures the on-device database.
type Storage struct {
	// DSN is the sqlite data source, a file path or ":memory:".
	// Env: STORAGE_DSN
	DSN string `env:"DSN"`
}

// Sync configures the offline coordinator.
type Sync struct {
	// ProbeInterval is how often the connectivity watcher pings the API
	// health endpoint to derive the online/offline flag.
	// Env: SYNC_PROBE_INTERVAL
	ProbeInterval time.Duration `env:"PROBE_INTERVAL"`
}
