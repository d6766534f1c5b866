package config

import "time"

// Default resilience constants. The breaker and retry values mirror the
// remote service's documented availability envelope and are overridable for
// tests via env or JSON config.
const (
	DefaultBaseURL          = "http://localhost:8080/api/v1"
	DefaultWSURL            = "ws://localhost:8080/ws"
	DefaultDSN              = "archivemind.db"
	DefaultRequestTimeout   = 15 * time.Second
	DefaultRetryBaseDelay   = time.Second
	DefaultMaxRetries       = 3
	DefaultBreakerThreshold = 5
	DefaultBreakerCooldown  = 30 * time.Second
	DefaultMaxReconnect     = 30 * time.Second
	DefaultProbeInterval    = 20 * time.Second
)

// applyDefaults fills in zero-valued fields after all sources are merged.
func (c *StructuredConfig) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.RequestTimeout <= 0 {
		c.API.RequestTimeout = DefaultRequestTimeout
	}
	if c.API.RetryBaseDelay <= 0 {
		c.API.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if c.API.MaxRetries <= 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.BreakerThreshold <= 0 {
		c.API.BreakerThreshold = DefaultBreakerThreshold
	}
	if c.API.BreakerCooldown <= 0 {
		c.API.BreakerCooldown = DefaultBreakerCooldown
	}
	if c.Channel.URL == "" {
		c.Channel.URL = DefaultWSURL
	}
	if c.Channel.MaxReconnectDelay <= 0 {
		c.Channel.MaxReconnectDelay = DefaultMaxReconnect
	}
	if c.Storage.DSN == "" {
		c.Storage.DSN = DefaultDSN
	}
	if c.Sync.ProbeInterval <= 0 {
		c.Sync.ProbeInterval = DefaultProbeInterval
	}
}
