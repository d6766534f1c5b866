// Package config loads and merges the sync-client configuration from three
// sources: environment variables (caarlos0/env tags), command-line flags,
// and an optional JSON file referenced by CONFIG or -config. Sources are
// merged with mergo; earlier sources take precedence, defaults fill the
// rest, and the merged result is validated once.
package config
