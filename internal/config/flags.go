package config

import (
	"flag"
)

// ParseFlags reads command-line flags into a StructuredConfig. Flags cover
// the handful of settings useful on an ad-hoc run; everything else comes
// from env or the JSON file. Unknown flags are left to flag.Parse to report.
func ParseFlags() *StructuredConfig {
	if flag.Parsed() {
		return &StructuredConfig{}
	}

	apiURL := flag.String("api", "", "base URL of the remote API, e.g. http://localhost:8080/api/v1")
	wsURL := flag.String("ws", "", "WebSocket endpoint of the sync-status channel")
	dsn := flag.String("dsn", "", "sqlite data source for the local store")
	timeout := flag.Duration("timeout", 0, "per-request timeout")
	probe := flag.Duration("probe", 0, "connectivity probe interval")

	var jsonPath string
	flag.StringVar(&jsonPath, "config", "", "path to JSON config file")
	flag.StringVar(&jsonPath, "c", "", "path to JSON config file (shorthand)")

	flag.Parse()

	return &StructuredConfig{
		API: API{
			BaseURL:        *apiURL,
			RequestTimeout: *timeout,
		},
		Channel: Channel{
			URL: *wsURL,
		},
		Storage: Storage{
			DSN: *dsn,
		},
		Sync: Sync{
			ProbeInterval: *probe,
		},
		JSONFilePath: jsonPath,
	}
}
