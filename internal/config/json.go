package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig mirrors StructuredConfig with JSON tags and
// string-friendly durations ("15s", "1m").
type StructuredJSONConfig struct {
	API struct {
		BaseURL          string   `json:"base_url"`
		RequestTimeout   Duration `json:"request_timeout"`
		RetryBaseDelay   Duration `json:"retry_base_delay"`
		MaxRetries       int      `json:"max_retries"`
		BreakerThreshold int      `json:"breaker_threshold"`
		BreakerCooldown  Duration `json:"breaker_cooldown"`
	} `json:"api,omitempty"`

	Channel struct {
		URL               string   `json:"url"`
		MaxReconnectDelay Duration `json:"max_reconnect_delay"`
	} `json:"channel,omitempty"`

	Storage struct {
		DSN string `json:"dsn"`
	} `json:"storage,omitempty"`

	Sync struct {
		ProbeInterval Duration `json:"probe_interval"`
	} `json:"sync,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		API: API{
			BaseURL:          jsonCfg.API.BaseURL,
			RequestTimeout:   time.Duration(jsonCfg.API.RequestTimeout),
			RetryBaseDelay:   time.Duration(jsonCfg.API.RetryBaseDelay),
			MaxRetries:       jsonCfg.API.MaxRetries,
			BreakerThreshold: jsonCfg.API.BreakerThreshold,
			BreakerCooldown:  time.Duration(jsonCfg.API.BreakerCooldown),
		},
		Channel: Channel{
			URL:               jsonCfg.Channel.URL,
			MaxReconnectDelay: time.Duration(jsonCfg.Channel.MaxReconnectDelay),
		},
		Storage: Storage{
			DSN: jsonCfg.Storage.DSN,
		},
		Sync: Sync{
			ProbeInterval: time.Duration(jsonCfg.Sync.ProbeInterval),
		},
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON
// unmarshaling from strings like "1h", "30s".
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
