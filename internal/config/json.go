package config

import (
	"encoding/json"
	"os"

	"github.com/flitapp/flitsync/internal/flagx"
	"github.com/flitapp/flitsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations can
// be given as strings like "30s" or as integer nanoseconds.
type JsonConfig struct {
	ServerURL      string         `json:"server_url"`
	DatabaseDSN    string         `json:"database_dsn"`
	DrainInterval  timex.Duration `json:"drain_interval"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	MaxRetries     int            `json:"max_retries"`
	LogLevel       string         `json:"log_level"`
}

// parseJson overlays cfg with values from the JSON file given via -c/-config.
// Absent file path means no JSON layer. Only fields present in the file
// override the current values.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.DrainInterval.Duration != 0 {
		cfg.DrainInterval = jc.DrainInterval.Duration
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.MaxRetries != 0 {
		cfg.MaxRetries = jc.MaxRetries
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
}
