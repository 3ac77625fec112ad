package config

import (
	"encoding/json"
	"os"

	"github.com/justicebus/offlinesync/internal/flagx"
	"github.com/justicebus/offlinesync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "3s"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config (which uses time.Duration).
type JsonConfig struct {
	APIBaseURL          string         `json:"api_base_url"`
	HealthPath          string         `json:"health_path"`
	VerifyPath          string         `json:"verify_path"`
	EventsPath          string         `json:"events_path"`
	NotificationsPath   string         `json:"notifications_path"`
	DatabasePath        string         `json:"database_path"`
	DataDir             string         `json:"data_dir"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	VerificationTTL     timex.Duration `json:"verification_ttl"`
}

// parseJson overlays Config with values loaded from a JSON file. The file
// path comes from the -c/-config flags (flagx.JsonConfigFlags); when absent,
// nothing is loaded. Only fields present in the file override defaults.
// Panics on read or unmarshal errors (caller should recover if desired).
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

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.HealthPath != "" {
		cfg.HealthPath = jc.HealthPath
	}
	if jc.VerifyPath != "" {
		cfg.VerifyPath = jc.VerifyPath
	}
	if jc.EventsPath != "" {
		cfg.EventsPath = jc.EventsPath
	}
	if jc.NotificationsPath != "" {
		cfg.NotificationsPath = jc.NotificationsPath
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.VerificationTTL.Duration != 0 {
		cfg.VerificationTTL = jc.VerificationTTL.Duration
	}
}
