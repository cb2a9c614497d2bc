package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/yorgalore/storysync/internal/flagx"
	"github.com/yorgalore/storysync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It
// relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds.
type JsonConfig struct {
	APIBaseURL          string         `json:"api_base_url"`
	DatabasePath        string         `json:"database_path"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	SyncBackoffBase     timex.Duration `json:"sync_backoff_base"`
	SyncBackoffCap      timex.Duration `json:"sync_backoff_cap"`
	SyncMaxRetries      *uint64        `json:"sync_max_retries"`
}

// parseJson overlays cfg with values loaded from the JSON file named by
// the -c/-config flags. Absent file path means no overlay. Fields left
// out of the JSON keep their current values.
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
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
	if jc.SyncBackoffBase.Duration != 0 {
		cfg.SyncBackoffBase = time.Duration(jc.SyncBackoffBase.Duration)
	}
	if jc.SyncBackoffCap.Duration != 0 {
		cfg.SyncBackoffCap = time.Duration(jc.SyncBackoffCap.Duration)
	}
	if jc.SyncMaxRetries != nil {
		cfg.SyncMaxRetries = *jc.SyncMaxRetries
	}
}
