package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/sketchhub/internal/flagx"
	"github.com/dmitrijs2005/sketchhub/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds.
type JsonConfig struct {
	ServerURL         string         `json:"server_url"`
	WebSocketURL      string         `json:"websocket_url"`
	CachePath         string         `json:"cache_path"`
	ReconnectInterval timex.Duration `json:"reconnect_interval"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. Empty fields keep the current value. Read or unmarshal
// errors panic.
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
	if jc.WebSocketURL != "" {
		cfg.WebSocketURL = jc.WebSocketURL
	}
	if jc.CachePath != "" {
		cfg.CachePath = jc.CachePath
	}
	cfg.ReconnectInterval = jc.ReconnectInterval.OrDefault(cfg.ReconnectInterval)
}
