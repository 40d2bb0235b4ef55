package config

import (
	"net/url"
	"strings"
	"time"
)

// Config holds runtime settings for the SketchHub CLI.
//
// Fields:
//   - ServerURL: base URL of the SketchHub HTTP API (without /api).
//   - WebSocketURL: broadcast endpoint; derived from ServerURL when empty.
//   - CachePath: SQLite file holding the session and the last snapshot.
//   - ReconnectInterval: delay between WebSocket reconnect attempts.
type Config struct {
	ServerURL         string
	WebSocketURL      string
	CachePath         string
	ReconnectInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.CachePath = "sketchhub.db"
	c.ReconnectInterval = 3 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

// BroadcastURL returns WebSocketURL, or the ws(s) form of ServerURL plus
// /api/broadcasting/ws.
func (c *Config) BroadcastURL() string {
	if c.WebSocketURL != "" {
		return c.WebSocketURL
	}
	u, err := url.Parse(strings.TrimRight(c.ServerURL, "/"))
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/api/broadcasting/ws"
	return u.String()
}
