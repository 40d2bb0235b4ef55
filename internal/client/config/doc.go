// Package config loads runtime configuration for the SketchHub CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via flags: -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the server
//	-w string   broadcast WebSocket URL
//	-db string  local cache path
//	-i int      reconnect interval (seconds)
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "websocket_url": "ws://127.0.0.1:8080/api/broadcasting/ws",
//	  "cache_path": "sketchhub.db",
//	  "reconnect_interval": "3s"
//	}
package config
