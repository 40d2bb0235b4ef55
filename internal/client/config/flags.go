package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/sketchhub/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string    base URL of the SketchHub server
//	-w string    WebSocket URL of the broadcast endpoint
//	-db string   path of the local SQLite cache
//	-i int       reconnect interval in seconds
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-w", "-db", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the server")
	fs.StringVar(&cfg.WebSocketURL, "w", cfg.WebSocketURL, "broadcast WebSocket URL")
	fs.StringVar(&cfg.CachePath, "db", cfg.CachePath, "local cache path")
	reconnect := fs.Int("i", int(cfg.ReconnectInterval.Seconds()), "reconnect interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.ReconnectInterval = time.Duration(*reconnect) * time.Second
}
