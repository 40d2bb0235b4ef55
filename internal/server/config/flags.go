package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/sketchhub/internal/flagx"
)

var allowedFlags = []string{
	"-a", "-d", "-s", "-t", "-r", "-u", "-p", "-b", "-g", "-e", "-redis", "-ids", "-log-level",
}

// parseFlags populates Config fields from command-line flags.
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-d string     PostgreSQL DSN
//	-s string     JWT HMAC secret key
//	-t int        access token validity, minutes
//	-r int        refresh token validity, minutes
//	-u/-p string  S3 root user / password
//	-b string     S3 bucket name
//	-g string     S3 region
//	-e string     S3 base endpoint
//	-redis string Redis address for the broadcast relay
//	-ids string   id strategy: sequence or dense
//	-log-level    debug, info, warn, error
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, allowedFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTTL := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTTL := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address for broadcast relay")
	fs.StringVar(&config.IDStrategy, "ids", config.IDStrategy, "id strategy (sequence|dense)")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTTL) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshTTL) * time.Minute
		}
	})
	return nil
}
