package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/sketchhub/internal/flagx"
	"github.com/dmitrijs2005/sketchhub/internal/timex"
)

// JsonConfig is the on-disk shape of the server config. Durations accept
// "15m" style strings or integer nanoseconds. Zero values leave the
// current setting untouched.
type JsonConfig struct {
	HTTPAddr                     string         `json:"http_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	PresignTTL                   timex.Duration `json:"presign_ttl"`
	RedisAddr                    string         `json:"redis_addr"`
	RedisPassword                string         `json:"redis_password"`
	RedisChannelPrefix           string         `json:"redis_channel_prefix"`
	CORSOrigins                  []string       `json:"cors_origins"`
	RateLimitRPS                 float64        `json:"rate_limit_rps"`
	RateLimitBurst               int            `json:"rate_limit_burst"`
	SubscriberBuffer             int            `json:"subscriber_buffer"`
	LogLevel                     string         `json:"log_level"`
	LogFormat                    string         `json:"log_format"`
	IDStrategy                   string         `json:"id_strategy"`
}

// parseJson overlays the JSON file named by -c/-config (or SKETCHHUB_CONFIG)
// onto config. No path means nothing to load.
func parseJson(config *Config, args []string, lookup func(string) (string, bool)) error {
	path := flagx.ConfigPath(args, "")
	if path == "" && lookup != nil {
		path, _ = lookup(EnvConfigPath)
	}
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.OrDefault(config.AccessTokenValidityDuration)
	config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.OrDefault(config.RefreshTokenValidityDuration)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	config.PresignTTL = c.PresignTTL.OrDefault(config.PresignTTL)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setString(&config.RedisChannelPrefix, c.RedisChannelPrefix)
	if len(c.CORSOrigins) > 0 {
		config.CORSOrigins = c.CORSOrigins
	}
	if c.RateLimitRPS != 0 {
		config.RateLimitRPS = c.RateLimitRPS
	}
	if c.RateLimitBurst != 0 {
		config.RateLimitBurst = c.RateLimitBurst
	}
	if c.SubscriberBuffer != 0 {
		config.SubscriberBuffer = c.SubscriberBuffer
	}
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.IDStrategy, c.IDStrategy)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
