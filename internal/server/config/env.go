package config

import "github.com/dmitrijs2005/sketchhub/internal/flagx"

// parseEnv overlays SKETCHHUB_* variables, e.g. SKETCHHUB_DATABASE_DSN.
func parseEnv(config *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}
	e := &flagx.Env{Prefix: EnvPrefix, Lookup: lookup}

	e.String("HTTP_ADDR", &config.HTTPAddr)
	e.String("DATABASE_DSN", &config.DatabaseDSN)
	e.String("SECRET_KEY", &config.SecretKey)
	e.Duration("ACCESS_TOKEN_TTL", &config.AccessTokenValidityDuration)
	e.Duration("REFRESH_TOKEN_TTL", &config.RefreshTokenValidityDuration)
	e.String("S3_ROOT_USER", &config.S3RootUser)
	e.String("S3_ROOT_PASSWORD", &config.S3RootPassword)
	e.String("S3_BUCKET", &config.S3Bucket)
	e.String("S3_REGION", &config.S3Region)
	e.String("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	e.Duration("PRESIGN_TTL", &config.PresignTTL)
	e.String("REDIS_ADDR", &config.RedisAddr)
	e.String("REDIS_PASSWORD", &config.RedisPassword)
	e.String("REDIS_CHANNEL_PREFIX", &config.RedisChannelPrefix)
	e.List("CORS_ORIGINS", &config.CORSOrigins)
	e.Float("RATE_LIMIT_RPS", &config.RateLimitRPS)
	e.Int("RATE_LIMIT_BURST", &config.RateLimitBurst)
	e.Int("SUBSCRIBER_BUFFER", &config.SubscriberBuffer)
	e.String("LOG_LEVEL", &config.LogLevel)
	e.String("LOG_FORMAT", &config.LogFormat)
	e.String("ID_STRATEGY", &config.IDStrategy)

	return e.Err
}
