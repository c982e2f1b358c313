package config

import (
	"os"
	"strconv"
	"time"
)

// parseEnv overlays Config fields from environment variables. Unset or
// malformed values leave the current value untouched. A .env file, if
// present, is loaded by the entry point before this runs.
func parseEnv(config *Config) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	setString("ENDPOINT_ADDR_HTTP", &config.EndpointAddrHTTP)
	setString("DATABASE_DSN", &config.DatabaseDSN)
	setString("SECRET_KEY", &config.SecretKey)
	setDuration("SERVICE_TOKEN_VALIDITY_DURATION", &config.ServiceTokenValidityDuration)
	setString("ADMIN_EXTERNAL_ID", &config.AdminExternalID)
	setString("CHANNEL_EXTERNAL_ID", &config.ChannelExternalID)
	setBool("MODERATION_ENABLED", &config.ModerationEnabled)
	setInt("MAX_MESSAGES", &config.MaxMessages)
	setDuration("RATE_LIMIT_WINDOW", &config.RateLimitWindow)
	setInt("SPAM_THRESHOLD", &config.SpamThreshold)
	setString("WEBHOOK_URL", &config.WebhookURL)
	setString("WEBHOOK_TOKEN", &config.WebhookToken)
	setDuration("DELIVERY_TIMEOUT", &config.DeliveryTimeout)
	setString("S3_ROOT_USER", &config.S3RootUser)
	setString("S3_ROOT_PASSWORD", &config.S3RootPassword)
	setString("S3_BUCKET", &config.S3Bucket)
	setString("S3_REGION", &config.S3Region)
	setString("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
}
