package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/anonrelay/internal/flagx"
	"github.com/dmitrijs2005/anonrelay/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "1h" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its fields are copied into the
// runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	ServiceTokenValidityDuration timex.Duration `json:"service_token_validity_duration"`
	AdminExternalID              string         `json:"admin_external_id"`
	ChannelExternalID            string         `json:"channel_external_id"`
	ModerationEnabled            *bool          `json:"moderation_enabled"`
	MaxMessages                  int            `json:"max_messages"`
	RateLimitWindow              timex.Duration `json:"rate_limit_window"`
	SpamThreshold                int            `json:"spam_threshold"`
	WebhookURL                   string         `json:"webhook_url"`
	WebhookToken                 string         `json:"webhook_token"`
	DeliveryTimeout              timex.Duration `json:"delivery_timeout"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is:
//
//	The -c or -config command-line flags.
//	If it is not set, no JSON file is loaded.
//
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.ServiceTokenValidityDuration = time.Duration(c.ServiceTokenValidityDuration.Duration)
	config.AdminExternalID = c.AdminExternalID
	config.ChannelExternalID = c.ChannelExternalID
	if c.ModerationEnabled != nil {
		config.ModerationEnabled = *c.ModerationEnabled
	}
	config.MaxMessages = c.MaxMessages
	config.RateLimitWindow = time.Duration(c.RateLimitWindow.Duration)
	config.SpamThreshold = c.SpamThreshold
	config.WebhookURL = c.WebhookURL
	config.WebhookToken = c.WebhookToken
	config.DeliveryTimeout = time.Duration(c.DeliveryTimeout.Duration)
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
