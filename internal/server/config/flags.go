package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/anonrelay/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-m int      per-window message cap
//	-w int      rate limit window, minutes
//	-t int      spam threshold
//	-k string   admin external id
//	-n string   channel external id
//	-q bool     moderation enabled
//	-o string   front-end webhook URL
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers in minutes and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-m", "-w", "-t", "-k", "-n", "-q", "-o", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	fs.IntVar(&config.MaxMessages, "m", config.MaxMessages, "max messages per window")
	rateLimitWindow := fs.Int("w", int(config.RateLimitWindow.Minutes()), "rate limit window (in minutes)")
	fs.IntVar(&config.SpamThreshold, "t", config.SpamThreshold, "spam auto-block threshold")

	fs.StringVar(&config.AdminExternalID, "k", config.AdminExternalID, "admin external id")
	fs.StringVar(&config.ChannelExternalID, "n", config.ChannelExternalID, "channel external id")
	fs.BoolVar(&config.ModerationEnabled, "q", config.ModerationEnabled, "moderation enabled")
	fs.StringVar(&config.WebhookURL, "o", config.WebhookURL, "front-end webhook URL")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.RateLimitWindow = time.Duration(*rateLimitWindow) * time.Minute
}
