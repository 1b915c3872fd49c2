package config

import (
	"time"

	"github.com/pders01/mastofeed/internal/settings"
)

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Timeout: 1 * time.Second,
		},
		Server: ServerConfig{
			Address:      "127.0.0.1:0",
			AllowOrigins: "*",
		},
		Log: LogConfig{
			Level: "OFF",
		},
		Mastodon: MastodonConfig{
			UserAgent: "mastofeed-test/1.0",
		},
		Settings: settings.Defaults(),
	}
}
