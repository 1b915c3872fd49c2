package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pders01/mastofeed/internal/mastodon"
	"github.com/pders01/mastofeed/internal/settings"
	"github.com/pders01/mastofeed/internal/validation"
)

type Config struct {
	Database DatabaseConfig    `mapstructure:"database"`
	Server   ServerConfig      `mapstructure:"server"`
	Log      LogConfig         `mapstructure:"log"`
	Mastodon MastodonConfig    `mapstructure:"mastodon"`
	Settings settings.Settings `mapstructure:"settings"`
}

type DatabaseConfig struct {
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
	// AdminToken protects the settings and cache endpoints when set.
	AdminToken   string `mapstructure:"admin_token"`
	AllowOrigins string `mapstructure:"allow_origins"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type MastodonConfig struct {
	UserAgent string `mapstructure:"user_agent"`
}

// Environment overrides, e.g. MASTOFEED_SERVER_ADDRESS.
var envKeys = []string{
	"database.path",
	"database.timeout",
	"server.address",
	"server.admin_token",
	"server.allow_origins",
	"log.level",
	"log.file",
	"mastodon.user_agent",
	"settings.default_instance",
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dbPath := filepath.Join(homeDir, ".mastofeed.db")

	return &Config{
		Database: DatabaseConfig{
			Path:    dbPath,
			Timeout: 1 * time.Second,
		},
		Server: ServerConfig{
			Address:      ":8080",
			AllowOrigins: "*",
		},
		Log: LogConfig{
			Level: "INFO",
		},
		Mastodon: MastodonConfig{
			UserAgent: mastodon.DefaultUserAgent,
		},
		Settings: settings.Defaults(),
	}
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "mastofeed", "config.toml")
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("MASTOFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Decoding onto the defaults keeps every value the file leaves out.
	config := defaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	config.Database.Path = validation.ExpandPath(config.Database.Path)
	config.Log.File = validation.ExpandPath(config.Log.File)
	config.Settings = config.Settings.Sanitize()

	return config, nil
}

func Save(config *Config, path string) error {
	v := viper.New()

	// Durations as strings for TOML readability
	v.Set("database", map[string]interface{}{
		"path":    config.Database.Path,
		"timeout": config.Database.Timeout.String(),
	})
	v.Set("server", map[string]interface{}{
		"address":       config.Server.Address,
		"admin_token":   config.Server.AdminToken,
		"allow_origins": config.Server.AllowOrigins,
	})
	v.Set("log", map[string]interface{}{
		"level": config.Log.Level,
		"file":  config.Log.File,
	})
	v.Set("mastodon", map[string]interface{}{
		"user_agent": config.Mastodon.UserAgent,
	})
	v.Set("settings", config.Settings)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
