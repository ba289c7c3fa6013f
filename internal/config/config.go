// Package config loads and persists the portfolio tool configuration.
package config

import (
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// DefaultDatabaseFile is the name of the SQLite database created on first run.
const DefaultDatabaseFile = "portfolio.db"

// Config represents the complete portfolio configuration
type Config struct {
	DatabasePath string        `toml:"databasePath" mapstructure:"databasePath"`
	Server       ServerConfig  `toml:"server" mapstructure:"server"`
	Auth         AuthConfig    `toml:"auth" mapstructure:"auth"`
	Logging      LoggingConfig `toml:"logging" mapstructure:"logging"`
}

// ServerConfig contains HTTP API configuration
type ServerConfig struct {
	Bind string `toml:"bind" mapstructure:"bind"`
	Port int    `toml:"port" mapstructure:"port"`
}

// AuthConfig contains the static allow-list of authorized identities
type AuthConfig struct {
	AllowedUsers []string `toml:"allowedUsers" mapstructure:"allowedUsers"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `toml:"level" mapstructure:"level"`
	File  string `toml:"file" mapstructure:"file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DatabasePath: DefaultDatabaseFile,
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 8087,
		},
		Auth: AuthConfig{
			AllowedUsers: []string{},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from config.toml in dir, layered with
// PORTFOLIO_* environment variables. A missing file yields the defaults.
func Load(dir string) (*Config, error) {
	v := viper.New()

	v.SetDefault("databasePath", DefaultDatabaseFile)
	v.SetDefault("server.bind", "127.0.0.1")
	v.SetDefault("server.port", 8087)
	v.SetDefault("logging.level", "info")

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("PORTFOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to config.toml in dir.
func (c *Config) Save(dir string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.toml"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return &ConfigError{Field: "databasePath", Message: "must not be empty"}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Message: "must be between 1 and 65535"}
	}
	for _, u := range c.Auth.AllowedUsers {
		if strings.TrimSpace(u) == "" {
			return &ConfigError{Field: "auth.allowedUsers", Message: "entries must not be blank"}
		}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
