// Package config loads process configuration from environment variables
// (with an optional .env file) and an optional semitexa.toml overlay for
// settings too structured for env vars.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full process configuration: connection parameters from the
// environment, plus anything declared in an optional semitexa.toml overlay.
type Config struct {
	DBDriver      string `env:"DB_DRIVER" envDefault:"mysql"`
	DBHost        string `env:"DB_HOST" envDefault:"127.0.0.1"`
	DBPort        int    `env:"DB_PORT" envDefault:"3306"`
	DBDatabase    string `env:"DB_DATABASE" envDefault:"semitexa"`
	DBUsername    string `env:"DB_USERNAME" envDefault:"root"`
	DBPassword    string `env:"DB_PASSWORD"`
	DBCharset     string `env:"DB_CHARSET" envDefault:"utf8mb4"`
	DBCLIHost     string `env:"DB_CLI_HOST"` // overrides DBHost for the CLI's own connection, if set
	DBCLIPort     int    `env:"DB_CLI_PORT"` // overrides DBPort for the CLI's own connection, if set
	DBPoolSize    int    `env:"DB_POOL_SIZE" envDefault:"10"`
	IgnoreTables  []string `env:"ORM_IGNORE_TABLES" envSeparator:","`

	Overlay Overlay
}

// Overlay holds settings sourced from an optional semitexa.toml file rather
// than the environment: schema-sync policy knobs that are more natural as
// structured config than as a flat env var.
type Overlay struct {
	AllowDestructive bool   `toml:"allow_destructive"`
	AuditDir         string `toml:"audit_dir"`
	DeprecationGrace string `toml:"deprecation_grace"` // documented only; enforcement is operator-driven
}

func defaultOverlay() Overlay {
	return Overlay{
		AllowDestructive: false,
		AuditDir:         "var/migrations/history",
	}
}

// Load reads .env (if present, ignored if absent), parses the environment
// into Config, and applies a semitexa.toml overlay (if tomlPath is
// non-empty and the file exists).
func Load(tomlPath string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	cfg := &Config{Overlay: defaultOverlay()}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.DBCLIHost == "" {
		cfg.DBCLIHost = cfg.DBHost
	}
	if cfg.DBCLIPort == 0 {
		cfg.DBCLIPort = cfg.DBPort
	}

	if tomlPath != "" {
		if _, err := os.Stat(tomlPath); err == nil {
			md, err := toml.DecodeFile(tomlPath, &cfg.Overlay)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", tomlPath, err)
			}
			if unknown := md.Undecoded(); len(unknown) > 0 {
				keys := make([]string, len(unknown))
				for i, k := range unknown {
					keys[i] = k.String()
				}
				return nil, fmt.Errorf("unknown keys in %s: %s", tomlPath, strings.Join(keys, ", "))
			}
		}
	}

	return cfg, nil
}

// DSN renders the go-sql-driver/mysql data source name for the application
// pool connection.
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s",
		c.DBUsername, c.DBPassword, c.DBHost, c.DBPort, c.DBDatabase, c.DBCharset)
}

// CLIDSN renders the DSN the CLI itself should use, honoring the
// DB_CLI_HOST/DB_CLI_PORT override (useful when the CLI runs outside the
// container network that DB_HOST/DB_PORT address).
func (c *Config) CLIDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s",
		c.DBUsername, c.DBPassword, c.DBCLIHost, c.DBCLIPort, c.DBDatabase, c.DBCharset)
}
