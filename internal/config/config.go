package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Session   SessionConfig   `yaml:"session"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
	// Path is the SQLite file used by the sqlite driver.
	Path string `yaml:"path"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// SessionConfig tunes the active-session indicator poller.
type SessionConfig struct {
	PollInterval     time.Duration `yaml:"poll_interval"`
	FailureThreshold int           `yaml:"failure_threshold"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix SPLITLOG_ and underscore-separated paths:
//
//	SPLITLOG_SERVER_HOST, SPLITLOG_SERVER_PORT,
//	SPLITLOG_DB_DRIVER, SPLITLOG_DB_PATH,
//	SPLITLOG_DB_HOST, SPLITLOG_DB_PORT, SPLITLOG_DB_NAME,
//	SPLITLOG_DB_USER, SPLITLOG_DB_PASSWORD, SPLITLOG_DB_SSLMODE,
//	SPLITLOG_AUTH_API_KEY,
//	SPLITLOG_TAILSCALE_ENABLED, SPLITLOG_TAILSCALE_HOSTNAME, SPLITLOG_TAILSCALE_STATE_DIR,
//	SPLITLOG_SESSION_POLL_INTERVAL, SPLITLOG_SESSION_FAILURE_THRESHOLD
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: DriverPostgres},
		Tailscale: TailscaleConfig{
			Hostname: "splitlog",
			StateDir: "tsnet-state",
		},
		Session: SessionConfig{
			PollInterval:     1500 * time.Millisecond,
			FailureThreshold: 3,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString("SPLITLOG_SERVER_HOST", &cfg.Server.Host)
	setInt("SPLITLOG_SERVER_PORT", &cfg.Server.Port)

	setString("SPLITLOG_DB_DRIVER", &cfg.Database.Driver)
	setString("SPLITLOG_DB_PATH", &cfg.Database.Path)
	setString("SPLITLOG_DB_HOST", &cfg.Database.Host)
	setInt("SPLITLOG_DB_PORT", &cfg.Database.Port)
	setString("SPLITLOG_DB_NAME", &cfg.Database.Name)
	setString("SPLITLOG_DB_USER", &cfg.Database.User)
	setString("SPLITLOG_DB_PASSWORD", &cfg.Database.Password)
	setString("SPLITLOG_DB_SSLMODE", &cfg.Database.SSLMode)

	setString("SPLITLOG_AUTH_API_KEY", &cfg.Auth.APIKey)

	if v := os.Getenv("SPLITLOG_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	setString("SPLITLOG_TAILSCALE_HOSTNAME", &cfg.Tailscale.Hostname)
	setString("SPLITLOG_TAILSCALE_STATE_DIR", &cfg.Tailscale.StateDir)

	if v := os.Getenv("SPLITLOG_SESSION_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Session.PollInterval = d
		}
	}
	setInt("SPLITLOG_SESSION_FAILURE_THRESHOLD", &cfg.Session.FailureThreshold)
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	if c.Session.PollInterval <= 0 {
		return fmt.Errorf("session.poll_interval must be positive")
	}
	if c.Session.FailureThreshold < 1 {
		return fmt.Errorf("session.failure_threshold must be at least 1")
	}
	return nil
}
