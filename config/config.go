package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Session  SessionConfig
	Redis    RedisConfig
	Admin    AdminConfig
	Log      LogConfig
	HTTP     HTTPConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port int
}

// DatabaseConfig holds the SQLite settings
type DatabaseConfig struct {
	Path string // file path or ":memory:"
}

// SessionConfig holds login session settings
type SessionConfig struct {
	Secret       string
	TTL          time.Duration
	Issuer       string
	CookieName   string
	CookieSecure bool
}

// RedisConfig holds the revocation list connection. An empty Addr keeps
// revocations in process memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AdminConfig holds the bootstrap account settings
type AdminConfig struct {
	BootstrapPassword string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
	MaxBodySize      int64
	CORSAllowOrigins []string
}

// insecureSecret is the development fallback for the session secret.
const insecureSecret = "debug_test"

// Load loads configuration from a TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with INVENTORY_ prefix (e.g., INVENTORY_DATABASE_PATH)
// 2. The config file (path, or config.toml in the working directory when path is empty)
// 3. Built-in defaults
//
// INVENTORY_DB_KEY is accepted as the session secret for older deployments.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("INVENTORY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("session.secret", "INVENTORY_SESSION_SECRET", "INVENTORY_DB_KEY"); err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetInt("app.port"),
		},
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
		Session: SessionConfig{
			Secret:       v.GetString("session.secret"),
			TTL:          v.GetDuration("session.ttl"),
			Issuer:       v.GetString("session.issuer"),
			CookieName:   v.GetString("session.cookie_name"),
			CookieSecure: v.GetBool("session.cookie_secure"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Admin: AdminConfig{
			BootstrapPassword: v.GetString("admin.bootstrap_password"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "inventory-ledger"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == 0 {
		cfg.App.Port = 8080
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "inventory.db"
	}
	if cfg.Session.Secret == "" {
		cfg.Session.Secret = insecureSecret
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 12 * time.Hour
	}
	if cfg.Session.Issuer == "" {
		cfg.Session.Issuer = cfg.App.Name
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = "session"
	}
	if cfg.Admin.BootstrapPassword == "" {
		cfg.Admin.BootstrapPassword = "admin"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("app.port must be between 1 and 65535, got %d", c.App.Port)
	}
	if c.Session.TTL < time.Minute {
		return fmt.Errorf("session.ttl must be at least one minute, got %s", c.Session.TTL)
	}

	if c.App.Env == "production" {
		if c.Session.Secret == insecureSecret {
			return fmt.Errorf("session.secret is required in production")
		}
		if len(c.Session.Secret) < 32 {
			return fmt.Errorf("session.secret must be at least 32 characters in production")
		}
		if !c.Session.CookieSecure {
			return fmt.Errorf("session.cookie_secure must be true in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}
	return nil
}

// UsesInsecureSecret reports whether the development session secret is in use.
func (c *Config) UsesInsecureSecret() bool {
	return c.Session.Secret == insecureSecret
}
