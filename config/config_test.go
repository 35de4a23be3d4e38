package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Run from an empty directory so a stray config.toml is not picked up.
	t.Chdir(t.TempDir())

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, "inventory-ledger", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, 8080, cfg.App.Port)
		assert.Equal(t, "inventory.db", cfg.Database.Path)
		assert.Equal(t, 12*time.Hour, cfg.Session.TTL)
		assert.Equal(t, "session", cfg.Session.CookieName)
		assert.Equal(t, "admin", cfg.Admin.BootstrapPassword)
		assert.Equal(t, "", cfg.Redis.Addr)
		assert.True(t, cfg.UsesInsecureSecret())
	})

	t.Run("env vars override defaults", func(t *testing.T) {
		t.Setenv("INVENTORY_APP_PORT", "9090")
		t.Setenv("INVENTORY_DATABASE_PATH", ":memory:")
		t.Setenv("INVENTORY_SESSION_TTL", "30m")
		t.Setenv("INVENTORY_REDIS_ADDR", "localhost:6379")

		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.App.Port)
		assert.Equal(t, ":memory:", cfg.Database.Path)
		assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	})

	t.Run("legacy secret variable", func(t *testing.T) {
		t.Setenv("INVENTORY_DB_KEY", "from-legacy-variable")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "from-legacy-variable", cfg.Session.Secret)
		assert.False(t, cfg.UsesInsecureSecret())
	})

	t.Run("config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "inventory.toml")
		content := "[app]\nport = 7000\n\n[database]\npath = \"/var/lib/inventory.db\"\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 7000, cfg.App.Port)
		assert.Equal(t, "/var/lib/inventory.db", cfg.Database.Path)
	})

	t.Run("explicit config file must exist", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.App.Port = 70000 }, "app.port"},
		{"short session", func(c *Config) { c.Session.TTL = time.Second }, "session.ttl"},
		{"production needs a secret", func(c *Config) {
			c.App.Env = "production"
			c.Session.CookieSecure = true
		}, "session.secret is required"},
		{"production secret too short", func(c *Config) {
			c.App.Env = "production"
			c.Session.Secret = "short"
			c.Session.CookieSecure = true
		}, "at least 32 characters"},
		{"production cookie must be secure", func(c *Config) {
			c.App.Env = "production"
			c.Session.Secret = "0123456789abcdef0123456789abcdef"
		}, "cookie_secure"},
		{"production rejects wildcard cors", func(c *Config) {
			c.App.Env = "production"
			c.Session.Secret = "0123456789abcdef0123456789abcdef"
			c.Session.CookieSecure = true
			c.HTTP.CORSAllowOrigins = []string{"*"}
		}, "cors_allow_origins"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
