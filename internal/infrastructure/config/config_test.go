package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"CDASH_APP_ENV":                    os.Getenv("CDASH_APP_ENV"),
		"CDASH_APP_PORT":                   os.Getenv("CDASH_APP_PORT"),
		"CDASH_DATABASE_HOST":              os.Getenv("CDASH_DATABASE_HOST"),
		"CDASH_DATABASE_PASSWORD":          os.Getenv("CDASH_DATABASE_PASSWORD"),
		"CDASH_DATABASE_SSLMODE":           os.Getenv("CDASH_DATABASE_SSLMODE"),
		"CDASH_SYNC_INITIAL_LOOKBACK_DAYS": os.Getenv("CDASH_SYNC_INITIAL_LOOKBACK_DAYS"),
		"CDASH_EBAY_AUTH_TOKEN":            os.Getenv("CDASH_EBAY_AUTH_TOKEN"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "commercedash-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, 90, cfg.Sync.InitialLookbackDays)
		assert.Equal(t, 50, cfg.Sync.MaxPagesIncremental)
		assert.Equal(t, 500, cfg.Sync.MaxPagesHistorical)
		assert.Equal(t, 90, cfg.Ebay.MaxLookbackDays)
		assert.Equal(t, "0", cfg.Ebay.SiteID)
		assert.False(t, cfg.Redis.Enabled())
	})

	t.Run("env vars override defaults", func(t *testing.T) {
		clearEnv()
		os.Setenv("CDASH_APP_PORT", "9090")
		os.Setenv("CDASH_DATABASE_HOST", "db.internal")
		os.Setenv("CDASH_SYNC_INITIAL_LOOKBACK_DAYS", "30")
		os.Setenv("CDASH_EBAY_AUTH_TOKEN", "manual-token")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9090", cfg.App.Port)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, 30, cfg.Sync.InitialLookbackDays)
		assert.Equal(t, "manual-token", cfg.Ebay.AuthToken)
	})

	t.Run("production requires password and ssl", func(t *testing.T) {
		clearEnv()
		os.Setenv("CDASH_APP_ENV", "production")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password")

		os.Setenv("CDASH_DATABASE_PASSWORD", "secret")
		_, err = Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sslmode")

		os.Setenv("CDASH_DATABASE_SSLMODE", "require")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	t.Run("idle conns cannot exceed open conns", func(t *testing.T) {
		cfg := base()
		cfg.Database.MaxIdleConns = 50
		cfg.Database.MaxOpenConns = 10
		assert.Error(t, cfg.validate())
	})

	t.Run("incremental page cap cannot exceed historical cap", func(t *testing.T) {
		cfg := base()
		cfg.Sync.MaxPagesIncremental = 1000
		cfg.Sync.MaxPagesHistorical = 500
		assert.Error(t, cfg.validate())
	})

	t.Run("store without domain rejected", func(t *testing.T) {
		cfg := base()
		cfg.Stores = []StoreConfig{{Name: "acme"}}
		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "acme")
	})

	t.Run("store without name rejected", func(t *testing.T) {
		cfg := base()
		cfg.Stores = []StoreConfig{{Domain: "acme.myshopify.com"}}
		assert.Error(t, cfg.validate())
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "p@ss word",
		DBName:   "commercedash",
		SSLMode:  "disable",
	}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "localhost:5432")
	assert.Contains(t, dsn, "commercedash")
	assert.Contains(t, dsn, "sslmode=disable")
	// Special characters in the password must be escaped
	assert.NotContains(t, dsn, "p@ss word")
}
