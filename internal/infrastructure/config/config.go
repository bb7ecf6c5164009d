package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Sync      SyncConfig
	Scheduler SchedulerConfig
	Ebay      EbayConfig
	Stores    []StoreConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings. Redis is optional; when no
// host is configured the run lock falls back to an in-process guard.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Enabled reports whether a Redis endpoint is configured.
func (r *RedisConfig) Enabled() bool {
	return r.Host != ""
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// SyncConfig holds the pipeline-wide fetch settings.
type SyncConfig struct {
	// InitialLookbackDays is the historical window length for full syncs.
	// Each platform caps it at its own maximum lookback.
	InitialLookbackDays int
	// PageDelay is the minimum delay between page requests to one upstream.
	PageDelay time.Duration
	// MaxPagesIncremental bounds page walks on daily syncs.
	MaxPagesIncremental int
	// MaxPagesHistorical bounds page walks on full syncs.
	MaxPagesHistorical int
	// RequestTimeout is the per-request HTTP timeout for upstream calls.
	RequestTimeout time.Duration
	// UpsertWorkers bounds concurrent upserts within one entity batch.
	UpsertWorkers int
}

// SchedulerConfig holds the daily sync trigger configuration.
type SchedulerConfig struct {
	Enabled    bool
	Interval   time.Duration
	RunTimeout time.Duration
}

// EbayConfig holds the Trading-API platform credentials. Either AuthToken
// (manually issued, long-lived) or RefreshToken must be present for the
// platform to sync; with neither, client credentials are attempted and the
// platform may still be rejected by user-scoped APIs.
type EbayConfig struct {
	AppID        string
	CertID       string
	AuthToken    string
	RefreshToken string
	APIURL       string
	TokenURL     string
	SiteID       string
	// MaxLookbackDays is the platform's maximum order history window.
	MaxLookbackDays int
}

// StoreConfig holds one REST-platform store: a domain plus a static
// per-store access token.
type StoreConfig struct {
	Name        string `mapstructure:"name"`
	Domain      string `mapstructure:"domain"`
	AccessToken string `mapstructure:"access_token"`
	APIVersion  string `mapstructure:"api_version"`
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CDASH_ prefix (e.g. CDASH_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("CDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),
			IdleTimeout:  v.GetDuration("http.idle_timeout"),
		},
		Sync: SyncConfig{
			InitialLookbackDays: v.GetInt("sync.initial_lookback_days"),
			PageDelay:           v.GetDuration("sync.page_delay"),
			MaxPagesIncremental: v.GetInt("sync.max_pages_incremental"),
			MaxPagesHistorical:  v.GetInt("sync.max_pages_historical"),
			RequestTimeout:      v.GetDuration("sync.request_timeout"),
			UpsertWorkers:       v.GetInt("sync.upsert_workers"),
		},
		Scheduler: SchedulerConfig{
			Enabled:    v.GetBool("scheduler.enabled"),
			Interval:   v.GetDuration("scheduler.interval"),
			RunTimeout: v.GetDuration("scheduler.run_timeout"),
		},
		Ebay: EbayConfig{
			AppID:           v.GetString("ebay.app_id"),
			CertID:          v.GetString("ebay.cert_id"),
			AuthToken:       v.GetString("ebay.auth_token"),
			RefreshToken:    v.GetString("ebay.refresh_token"),
			APIURL:          v.GetString("ebay.api_url"),
			TokenURL:        v.GetString("ebay.token_url"),
			SiteID:          v.GetString("ebay.site_id"),
			MaxLookbackDays: v.GetInt("ebay.max_lookback_days"),
		},
	}

	// Store list has nested structure, viper's GetX accessors don't cover it
	if err := v.UnmarshalKey("stores", &cfg.Stores); err != nil {
		return nil, fmt.Errorf("error parsing stores config: %w", err)
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "commercedash-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "commercedash"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
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
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.Sync.InitialLookbackDays == 0 {
		cfg.Sync.InitialLookbackDays = 90
	}
	if cfg.Sync.PageDelay == 0 {
		cfg.Sync.PageDelay = 500 * time.Millisecond
	}
	if cfg.Sync.MaxPagesIncremental == 0 {
		cfg.Sync.MaxPagesIncremental = 50
	}
	if cfg.Sync.MaxPagesHistorical == 0 {
		cfg.Sync.MaxPagesHistorical = 500
	}
	if cfg.Sync.RequestTimeout == 0 {
		cfg.Sync.RequestTimeout = 30 * time.Second
	}
	if cfg.Sync.UpsertWorkers == 0 {
		cfg.Sync.UpsertWorkers = 4
	}
	if cfg.Scheduler.Interval == 0 {
		cfg.Scheduler.Interval = 24 * time.Hour
	}
	if cfg.Scheduler.RunTimeout == 0 {
		cfg.Scheduler.RunTimeout = 30 * time.Minute
	}
	if cfg.Ebay.APIURL == "" {
		cfg.Ebay.APIURL = "https://api.ebay.com/ws/api.dll"
	}
	if cfg.Ebay.TokenURL == "" {
		cfg.Ebay.TokenURL = "https://api.ebay.com/identity/v1/oauth2/token"
	}
	if cfg.Ebay.SiteID == "" {
		cfg.Ebay.SiteID = "0"
	}
	if cfg.Ebay.MaxLookbackDays == 0 {
		cfg.Ebay.MaxLookbackDays = 90
	}
	for i := range cfg.Stores {
		if cfg.Stores[i].APIVersion == "" {
			cfg.Stores[i].APIVersion = "2024-01"
		}
	}
}

// validate checks the configuration for inconsistent values
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Sync.MaxPagesIncremental > c.Sync.MaxPagesHistorical {
		return fmt.Errorf("sync.max_pages_incremental (%d) cannot exceed sync.max_pages_historical (%d)",
			c.Sync.MaxPagesIncremental, c.Sync.MaxPagesHistorical)
	}

	for _, store := range c.Stores {
		if store.Name == "" {
			return fmt.Errorf("stores: every store needs a name")
		}
		if store.Domain == "" {
			return fmt.Errorf("stores: store %q has no domain", store.Name)
		}
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
