package config

import (
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Store      StoreConfig      `yaml:"store"`
	Engine     EngineConfig     `yaml:"engine"`
	Projects   []ProjectConfig  `yaml:"projects"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications. Notifications
// are disabled while the keys are empty.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// Store backends.
const (
	BackendMemory   = "memory"
	BackendDatabase = "database"
)

// StoreConfig selects where resources live. Subscriptions and projects always
// live in the database.
type StoreConfig struct {
	Backend string `yaml:"backend"`
}

// EngineConfig tunes the booking engine.
type EngineConfig struct {
	MaintenanceIntervalMonths int    `yaml:"maintenance_interval_months"`
	RiskThreshold             int    `yaml:"risk_threshold"`
	Timezone                  string `yaml:"timezone"`
}

// ProjectConfig seeds the project registry.
type ProjectConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// UpstreamConfig holds the optional inventory feed poller configuration.
type UpstreamConfig struct {
	Enabled         bool            `yaml:"enabled"`
	IntervalSeconds int             `yaml:"interval_seconds"`
	Interval        time.Duration   `yaml:"-"` // Ignored by YAML parser
	HTTPProxy       string          `yaml:"http_proxy"`
	Request         UpstreamRequest `yaml:"request"`
}

// UpstreamRequest defines the HTTP request for the upstream feed.
type UpstreamRequest struct {
	URL      string            `yaml:"url"`
	Headers  map[string]string `yaml:"headers"`
	PageSize int               `yaml:"pageSize"`
	Payload  map[string]any    `yaml:"payload"`
}

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	// PartialIndexes adds postgres-only partial indexes on the resources table.
	PartialIndexes bool `yaml:"partial_indexes"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)
	if cfg.Database.Driver == "" {
		log.Printf("database.driver is not set; defaulting to %s", DriverSQLite)
		cfg.Database.Driver = DriverSQLite
	}
	if cfg.Database.Driver == DriverSQLite && cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:booking.db?cache=shared"
	}

	cfg.Store.Backend = strings.ToLower(cfg.Store.Backend)
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendDatabase
	}

	if cfg.Engine.MaintenanceIntervalMonths <= 0 {
		cfg.Engine.MaintenanceIntervalMonths = 6
	}
	if cfg.Engine.RiskThreshold <= 0 {
		cfg.Engine.RiskThreshold = 50
	}
	if cfg.Engine.Timezone == "" {
		cfg.Engine.Timezone = "UTC"
	}

	if cfg.Upstream.IntervalSeconds <= 0 {
		cfg.Upstream.IntervalSeconds = 300
	}
	cfg.Upstream.Interval = time.Duration(cfg.Upstream.IntervalSeconds) * time.Second

	if cfg.Upstream.Request.PageSize <= 0 {
		cfg.Upstream.Request.PageSize = 100
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
}

// Location loads the configured engine timezone, falling back to UTC.
func (e EngineConfig) Location() *time.Location {
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		log.Printf("Warning: invalid timezone %q: %v. Using UTC.", e.Timezone, err)
		return time.UTC
	}
	return loc
}
