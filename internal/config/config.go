// Package config provides centralized configuration management for the table
// engine. It loads configuration from environment variables with sensible
// defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Store backends.
const (
	StoreYAML     = "yaml"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server      ServerConfig
	Store       StoreConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	Format      FormatConfig
	Performance PerformanceConfig
	Rate        RateLimitConfig
	Security    SecurityConfig
	Logging     LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`

	// MaxBodyBytes caps request bodies, which carry row data (default: 8MB)
	MaxBodyBytes int64 `env:"SERVER_MAX_BODY_BYTES" default:"8388608"`
}

// StoreConfig selects where table config documents live.
type StoreConfig struct {
	// Backend is yaml, postgres or memory (default: yaml)
	Backend string `env:"TABLE_STORE_BACKEND" default:"yaml"`

	// ConfigDir holds <table_type>.yaml files for the yaml backend
	ConfigDir string `env:"TABLE_CONFIG_DIR" default:"./configs"`

	// Watch invalidates cached configs when files in ConfigDir change
	Watch bool `env:"TABLE_STORE_WATCH" default:"true"`

	// History records every saved document (postgres backend only)
	History bool `env:"TABLE_STORE_HISTORY" default:"true"`
}

// DatabaseConfig holds database connection settings. URL is only required
// for the postgres store backend.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// CacheConfig holds config cache settings.
type CacheConfig struct {
	// Backend is memory or redis (default: memory)
	Backend string `env:"CACHE_BACKEND" default:"memory"`

	// RedisURL is required for the redis backend
	RedisURL string `env:"REDIS_URL"`

	// RedisPrefix namespaces keys in a shared Redis
	RedisPrefix string `env:"REDIS_PREFIX" default:"facilitytables:"`

	// Size is the entry limit of the memory backend (default: 1024)
	Size int `env:"CACHE_SIZE" default:"1024"`

	ConfigTTL   time.Duration `env:"CACHE_CONFIG_TTL" default:"300s"`
	CompiledTTL time.Duration `env:"CACHE_COMPILED_TTL" default:"3600s"`

	// WarmInterval re-primes every registered config; 0 disables warming
	WarmInterval time.Duration `env:"CACHE_WARM_INTERVAL" default:"4m"`
}

// FormatConfig holds cell formatting settings.
type FormatConfig struct {
	EmptyMarker   string `env:"FORMAT_EMPTY_MARKER" default:"未設定"`
	DateLayout    string `env:"FORMAT_DATE_LAYOUT" default:"2006年01月02日"`
	Locale        string `env:"FORMAT_LOCALE" default:"ja"`
	PhonePattern  string `env:"FORMAT_PHONE_PATTERN"`
	TextMaxLength int    `env:"FORMAT_TEXT_MAX_LENGTH" default:"0"`
}

// PerformanceConfig holds render strategy thresholds.
type PerformanceConfig struct {
	LazyThreshold    int   `env:"PERF_LAZY_THRESHOLD" default:"50"`
	PaginateMax      int   `env:"PERF_PAGINATE_MAX" default:"100"`
	VirtualThreshold int   `env:"PERF_VIRTUAL_THRESHOLD" default:"200"`
	MemoryBudget     int64 `env:"PERF_MEMORY_BUDGET" default:"134217728"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 300)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`

	// MutationLimit is requests per minute for column mutation endpoints (default: 30)
	MutationLimit int `env:"RATE_LIMIT_MUTATIONS" default:"30"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey guards column mutations and cache clearing
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted X-API-Key values
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text, json or pretty (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
