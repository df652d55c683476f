// Package config provides centralized configuration for the server and the
// command-line tool. Settings come from environment variables (optionally
// seeded from a .env file) with defaults, and are validated on startup.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Import   ImportConfig
	Export   ExportConfig
	UI       UIConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to. Loopback by default: the register is
	// a single-user tool.
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`

	// RequestTimeout bounds every non-websocket request.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`

	// RateLimit is the number of API requests allowed per client IP per
	// minute. 0 disables the limit.
	RateLimit int `env:"SERVER_RATE_LIMIT" default:"300"`
}

// Storage backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// StorageConfig selects and tunes the durable slot.
type StorageConfig struct {
	// Backend is one of file, sqlite, postgres, memory.
	Backend string `env:"STORAGE_BACKEND" default:"file"`

	// Key names the slot. It is the row key for the database backends.
	Key string `env:"STORAGE_KEY" default:"tamween_customers"`

	// Path is the slot file for the file backend.
	Path string `env:"STORAGE_PATH" default:"data/tamween.json"`

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `env:"STORAGE_SQLITE_PATH" default:"data/tamween.db"`

	// DatabaseURL is the PostgreSQL connection string, required for the
	// postgres backend. DB_URL is accepted as well.
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns caps the postgres pool.
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MaxBytes is the largest value the slot accepts; 0 disables the limit.
	MaxBytes int64 `env:"STORAGE_MAX_BYTES" default:"5242880"`

	// Timeout bounds a single slot read or write.
	Timeout time.Duration `env:"STORAGE_TIMEOUT" default:"5s"`
}

// ImportConfig holds backup restore settings.
type ImportConfig struct {
	// MaxFileSize is the largest accepted import file in bytes (default: 10MB).
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"10485760"`

	// MaxConcurrent bounds imports decoding at the same time.
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"2"`

	// MaxWait is how long an import waits for a free slot.
	MaxWait time.Duration `env:"IMPORT_MAX_WAIT" default:"10s"`
}

// ExportConfig holds tabular export settings.
type ExportConfig struct {
	// Locale drives the creation date format and the CSV header language.
	Locale string `env:"EXPORT_LOCALE" default:"ar-EG"`

	// Timezone is an IANA name or "Local".
	Timezone string `env:"EXPORT_TIMEZONE" default:"Local"`
}

// Location resolves Timezone.
func (c *ExportConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// UIConfig holds presentation settings.
type UIConfig struct {
	// Lang is the default language of user-facing messages: ar or en.
	Lang string `env:"UI_LANG" default:"ar"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP / X-Forwarded-For headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables the Content-Security-Policy header.
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json.
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
