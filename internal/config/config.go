// Package config loads the service configuration from environment
// variables with defaults, and validates it on startup so misconfiguration
// fails fast.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Events   EventsConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds the wait for running imports on SIGTERM.
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for non-import routes.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// URL accepts DATABASE_URL or DB_URL.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ImportConfig holds lead import settings.
type ImportConfig struct {
	// Table is the leads table imports write to.
	Table string `env:"LEADS_TABLE" default:"leads"`

	// ConflictColumn carries the unique constraint used for upserts.
	ConflictColumn string `env:"LEADS_CONFLICT_COLUMN" default:"email"`

	// MaxRows caps rows per request (0 disables the cap).
	MaxRows int `env:"IMPORT_MAX_ROWS" default:"50000"`

	// MaxBodyBytes caps JSON bodies and uploaded spreadsheets (default: 32MiB).
	MaxBodyBytes int64 `env:"IMPORT_MAX_BODY_BYTES" default:"33554432"`

	// MaxConcurrent is the number of imports allowed to run at once.
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"1"`

	// MaxWaitTime is how long a request waits for an import slot.
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds one import, transaction included.
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"5m"`

	// Timezone is the IANA zone free-form dates are read in.
	Timezone string `env:"IMPORT_TIMEZONE" default:"Local"`

	// PreviewRows is how many sample rows the preview endpoint returns.
	PreviewRows int `env:"IMPORT_PREVIEW_ROWS" default:"5"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ImportLimit is requests per minute for import endpoints.
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// SecurityConfig holds authentication and CORS settings.
type SecurityConfig struct {
	// RequireAPIKey enables X-API-Key authentication on /api routes.
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys.
	APIKeys []string `env:"API_KEYS"`

	// CORSAllowedOrigins is a comma-separated list; empty disables CORS.
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`

	// TrustedProxies lists proxy CIDRs whose X-Real-IP and X-Forwarded-For
	// headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is text or json.
	Format string `env:"LOG_FORMAT" default:"text"`
}

// EventsConfig holds the import event publisher settings. An empty URL
// disables publishing.
type EventsConfig struct {
	AMQPURL    string `env:"AMQP_URL"`
	Exchange   string `env:"AMQP_EXCHANGE" default:"crm.events"`
	RoutingKey string `env:"AMQP_ROUTING_KEY" default:"leads.imported"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" default:"true"`
	Path    string `env:"METRICS_PATH" default:"/metrics"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Location resolves Timezone. "Local" and "" mean the process zone.
func (c *ImportConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}
