package config

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// LookupFunc resolves one setting by name, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads configuration from the process environment, applies defaults,
// and validates the result.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads configuration through lookup. Tests pass a map-backed
// lookup instead of mutating the environment.
func LoadFrom(lookup LookupFunc) (*Config, error) {
	cfg := &Config{}

	if err := populate(reflect.ValueOf(cfg).Elem(), lookup); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// MapLookup adapts a map to LookupFunc.
func MapLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

var durationType = reflect.TypeOf(time.Duration(0))

// populate walks nested structs and fills tagged fields.
func populate(v reflect.Value, lookup LookupFunc) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			if err := populate(fv, lookup); err != nil {
				return err
			}
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}

		value := firstSet(lookup, name, field.Tag.Get("envAlt"))
		if value == "" {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", name)
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := assign(fv, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", name, value, err)
		}
	}
	return nil
}

// firstSet returns the first non-blank value among names.
func firstSet(lookup LookupFunc, names ...string) string {
	for _, n := range names {
		if n == "" {
			continue
		}
		if v, ok := lookup(n); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// assign parses value into fv according to its kind.
func assign(fv reflect.Value, value string) error {
	if fv.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		fv.SetInt(int64(d))
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(value)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		fv.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		fv.SetBool(b)
	case reflect.Slice:
		if fv.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", fv.Type().Elem().Kind())
		}
		fv.Set(reflect.ValueOf(splitList(value)))
	default:
		return fmt.Errorf("unsupported field type: %s", fv.Kind())
	}
	return nil
}

// splitList splits a comma-separated list, dropping blanks.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the configuration and reports every failure at once.
func (c *Config) Validate() error {
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if c.Database.URL == "" {
		fail("DATABASE_URL is required")
	}
	if c.Database.MaxConns <= 0 {
		fail("DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		fail("DB_MIN_CONNS must be non-negative")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		fail("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		fail("SERVER_PORT (%d) must be 1-65535", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		fail("SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	if !isIdentifier(c.Import.Table) {
		fail("LEADS_TABLE (%q) must be a plain identifier", c.Import.Table)
	}
	if !isIdentifier(c.Import.ConflictColumn) {
		fail("LEADS_CONFLICT_COLUMN (%q) must be a plain identifier", c.Import.ConflictColumn)
	}
	if c.Import.MaxRows < 0 {
		fail("IMPORT_MAX_ROWS must be non-negative")
	}
	if c.Import.MaxBodyBytes <= 0 {
		fail("IMPORT_MAX_BODY_BYTES must be positive")
	}
	if c.Import.MaxConcurrent <= 0 {
		fail("IMPORT_MAX_CONCURRENT must be positive")
	}
	if c.Import.MaxWaitTime <= 0 {
		fail("IMPORT_MAX_WAIT_TIME must be positive")
	}
	if c.Import.Timeout <= 0 {
		fail("IMPORT_TIMEOUT must be positive")
	}
	if c.Import.PreviewRows < 0 {
		fail("IMPORT_PREVIEW_ROWS must be non-negative")
	}
	if _, err := c.Import.Location(); err != nil {
		fail("IMPORT_TIMEZONE (%q) is not a known zone", c.Import.Timezone)
	}

	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		fail("RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.ImportLimit <= 0 {
		fail("RATE_LIMIT_IMPORT must be positive when rate limiting is enabled")
	}

	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		fail("REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		fail("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		fail("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format)
	}

	if c.Events.AMQPURL != "" {
		if u, err := url.Parse(c.Events.AMQPURL); err != nil || (u.Scheme != "amqp" && u.Scheme != "amqps") {
			fail("AMQP_URL must be an amqp:// or amqps:// URL")
		}
		if c.Events.Exchange == "" {
			fail("AMQP_EXCHANGE is required when AMQP_URL is set")
		}
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		fail("METRICS_PATH (%q) must start with /", c.Metrics.Path)
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// isIdentifier reports whether s is a lowercase SQL identifier that needs
// no quoting.
func isIdentifier(s string) bool {
	if s == "" || len(s) > 63 {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// String renders the config for logging with credentials masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Database.MaxConns, c.Database.MinConns)
	fmt.Fprintf(&b, "Import: {Table: %q, MaxRows: %d, MaxConcurrent: %d, Timeout: %s}, ",
		c.Import.Table, c.Import.MaxRows, c.Import.MaxConcurrent, c.Import.Timeout)
	fmt.Fprintf(&b, "Security: {RequireAPIKey: %v, APIKeys: %d configured}, ",
		c.Security.RequireAPIKey, len(c.Security.APIKeys))
	fmt.Fprintf(&b, "Events: {Enabled: %v, Exchange: %q}, ", c.Events.AMQPURL != "", c.Events.Exchange)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
