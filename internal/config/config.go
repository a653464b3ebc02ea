// Package config loads the service configuration from environment variables.
// Unset variables take defaults; malformed values are errors rather than
// silently falling back, and every problem is reported at once.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMemory   = "memory"
)

// SupportedDrivers lists the accepted DB_DRIVER values.
var SupportedDrivers = []string{DriverSQLite, DriverPostgres, DriverMySQL, DriverMemory}

var (
	versionRE = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

	logLevels = []string{"debug", "info", "warn", "error", "fatal", "panic"}
	ginModes  = []string{"debug", "release", "test"}
)

// AppConfig identifies the running application.
type AppConfig struct {
	Name    string // APP_NAME
	Version string // APP_VERSION, x.y.z
}

// DBConfig selects and configures the record store.
type DBConfig struct {
	Driver string // DB_DRIVER
	DSN    string // DB_DSN, postgres/mysql only
	Path   string // DB_PATH, sqlite only
	Trace  bool   // DB_TRACE attaches the GORM OpenTelemetry plugin
}

// CORSConfig lists the origins allowed to call the API. Empty allows all.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig controls HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig configures trace export.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT, host:port
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE
	ServiceName string  // OTEL_SERVICE_NAME, defaults to APP_NAME when empty
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0,1]
}

// Config is the full service configuration.
type Config struct {
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string

	LogLevel       string
	LogPretty      bool
	SwaggerEnabled bool
	APIBasePath    string
	GzipEnabled    bool

	App AppConfig
	DB  DBConfig

	// RateRPS of 0 disables rate limiting.
	RateRPS   float64
	RateBurst int

	CORS     CORSConfig
	Security SecurityConfig

	// IdempotencyTTL bounds how long an Idempotency-Key replays its book.
	IdempotencyTTL time.Duration

	OTEL OTELConfig
}

// MustLoad is Load for main packages that cannot start without config.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the environment, normalizes the result and validates it.
func Load() (Config, error) {
	var e env
	cfg := Config{
		Port:              e.str("PORT", "8080"),
		ReadTimeout:       e.duration("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: e.duration("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      e.duration("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       e.duration("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    e.integer("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(e.str("GIN_MODE", "release")),

		LogLevel:       strings.ToLower(e.str("LOG_LEVEL", "info")),
		LogPretty:      e.boolean("LOG_PRETTY", false),
		SwaggerEnabled: e.boolean("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(e.str("API_BASE_PATH", "/api/v1")),
		GzipEnabled:    e.boolean("GZIP_ENABLED", true),

		App: AppConfig{
			Name:    e.str("APP_NAME", "book-records"),
			Version: e.str("APP_VERSION", "1.0.0"),
		},
		DB: DBConfig{
			Driver: strings.ToLower(e.str("DB_DRIVER", DriverSQLite)),
			DSN:    e.str("DB_DSN", ""),
			Path:   e.str("DB_PATH", "books.db"),
			Trace:  e.boolean("DB_TRACE", false),
		},

		RateRPS:   e.number("RATE_RPS", 5),
		RateBurst: e.integer("RATE_BURST", 10),

		CORS: CORSConfig{AllowedOrigins: splitCSV(e.str("CORS_ALLOWED_ORIGINS", ""))},
		Security: SecurityConfig{
			EnableHSTS: e.boolean("ENABLE_HSTS", false),
			HSTSMaxAge: e.duration("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: e.duration("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     e.boolean("OTEL_ENABLED", false),
			Endpoint:    e.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    e.boolean("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: e.str("OTEL_SERVICE_NAME", ""),
			SampleRatio: e.number("OTEL_TRACES_SAMPLER_ARG", 1),
		},
	}

	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	if !slices.Contains(ginModes, cfg.GinMode) {
		cfg.GinMode = "release"
	}

	if err := errors.Join(append(e.errs, cfg.Validate())...); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports every invalid setting in c.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(slices.Contains(logLevels, c.LogLevel), "LOG_LEVEL must be one of: %s", strings.Join(logLevels, ", "))
	check(c.Port != "", "PORT must not be empty")
	check(c.ReadTimeout > 0 && c.ReadHeaderTimeout > 0 && c.WriteTimeout > 0 && c.IdleTimeout > 0,
		"timeouts must be positive durations")
	check(c.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0")
	check(c.App.Name != "", "APP_NAME must not be empty")
	check(versionRE.MatchString(c.App.Version), "APP_VERSION must be in format x.y.z")

	switch c.DB.Driver {
	case DriverSQLite:
		check(c.DB.Path != "", "DB_PATH must not be empty")
	case DriverPostgres, DriverMySQL:
		check(c.DB.DSN != "", "DB_DSN must not be empty for %s", c.DB.Driver)
	case DriverMemory:
	default:
		check(false, "DB_DRIVER must be one of: %s", strings.Join(SupportedDrivers, ", "))
	}

	check(c.RateRPS >= 0, "RATE_RPS must be >= 0")
	check(c.RateBurst >= 1, "RATE_BURST must be >= 1")
	check(c.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0")
	check(c.IdempotencyTTL > 0, "IDEMPOTENCY_TTL must be > 0")
	check(c.OTEL.SampleRatio >= 0 && c.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")

	return errors.Join(errs...)
}

// env reads typed variables and collects parse failures.
type env struct {
	errs []error
}

// lookup returns the trimmed value of k; blank counts as unset.
func (e *env) lookup(k string) (string, bool) {
	v, ok := os.LookupEnv(k)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *env) fail(k, v, kind string) {
	e.errs = append(e.errs, fmt.Errorf("%s=%q is not a valid %s", k, v, kind))
}

func (e *env) str(k, def string) string {
	if v, ok := e.lookup(k); ok {
		return v
	}
	return def
}

func (e *env) integer(k string, def int) int {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.fail(k, v, "integer")
		return def
	}
	return i
}

func (e *env) number(k string, def float64) float64 {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(k, v, "number")
		return def
	}
	return f
}

func (e *env) duration(k string, def time.Duration) time.Duration {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(k, v, "duration")
		return def
	}
	return d
}

func (e *env) boolean(k string, def bool) bool {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	e.fail(k, v, "boolean")
	return def
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeBasePath returns p with exactly one leading slash and no trailing
// slash; empty becomes "/".
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
