// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, the datastore, KPI policy, rate limiting,
// and observability.
//
// A .env file in the working directory, when present, is loaded first.
// Variables already set in the environment take precedence over it.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"github.com/tbourn/hl7-monitor-backend/internal/sysutil"
	"github.com/tbourn/hl7-monitor-backend/internal/utils"
)

// MemoryDBPath selects the process-lifetime in-memory store.
const MemoryDBPath = ":memory:"

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "hl7-monitor-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// KPIConfig holds the critical-error policy and trend sampling settings.
type KPIConfig struct {
	CriticalMinCount      int           // CRITICAL_MIN_COUNT, 0 disables the repeat rule
	CriticalErrorPatterns []string      // CRITICAL_ERROR_PATTERNS, comma-separated substrings
	CriticalEvents        []string      // CRITICAL_EVENTS, comma-separated event names
	TrendSamples          int           // KPI_TREND_SAMPLES
	SampleInterval        time.Duration // KPI_SAMPLE_INTERVAL, 0 disables the sampler
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Store
	DBPath          string        // SQLite path, MemoryDBPath when unset
	SeedFixtures    bool          // load the demo data set into an empty store
	QueryTimeout    time.Duration // per service call
	CollationLocale string        // BCP 47 tag for patient name ordering

	// KPIs
	KPI KPIConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0, 0 disables)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid
	PurgeInterval  time.Duration // IDEMPOTENCY_PURGE_INTERVAL, 0 disables the purge

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Store
		DBPath:          getenv("DB_PATH", MemoryDBPath),
		SeedFixtures:    getbool("SEED_FIXTURES", true),
		QueryTimeout:    getdur("QUERY_TIMEOUT", 5*time.Second),
		CollationLocale: getenv("COLLATION_LOCALE", "en"),

		// KPIs
		KPI: KPIConfig{
			CriticalMinCount:      getint("CRITICAL_MIN_COUNT", 3),
			CriticalErrorPatterns: splitCSV(getenv("CRITICAL_ERROR_PATTERNS", "timeout,database")),
			CriticalEvents:        splitCSV(getenv("CRITICAL_EVENTS", "")),
			TrendSamples:          getint("KPI_TREND_SAMPLES", 7),
			SampleInterval:        getdur("KPI_SAMPLE_INTERVAL", time.Minute),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),
		PurgeInterval:  getdur("IDEMPOTENCY_PURGE_INTERVAL", 10*time.Minute),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: sysutil.FirstNonEmpty(os.Getenv("OTEL_SERVICE_NAME"), os.Getenv("SERVICE_NAME"), "hl7-monitor-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.DBPath = strings.TrimSpace(cfg.DBPath); cfg.DBPath == "" {
		cfg.DBPath = MemoryDBPath
	}
	if cfg.QueryTimeout <= 0 {
		return cfg, errors.New("QUERY_TIMEOUT must be > 0")
	}
	if _, err := language.Parse(cfg.CollationLocale); err != nil {
		return cfg, errors.New("COLLATION_LOCALE must be a BCP 47 language tag")
	}
	if cfg.KPI.CriticalMinCount < 0 {
		return cfg, errors.New("CRITICAL_MIN_COUNT must be >= 0")
	}
	if cfg.KPI.TrendSamples < 1 || cfg.KPI.TrendSamples > 100 {
		return cfg, errors.New("KPI_TREND_SAMPLES must be between 1 and 100")
	}
	if cfg.KPI.SampleInterval < 0 {
		return cfg, errors.New("KPI_SAMPLE_INTERVAL must be >= 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.PurgeInterval < 0 {
		return cfg, errors.New("IDEMPOTENCY_PURGE_INTERVAL must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// Locale returns the parsed collation locale, English when unset or invalid.
func (c Config) Locale() language.Tag {
	if t, err := language.Parse(c.CollationLocale); err == nil {
		return t
	}
	return language.English
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	v, _ := os.LookupEnv(k)
	return utils.AtoiDefault(strings.TrimSpace(v), def)
}

func getbool(k string, def bool) bool {
	v, ok := os.LookupEnv(k)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	if sysutil.IsTruthy(v) {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "no", "n", "off":
		return false
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
