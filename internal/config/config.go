// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, storage, grading, quota, scheduling parameters and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "literary-forge")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// AuthConfig defines how bearer tokens are verified.
type AuthConfig struct {
	JWTSecret string // JWT_SECRET (HS256)
	JWTIssuer string // JWT_ISSUER, optional
	DevHeader bool   // AUTH_DEV_HEADER: accept X-User-ID when no token is sent
}

// GraderConfig configures the external grading model and its retry policy.
type GraderConfig struct {
	Backend     string        // anthropic|mock
	APIKey      string        // ANTHROPIC_API_KEY
	Model       string        // ANTHROPIC_MODEL
	BaseURL     string        // ANTHROPIC_BASE_URL, optional
	MaxTokens   int           // GRADER_MAX_TOKENS
	Timeout     time.Duration // per-attempt timeout
	MaxAttempts int           // GRADER_MAX_ATTEMPTS
	BaseDelay   time.Duration // GRADER_BASE_DELAY, doubled per attempt
}

// QuotaConfig configures per-user/per-IP daily submission quota.
type QuotaConfig struct {
	Backend    string // sql|redis|none
	DailyLimit int    // QUOTA_DAILY_LIMIT
	RedisAddr  string // REDIS_ADDR
	RedisDB    int    // REDIS_DB
}

// SRSConfig holds retention scheduler settings.
type SRSConfig struct {
	ParamsFile         string  // SRS_PARAMS_FILE, optional YAML with weights
	TargetRetention    float64 // SRS_TARGET_RETENTION in (0,1)
	MaxIntervalDays    int     // SRS_MAX_INTERVAL_DAYS
	EnableFuzz         bool    // SRS_ENABLE_FUZZ
	GraduatingInterval int     // SRS_GRADUATING_INTERVAL_DAYS
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 60s; must exceed the grading budget
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for API routes

	// Storage
	DBDriver string // sqlite|postgres
	DBPath   string // SQLite path
	DBDSN    string // Postgres DSN

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig
	Auth     AuthConfig

	// Submissions
	DedupWindow     time.Duration // fingerprint recency window
	CleanupInterval time.Duration // how often stale quota rows are purged

	Grader GraderConfig
	Quota  QuotaConfig
	SRS    SRSConfig

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
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DBDriver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBPath:   getenv("DB_PATH", "forge.db"),
		DBDSN:    getenv("DB_DSN", ""),

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
		Auth: AuthConfig{
			JWTSecret: getenv("JWT_SECRET", ""),
			JWTIssuer: getenv("JWT_ISSUER", ""),
			DevHeader: getbool("AUTH_DEV_HEADER", false),
		},

		// Submissions
		DedupWindow:     getdur("DEDUP_WINDOW", 60*time.Second),
		CleanupInterval: getdur("CLEANUP_INTERVAL", time.Hour),

		Grader: GraderConfig{
			Backend:     strings.ToLower(getenv("GRADER_BACKEND", "anthropic")),
			APIKey:      getenv("ANTHROPIC_API_KEY", ""),
			Model:       getenv("ANTHROPIC_MODEL", "claude-sonnet-4-5"),
			BaseURL:     getenv("ANTHROPIC_BASE_URL", ""),
			MaxTokens:   getint("GRADER_MAX_TOKENS", 1024),
			Timeout:     getdur("GRADER_TIMEOUT", 20*time.Second),
			MaxAttempts: getint("GRADER_MAX_ATTEMPTS", 3),
			BaseDelay:   getdur("GRADER_BASE_DELAY", time.Second),
		},
		Quota: QuotaConfig{
			Backend:    strings.ToLower(getenv("QUOTA_BACKEND", "sql")),
			DailyLimit: getint("QUOTA_DAILY_LIMIT", 50),
			RedisAddr:  getenv("REDIS_ADDR", "localhost:6379"),
			RedisDB:    getint("REDIS_DB", 0),
		},
		SRS: SRSConfig{
			ParamsFile:         getenv("SRS_PARAMS_FILE", ""),
			TargetRetention:    getfloat("SRS_TARGET_RETENTION", 0.85),
			MaxIntervalDays:    getint("SRS_MAX_INTERVAL_DAYS", 365),
			EnableFuzz:         getbool("SRS_ENABLE_FUZZ", true),
			GraduatingInterval: getint("SRS_GRADUATING_INTERVAL_DAYS", 3),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "literary-forge"),
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
	switch cfg.DBDriver {
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DBDSN) == "" {
			return cfg, errors.New("DB_DSN is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
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
	if cfg.DedupWindow <= 0 {
		return cfg, errors.New("DEDUP_WINDOW must be > 0")
	}
	if cfg.CleanupInterval <= 0 {
		return cfg, errors.New("CLEANUP_INTERVAL must be > 0")
	}
	switch cfg.Grader.Backend {
	case "mock":
	case "anthropic":
		if strings.TrimSpace(cfg.Grader.APIKey) == "" {
			return cfg, errors.New("ANTHROPIC_API_KEY is required when GRADER_BACKEND=anthropic")
		}
	default:
		return cfg, errors.New("GRADER_BACKEND must be one of: anthropic, mock")
	}
	if cfg.Grader.MaxAttempts < 1 {
		return cfg, errors.New("GRADER_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.Grader.BaseDelay < 0 || cfg.Grader.Timeout <= 0 {
		return cfg, errors.New("GRADER_BASE_DELAY must be >= 0 and GRADER_TIMEOUT > 0")
	}
	if cfg.Grader.MaxTokens <= 0 {
		return cfg, errors.New("GRADER_MAX_TOKENS must be > 0")
	}
	switch cfg.Quota.Backend {
	case "sql", "redis", "none":
	default:
		return cfg, errors.New("QUOTA_BACKEND must be one of: sql, redis, none")
	}
	if cfg.Quota.DailyLimit < 0 {
		return cfg, errors.New("QUOTA_DAILY_LIMIT must be >= 0")
	}
	if cfg.SRS.TargetRetention <= 0 || cfg.SRS.TargetRetention >= 1 {
		return cfg, errors.New("SRS_TARGET_RETENTION must be in (0,1)")
	}
	if cfg.SRS.MaxIntervalDays < 1 {
		return cfg, errors.New("SRS_MAX_INTERVAL_DAYS must be >= 1")
	}
	if cfg.SRS.GraduatingInterval < 1 {
		return cfg, errors.New("SRS_GRADUATING_INTERVAL_DAYS must be >= 1")
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" && !cfg.Auth.DevHeader {
		return cfg, errors.New("JWT_SECRET is required unless AUTH_DEV_HEADER is enabled")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

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
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
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
