package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_DefaultsAndOverrides(t *testing.T) {
	// Server timeouts / sizes (valid)
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // will normalize to "release"

	// Logging
	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("API_BASE_PATH", "api/v1/") // -> "/api/v1"

	// Storage
	t.Setenv("DB_DRIVER", "POSTGRES")
	t.Setenv("DB_DSN", "host=db user=forge")

	// Rate limiting (use invalids for parse to fall back to defaults)
	t.Setenv("RATE_RPS", "x")      // -> default 5.0
	t.Setenv("RATE_BURST", "nope") // -> default 10

	// Web protection
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")
	t.Setenv("JWT_ISSUER", "forge")

	// Submissions
	t.Setenv("DEDUP_WINDOW", "90s")
	t.Setenv("CLEANUP_INTERVAL", "30m")

	// Grader / quota / srs
	t.Setenv("GRADER_BACKEND", "Mock")
	t.Setenv("GRADER_MAX_ATTEMPTS", "5")
	t.Setenv("GRADER_BASE_DELAY", "250ms")
	t.Setenv("QUOTA_BACKEND", "redis")
	t.Setenv("QUOTA_DAILY_LIMIT", "7")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("SRS_TARGET_RETENTION", "0.9")
	t.Setenv("SRS_MAX_INTERVAL_DAYS", "180")
	t.Setenv("SRS_ENABLE_FUZZ", "off")

	// OTEL
	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty || cfg.APIBasePath != "/api/v1" {
		t.Fatalf("logging unexpected: %+v", cfg)
	}
	if cfg.DBDriver != "postgres" || cfg.DBDSN != "host=db user=forge" {
		t.Fatalf("storage unexpected: %+v", cfg)
	}
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Fatalf("rate limiting unexpected: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security unexpected: %+v", cfg.Security)
	}
	if cfg.Auth.JWTIssuer != "forge" {
		t.Fatalf("auth unexpected: %+v", cfg.Auth)
	}
	if cfg.DedupWindow != 90*time.Second || cfg.CleanupInterval != 30*time.Minute {
		t.Fatalf("submission settings unexpected: %v %v", cfg.DedupWindow, cfg.CleanupInterval)
	}
	if cfg.Grader.Backend != "mock" || cfg.Grader.MaxAttempts != 5 || cfg.Grader.BaseDelay != 250*time.Millisecond {
		t.Fatalf("grader unexpected: %+v", cfg.Grader)
	}
	if cfg.Quota.Backend != "redis" || cfg.Quota.DailyLimit != 7 || cfg.Quota.RedisAddr != "cache:6379" {
		t.Fatalf("quota unexpected: %+v", cfg.Quota)
	}
	if cfg.SRS.TargetRetention != 0.9 || cfg.SRS.MaxIntervalDays != 180 || cfg.SRS.EnableFuzz {
		t.Fatalf("srs unexpected: %+v", cfg.SRS)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

// --- Load validations (each case triggers exactly one validation error) ---

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"invalid LOG_LEVEL", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"empty PORT via spaces", map[string]string{"PORT": "   "}, "PORT must not be empty"},
		{"non-positive timeouts", map[string]string{"READ_TIMEOUT": "0s"}, "timeouts must be positive"},
		{"max header bytes <= 0", map[string]string{"MAX_HEADER_BYTES": "0"}, "MAX_HEADER_BYTES"},
		{"empty DB_PATH", map[string]string{"DB_PATH": "   "}, "DB_PATH must not be empty"},
		{"postgres without dsn", map[string]string{"DB_DRIVER": "postgres"}, "DB_DSN"},
		{"unknown driver", map[string]string{"DB_DRIVER": "mysql"}, "DB_DRIVER"},
		{"rate rps negative", map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{"rate burst < 1", map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{"hsts max age negative", map[string]string{"HSTS_MAX_AGE": "-1s"}, "HSTS_MAX_AGE"},
		{"dedup window non-positive", map[string]string{"DEDUP_WINDOW": "0s"}, "DEDUP_WINDOW"},
		{"cleanup interval non-positive", map[string]string{"CLEANUP_INTERVAL": "0s"}, "CLEANUP_INTERVAL"},
		{"anthropic without key", map[string]string{"ANTHROPIC_API_KEY": " "}, "ANTHROPIC_API_KEY"},
		{"unknown grader", map[string]string{"GRADER_BACKEND": "openai"}, "GRADER_BACKEND"},
		{"zero attempts", map[string]string{"GRADER_MAX_ATTEMPTS": "0"}, "GRADER_MAX_ATTEMPTS"},
		{"unknown quota backend", map[string]string{"QUOTA_BACKEND": "memcached"}, "QUOTA_BACKEND"},
		{"negative quota", map[string]string{"QUOTA_DAILY_LIMIT": "-2"}, "QUOTA_DAILY_LIMIT"},
		{"retention out of range", map[string]string{"SRS_TARGET_RETENTION": "1"}, "SRS_TARGET_RETENTION"},
		{"max interval < 1", map[string]string{"SRS_MAX_INTERVAL_DAYS": "0"}, "SRS_MAX_INTERVAL_DAYS"},
		{"graduating interval < 1", map[string]string{"SRS_GRADUATING_INTERVAL_DAYS": "0"}, "SRS_GRADUATING_INTERVAL_DAYS"},
		{"no jwt secret", map[string]string{"JWT_SECRET": " "}, "JWT_SECRET"},
		{"otel sample ratio out of range", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil || !containsErr(err, tc.want) {
				t.Fatalf("expected %s validation error, got: %v", tc.want, err)
			}
		})
	}
}

func TestLoad_DevHeaderAllowsMissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", " ")
	t.Setenv("AUTH_DEV_HEADER", "true")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.Auth.DevHeader {
		t.Fatalf("expected DevHeader=true")
	}
}

// --- helpers ---

func TestHelpers_getenv(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	if getenv("X_EMPTY", "d") != "d" {
		t.Fatalf("getenv should fall back to default on empty var")
	}
	t.Setenv("X_SET", "val")
	if getenv("X_SET", "d") != "val" {
		t.Fatalf("getenv should read set value")
	}
}

func TestHelpers_getfloat_getint_getdur(t *testing.T) {
	t.Setenv("F_VALID", "3.14")
	if getfloat("F_VALID", 0) != 3.14 {
		t.Fatalf("getfloat parse failed")
	}
	t.Setenv("F_BAD", "nope")
	if getfloat("F_BAD", 1.23) != 1.23 {
		t.Fatalf("getfloat default on bad parse failed")
	}

	t.Setenv("I_VALID", "42")
	if getint("I_VALID", 0) != 42 {
		t.Fatalf("getint parse failed")
	}
	t.Setenv("I_BAD", "x")
	if getint("I_BAD", 7) != 7 {
		t.Fatalf("getint default on bad parse failed")
	}

	t.Setenv("D_VALID", "150ms")
	if getdur("D_VALID", time.Second) != 150*time.Millisecond {
		t.Fatalf("getdur parse failed")
	}
	t.Setenv("D_BAD", "zzz")
	if getdur("D_BAD", 2*time.Second) != 2*time.Second {
		t.Fatalf("getdur default on bad parse failed")
	}
}

func TestHelpers_getbool(t *testing.T) {
	trueVals := []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"}
	for i, v := range trueVals {
		k := "B_T_" + config_strconv(i)
		t.Setenv(k, v)
		if !getbool(k, false) {
			t.Fatalf("getbool(%q) = false; want true", v)
		}
	}
	falseVals := []string{"0", "false", "FALSE", " no ", "N", "off", "Off"}
	for i, v := range falseVals {
		k := "B_F_" + config_strconv(i)
		t.Setenv(k, v)
		if getbool(k, true) {
			t.Fatalf("getbool(%q) = true; want false", v)
		}
	}
	t.Setenv("B_EMPTY", "")
	if !getbool("B_EMPTY", true) || getbool("B_EMPTY", false) {
		t.Fatalf("getbool default behavior unexpected")
	}
}

func TestHelpers_splitCSV_and_normalizeBasePath(t *testing.T) {
	if out := splitCSV(""); out != nil {
		t.Fatalf("splitCSV empty should return nil")
	}
	in := " a, ,b ,  c  ,"
	want := []string{"a", "b", "c"}
	if got := splitCSV(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("splitCSV mismatch: got %#v want %#v", got, want)
	}

	if normalizeBasePath("") != "/" {
		t.Fatalf("normalizeBasePath empty -> '/' failed")
	}
	if normalizeBasePath("v1") != "/v1" {
		t.Fatalf("normalizeBasePath missing leading slash failed")
	}
	if normalizeBasePath("/v1/") != "/v1" {
		t.Fatalf("normalizeBasePath trailing slash trim failed")
	}
	if normalizeBasePath(" / ") != "/" {
		t.Fatalf("normalizeBasePath whitespace failed")
	}
}

// small helper (avoid fmt just for ints)
func config_strconv(i int) string { return string('a' + rune(i)) }

// Baseline env so the defaults validate; individual tests override with t.Setenv.
func TestMain(m *testing.M) {
	os.Unsetenv("PORT")
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("ANTHROPIC_API_KEY", "test-key")
	os.Exit(m.Run())
}

// containsErr reports whether err's message contains the given substring.
func containsErr(err error, want string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), want)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("API_BASE_PATH default expected '/api/v1', got %q", cfg.APIBasePath)
	}
	if cfg.DBDriver != "sqlite" || cfg.DBPath != "forge.db" {
		t.Fatalf("storage defaults unexpected: %q %q", cfg.DBDriver, cfg.DBPath)
	}
	if cfg.DedupWindow != time.Minute {
		t.Fatalf("dedup window default unexpected: %v", cfg.DedupWindow)
	}
	if cfg.Grader.MaxAttempts != 3 || cfg.Grader.BaseDelay != time.Second {
		t.Fatalf("grader retry defaults unexpected: %+v", cfg.Grader)
	}
	if cfg.SRS.TargetRetention != 0.85 || cfg.SRS.MaxIntervalDays != 365 || !cfg.SRS.EnableFuzz {
		t.Fatalf("srs defaults unexpected: %+v", cfg.SRS)
	}
	if cfg.Quota.Backend != "sql" || cfg.Quota.DailyLimit != 50 {
		t.Fatalf("quota defaults unexpected: %+v", cfg.Quota)
	}
}

func TestMustLoad_Success_NoPanic(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("MustLoad should not panic on valid defaults, got: %v", r)
		}
	}()
	cfg := MustLoad()
	if cfg.APIBasePath == "" {
		t.Fatalf("unexpected empty config from MustLoad")
	}
}
