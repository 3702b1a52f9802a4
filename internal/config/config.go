// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, relay limits, WhatsApp
// Cloud API credentials, and observability.
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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "whatsapp-relay")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// WhatsAppConfig holds WhatsApp Cloud API settings. VerifyToken secures the
// webhook verification handshake; AppSecret (optional) enables payload
// signature checks on deliveries.
type WhatsAppConfig struct {
	VerifyToken   string // WHATSAPP_VERIFY_TOKEN
	PhoneNumberID string // WHATSAPP_PHONE_NUMBER_ID
	AccessToken   string // WHATSAPP_ACCESS_TOKEN
	AppSecret     string // WHATSAPP_APP_SECRET (optional)
	APIVersion    string // WHATSAPP_API_VERSION, e.g. "v22.0"
}

// AIConfig holds completion-service settings for the OpenAI-compatible
// chat-completions endpoint (DeepSeek by default).
type AIConfig struct {
	APIKey    string // AI_API_KEY
	BaseURL   string // AI_BASE_URL
	Model     string // AI_MODEL
	MaxTokens int    // AI_MAX_TOKENS
}

// RelayConfig holds the per-message pipeline limits.
type RelayConfig struct {
	HistoryContext int           // AI_CONTEXT_SIZE: max conversation turns kept per sender
	RateLimit      int           // RATE_LIMIT: admissions allowed per window per sender
	RateWindow     time.Duration // MESSAGE_TTL_MS: sliding window length
	TxTimeout      time.Duration // TRANSACTION_TIMEOUT_MS: store transaction bound
	MaxRetries     int           // MAX_RETRIES: outbound send attempts
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

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// App
	DBPath string // SQLite path

	// Relay pipeline
	Relay RelayConfig

	// Edge rate limiting (HTTP, per client IP; distinct from Relay.RateLimit)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Collaborators
	WhatsApp WhatsAppConfig
	AI       AIConfig

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

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
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// App
		DBPath: getenv("DB_PATH", "relay.db"),

		// Relay pipeline
		Relay: RelayConfig{
			HistoryContext: getint("AI_CONTEXT_SIZE", 5),
			RateLimit:      getint("RATE_LIMIT", 5),
			RateWindow:     getms("MESSAGE_TTL_MS", 60*time.Second),
			TxTimeout:      getms("TRANSACTION_TIMEOUT_MS", 30*time.Second),
			MaxRetries:     getint("MAX_RETRIES", 3),
		},

		// Edge rate limiting
		RateRPS:   getfloat("RATE_RPS", 10.0),
		RateBurst: getint("RATE_BURST", 20),

		// Collaborators
		WhatsApp: WhatsAppConfig{
			VerifyToken:   getenv("WHATSAPP_VERIFY_TOKEN", ""),
			PhoneNumberID: getenv("WHATSAPP_PHONE_NUMBER_ID", ""),
			AccessToken:   getenv("WHATSAPP_ACCESS_TOKEN", ""),
			AppSecret:     getenv("WHATSAPP_APP_SECRET", ""),
			APIVersion:    getenv("WHATSAPP_API_VERSION", "v22.0"),
		},
		AI: AIConfig{
			APIKey:    getenv("AI_API_KEY", ""),
			BaseURL:   getenv("AI_BASE_URL", "https://api.deepseek.com/v1"),
			Model:     getenv("AI_MODEL", "deepseek-chat"),
			MaxTokens: getint("AI_MAX_TOKENS", 1000),
		},

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "whatsapp-relay"),
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
	cfg.WhatsApp.APIVersion = strings.TrimPrefix(cfg.WhatsApp.APIVersion, "/")

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
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.Relay.HistoryContext < 1 {
		return cfg, errors.New("AI_CONTEXT_SIZE must be >= 1")
	}
	if cfg.Relay.RateLimit < 1 {
		return cfg, errors.New("RATE_LIMIT must be >= 1")
	}
	if cfg.Relay.RateWindow <= 0 {
		return cfg, errors.New("MESSAGE_TTL_MS must be > 0")
	}
	if cfg.Relay.TxTimeout <= 0 {
		return cfg, errors.New("TRANSACTION_TIMEOUT_MS must be > 0")
	}
	if cfg.Relay.MaxRetries < 1 {
		return cfg, errors.New("MAX_RETRIES must be >= 1")
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

// getms reads an integer number of milliseconds, mirroring the provider-side
// convention used for the relay limits.
func getms(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return time.Duration(i) * time.Millisecond
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
