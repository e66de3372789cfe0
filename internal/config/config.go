package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the chat assistant service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	DatabaseURL string

	CompletionProvider string
	CompletionTimeout  time.Duration

	GeminiAPIKey        string
	GeminiSummaryAPIKey string
	GeminiModel         string
	GeminiBaseURL       string

	OpenAIAPIKey string
	OpenAIModel  string

	JWTSecret string
	JWTTTL    time.Duration
	OTPTTL    time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPStartTLS bool
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:            envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:    envOrDefault("APP_METRICS_NAMESPACE", "thinkbot"),
		AllowAnyOrigin:      false,
		DatabaseURL:         stringsTrimSpace("DATABASE_URL"),
		CompletionProvider:  envOrDefault("COMPLETION_PROVIDER", "auto"),
		GeminiAPIKey:        stringsTrimSpace("GEMINI_API_KEY"),
		GeminiSummaryAPIKey: stringsTrimSpace("GEMINI_API_KEY_2"),
		GeminiModel:         envOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL:       stringsTrimSpace("GEMINI_BASE_URL"),
		OpenAIAPIKey:        stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIModel:         envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		// The default secret only exists so local dev works out of the box.
		JWTSecret:         envOrDefault("JWT_SECRET", "changeme"),
		SMTPHost:          stringsTrimSpace("SMTP_HOST"),
		SMTPPort:          465,
		SMTPUsername:      stringsTrimSpace("SMTP_USERNAME"),
		SMTPPassword:      stringsTrimSpace("SMTP_PASSWORD"),
		SMTPFrom:          stringsTrimSpace("SMTP_FROM"),
		SMTPStartTLS:      false,
		ShutdownTimeout:   15 * time.Second,
		CompletionTimeout: 60 * time.Second,
		JWTTTL:            24 * time.Hour,
		OTPTTL:            5 * time.Minute,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CompletionTimeout, err = durationFromEnv("COMPLETION_TIMEOUT", cfg.CompletionTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.JWTTTL, err = durationFromEnv("JWT_TTL", cfg.JWTTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.OTPTTL, err = durationFromEnv("OTP_TTL", cfg.OTPTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.SMTPPort, err = intFromEnv("SMTP_PORT", cfg.SMTPPort)
	if err != nil {
		return Config{}, err
	}
	cfg.SMTPStartTLS, err = boolFromEnv("SMTP_STARTTLS", cfg.SMTPStartTLS)
	if err != nil {
		return Config{}, err
	}

	switch cfg.CompletionProvider {
	case "auto", "gemini", "openai", "mock":
	default:
		return Config{}, fmt.Errorf("COMPLETION_PROVIDER must be one of auto, gemini, openai, mock")
	}
	if cfg.CompletionTimeout <= 0 {
		return Config{}, fmt.Errorf("COMPLETION_TIMEOUT must be positive")
	}
	if cfg.JWTTTL <= 0 {
		return Config{}, fmt.Errorf("JWT_TTL must be positive")
	}
	if cfg.OTPTTL <= 0 {
		return Config{}, fmt.Errorf("OTP_TTL must be positive")
	}
	if cfg.SMTPPort <= 0 || cfg.SMTPPort > 65535 {
		return Config{}, fmt.Errorf("SMTP_PORT must be a valid port")
	}
	if cfg.SMTPHost != "" && cfg.SMTPFrom == "" {
		return Config{}, fmt.Errorf("SMTP_FROM is required when SMTP_HOST is set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return trimSpace(os.Getenv(key))
}

func trimSpace(v string) string {
	for len(v) > 0 && (v[0] == ' ' || v[0] == '\n' || v[0] == '\t' || v[0] == '\r') {
		v = v[1:]
	}
	for len(v) > 0 {
		c := v[len(v)-1]
		if c == ' ' || c == '\n' || c == '\t' || c == '\r' {
			v = v[:len(v)-1]
			continue
		}
		break
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
