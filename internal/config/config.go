package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	DBDriver string // postgres|sqlite
	DBDSN    string

	JWTSecret   string
	CORSOrigins []string

	CrossRefInterval  time.Duration // 0 disables the job
	TranslateInterval time.Duration // 0 disables the job

	TranslatorProvider string // anthropic|ollama|mock
	AnthropicAPIKey    string
	AnthropicModel     string
	OllamaURL          string
	OllamaModel        string

	PaymentWebhookSecret string
	CheckoutBaseURL      string
	PremiumPriceCents    int
	PremiumCurrency      string
}

func FromEnv() Config {
	driver := strings.ToLower(envOr("DB_DRIVER", "postgres"))
	return Config{
		Port:                 envOr("PORT", "8080"),
		DBDriver:             driver,
		DBDSN:                envOr("DB_DSN", defaultDSN(driver)),
		JWTSecret:            envOr("JWT_SECRET", "patente-dev-signing-key"),
		CORSOrigins:          csvOr("CORS_ORIGINS", "*"),
		CrossRefInterval:     envDuration("CROSSREF_INTERVAL", 24*time.Hour),
		TranslateInterval:    envDuration("TRANSLATE_INTERVAL", 0),
		TranslatorProvider:   envOr("TRANSLATOR_PROVIDER", "mock"),
		AnthropicAPIKey:      os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:       envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5"),
		OllamaURL:            envOr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:          envOr("OLLAMA_MODEL", "llama3"),
		PaymentWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		CheckoutBaseURL:      envOr("CHECKOUT_BASE_URL", "http://localhost:8080/checkout"),
		PremiumPriceCents:    envInt("PREMIUM_PRICE_CENTS", 999),
		PremiumCurrency:      envOr("PREMIUM_CURRENCY", "usd"),
	}
}

func defaultDSN(driver string) string {
	if driver == "sqlite" {
		return "file:patente.db?cache=shared&mode=rwc"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		envOr("DB_HOST", "localhost"),
		envOr("DB_PORT", "5432"),
		envOr("DB_USER", "patente_user"),
		envOr("DB_PASSWORD", "patente_password"),
		envOr("DB_NAME", "patente"),
		envOr("DB_SSLMODE", "disable"),
	)
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envInt(k string, def int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

// envDuration accepts Go durations ("6h") or "off"/"0" to disable.
func envDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	switch v {
	case "":
		return def
	case "0", "off", "false":
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SchedulerEnabled reports whether any periodic job is configured.
func (c Config) SchedulerEnabled() bool {
	return envBool("SCHEDULER_ENABLED", true) && (c.CrossRefInterval > 0 || c.TranslateInterval > 0)
}
