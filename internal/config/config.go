package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderFake      = "fake"
)

type Config struct {
	Port               int
	LogLevel           string
	LLMProvider        string
	GeminiAPIKey       string
	GeminiModel        string
	AnthropicAPIKey    string
	AnthropicModel     string
	CompletionTimeout  time.Duration
	MaxAttempts        int
	Backoff            time.Duration
	RiskFieldThreshold int
	NatsURL            string
	NatsToken          string
	RedisURL           string
	APIToken           string
	CatalogPath        string
	MetricsEnabled     bool
}

var defaults = map[string]any{
	"AUTOSOCIO_PORT":          8760,
	"LOG_LEVEL":               "info",
	"LLM_PROVIDER":            ProviderGemini,
	"GEMINI_MODEL":            "gemini-2.5-flash",
	"ANTHROPIC_MODEL":         "claude-sonnet-4-20250514",
	"COMPLETION_TIMEOUT":      "30s",
	"COMPLETION_MAX_ATTEMPTS": 2,
	"COMPLETION_BACKOFF":      "500ms",
	"RISK_FIELD_THRESHOLD":    3,
	"METRICS_ENABLED":         true,
}

// Load reads an optional .env file and then the environment. Malformed
// numbers, durations and booleans fall back to their defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !isNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for key, def := range defaults {
		v.SetDefault(key, def)
	}
	v.AutomaticEnv()

	return Config{
		Port:               envInt(v, "AUTOSOCIO_PORT"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LLMProvider:        v.GetString("LLM_PROVIDER"),
		GeminiAPIKey:       v.GetString("GEMINI_API_KEY"),
		GeminiModel:        v.GetString("GEMINI_MODEL"),
		AnthropicAPIKey:    v.GetString("ANTHROPIC_API_KEY"),
		AnthropicModel:     v.GetString("ANTHROPIC_MODEL"),
		CompletionTimeout:  envDuration(v, "COMPLETION_TIMEOUT"),
		MaxAttempts:        envInt(v, "COMPLETION_MAX_ATTEMPTS"),
		Backoff:            envDuration(v, "COMPLETION_BACKOFF"),
		RiskFieldThreshold: envInt(v, "RISK_FIELD_THRESHOLD"),
		NatsURL:            v.GetString("NATS_URL"),
		NatsToken:          v.GetString("NATS_TOKEN"),
		RedisURL:           v.GetString("REDIS_URL"),
		APIToken:           v.GetString("API_TOKEN"),
		CatalogPath:        v.GetString("CATALOG_PATH"),
		MetricsEnabled:     envBool(v, "METRICS_ENABLED"),
	}, nil
}

// Validate checks the selected provider is known and has its API key.
func (c Config) Validate() error {
	switch c.LLMProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for provider %s", c.LLMProvider)
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for provider %s", c.LLMProvider)
		}
	case ProviderFake:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("COMPLETION_MAX_ATTEMPTS must be at least 1, got %d", c.MaxAttempts)
	}
	return nil
}

func envInt(v *viper.Viper, key string) int {
	if n, err := strconv.Atoi(v.GetString(key)); err == nil {
		return n
	}
	return defaults[key].(int)
}

func envDuration(v *viper.Viper, key string) time.Duration {
	if d, err := time.ParseDuration(v.GetString(key)); err == nil {
		return d
	}
	d, _ := time.ParseDuration(defaults[key].(string))
	return d
}

func envBool(v *viper.Viper, key string) bool {
	if b, err := strconv.ParseBool(v.GetString(key)); err == nil {
		return b
	}
	return defaults[key].(bool)
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
