package config

import (
	"testing"
	"time"
)

var allKeys = []string{
	"AUTOSOCIO_PORT", "LOG_LEVEL", "LLM_PROVIDER", "GEMINI_API_KEY", "GEMINI_MODEL",
	"ANTHROPIC_API_KEY", "ANTHROPIC_MODEL", "COMPLETION_TIMEOUT", "COMPLETION_MAX_ATTEMPTS",
	"COMPLETION_BACKOFF", "RISK_FIELD_THRESHOLD", "NATS_URL", "NATS_TOKEN", "REDIS_URL",
	"API_TOKEN", "CATALOG_PATH", "METRICS_ENABLED",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 8760 {
		t.Errorf("expected default port 8760, got %d", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.LLMProvider != ProviderGemini {
		t.Errorf("expected default provider gemini, got %s", cfg.LLMProvider)
	}
	if cfg.GeminiModel != "gemini-2.5-flash" {
		t.Errorf("expected default gemini model, got %s", cfg.GeminiModel)
	}
	if cfg.AnthropicModel != "claude-sonnet-4-20250514" {
		t.Errorf("expected default anthropic model, got %s", cfg.AnthropicModel)
	}
	if cfg.CompletionTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %s", cfg.CompletionTimeout)
	}
	if cfg.MaxAttempts != 2 {
		t.Errorf("expected 2 attempts, got %d", cfg.MaxAttempts)
	}
	if cfg.Backoff != 500*time.Millisecond {
		t.Errorf("expected 500ms backoff, got %s", cfg.Backoff)
	}
	if cfg.RiskFieldThreshold != 3 {
		t.Errorf("expected threshold 3, got %d", cfg.RiskFieldThreshold)
	}
	if cfg.NatsURL != "" || cfg.RedisURL != "" || cfg.APIToken != "" {
		t.Errorf("expected optional collaborators disabled, got %+v", cfg)
	}
	if !cfg.MetricsEnabled {
		t.Error("expected metrics enabled by default")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTOSOCIO_PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test-key")
	t.Setenv("ANTHROPIC_MODEL", "claude-opus-4-1")
	t.Setenv("COMPLETION_TIMEOUT", "5s")
	t.Setenv("COMPLETION_MAX_ATTEMPTS", "4")
	t.Setenv("RISK_FIELD_THRESHOLD", "5")
	t.Setenv("NATS_URL", "nats://custom:4222")
	t.Setenv("NATS_TOKEN", "s3cr3t-token")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("API_TOKEN", "autosocio-secret-token")
	t.Setenv("CATALOG_PATH", "/etc/autosocio/catalog.yaml")
	t.Setenv("METRICS_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug log level, got %s", cfg.LogLevel)
	}
	if cfg.LLMProvider != ProviderAnthropic {
		t.Errorf("expected anthropic provider, got %s", cfg.LLMProvider)
	}
	if cfg.AnthropicAPIKey != "sk-test-key" {
		t.Errorf("expected custom api key, got %s", cfg.AnthropicAPIKey)
	}
	if cfg.AnthropicModel != "claude-opus-4-1" {
		t.Errorf("expected custom model, got %s", cfg.AnthropicModel)
	}
	if cfg.CompletionTimeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.CompletionTimeout)
	}
	if cfg.MaxAttempts != 4 {
		t.Errorf("expected 4 attempts, got %d", cfg.MaxAttempts)
	}
	if cfg.RiskFieldThreshold != 5 {
		t.Errorf("expected threshold 5, got %d", cfg.RiskFieldThreshold)
	}
	if cfg.NatsURL != "nats://custom:4222" {
		t.Errorf("expected custom nats url, got %s", cfg.NatsURL)
	}
	if cfg.NatsToken != "s3cr3t-token" {
		t.Errorf("expected custom nats token, got %s", cfg.NatsToken)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("expected custom redis url, got %s", cfg.RedisURL)
	}
	if cfg.APIToken != "autosocio-secret-token" {
		t.Errorf("expected custom api token, got %s", cfg.APIToken)
	}
	if cfg.CatalogPath != "/etc/autosocio/catalog.yaml" {
		t.Errorf("expected custom catalog path, got %s", cfg.CatalogPath)
	}
	if cfg.MetricsEnabled {
		t.Error("expected metrics disabled")
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTOSOCIO_PORT", "notanumber")
	t.Setenv("COMPLETION_TIMEOUT", "soon")
	t.Setenv("METRICS_ENABLED", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 8760 {
		t.Errorf("expected default port on invalid value, got %d", cfg.Port)
	}
	if cfg.CompletionTimeout != 30*time.Second {
		t.Errorf("expected default timeout on invalid value, got %s", cfg.CompletionTimeout)
	}
	if !cfg.MetricsEnabled {
		t.Error("expected default metrics flag on invalid value")
	}
}

func TestValidate(t *testing.T) {
	base := Config{Port: 8760, MaxAttempts: 2}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"gemini with key", func(c *Config) { c.LLMProvider = ProviderGemini; c.GeminiAPIKey = "k" }, false},
		{"gemini without key", func(c *Config) { c.LLMProvider = ProviderGemini }, true},
		{"anthropic without key", func(c *Config) { c.LLMProvider = ProviderAnthropic }, true},
		{"fake needs no key", func(c *Config) { c.LLMProvider = ProviderFake }, false},
		{"unknown provider", func(c *Config) { c.LLMProvider = "openai" }, true},
		{"bad port", func(c *Config) { c.LLMProvider = ProviderFake; c.Port = 70000 }, true},
		{"zero attempts", func(c *Config) { c.LLMProvider = ProviderFake; c.MaxAttempts = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
