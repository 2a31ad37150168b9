package config

import (
	"context"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "AI_PROVIDER", "API_KEY", "ARK_API_KEY", "OPENAI_API_KEY", "AI_MODEL",
		"ARK_BASE_URL", "ARK_REGION", "OPENAI_BASE_URL", "AI_TEMPERATURE", "AI_TOP_P",
		"AI_MAX_TOKENS", "LOG_FILE", "LOG_MAX_SIZE_MB", "TELEMETRY_ENABLED", "TELEMETRY_DIR",
		"OTEL_SERVICE_NAME", "EVENT_BUFFER",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.AI.Provider != ProviderArk {
		t.Fatalf("unexpected provider %q", cfg.AI.Provider)
	}
	if cfg.AI.Enabled() {
		t.Fatal("AI must not be enabled without a credential")
	}
	if cfg.Telemetry.Enabled {
		t.Fatal("telemetry should be off by default")
	}
	if cfg.Chat.EventBuffer != 32 {
		t.Fatalf("unexpected event buffer %d", cfg.Chat.EventBuffer)
	}
}

func TestLoadServerAddr(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}

	t.Setenv("PORT", "80 80")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid PORT")
	}
}

func TestLoadOpenAIProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_PROVIDER", "OpenAI")
	t.Setenv("API_KEY", "generic")
	t.Setenv("OPENAI_API_KEY", "specific")
	t.Setenv("AI_MAX_TOKENS", "256")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.AI.Provider != ProviderOpenAI {
		t.Fatalf("unexpected provider %q", cfg.AI.Provider)
	}
	if cfg.AI.APIKey != "specific" {
		t.Fatalf("expected provider-specific key, got %q", cfg.AI.APIKey)
	}
	if cfg.AI.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected default model %q", cfg.AI.Model)
	}
	if cfg.AI.MaxTokens == nil || *cfg.AI.MaxTokens != 256 {
		t.Fatalf("unexpected max tokens %v", cfg.AI.MaxTokens)
	}

	chatModel, err := cfg.AI.NewChatModel(context.Background())
	if err != nil {
		t.Fatalf("NewChatModel err: %v", err)
	}
	if chatModel == nil {
		t.Fatal("expected chat model")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"AI_PROVIDER":       "gemini",
		"AI_TEMPERATURE":    "warm",
		"AI_MAX_TOKENS":     "many",
		"TELEMETRY_ENABLED": "sometimes",
		"EVENT_BUFFER":      "big",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}

func TestNewChatModelWithoutCredential(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if _, err := cfg.AI.NewChatModel(context.Background()); err == nil {
		t.Fatal("expected error when API_KEY is missing")
	}
}

func TestEventBufferFloor(t *testing.T) {
	clearEnv(t)
	t.Setenv("EVENT_BUFFER", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Chat.EventBuffer != 1 {
		t.Fatalf("expected buffer floor of 1, got %d", cfg.Chat.EventBuffer)
	}
}
