package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/zhouzirui/aura/backend/internal/provider/openai"
)

const (
	ProviderArk    = "ark"
	ProviderOpenAI = "openai"
)

// Config aggregates all service settings.
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Log       LogConfig
	Telemetry TelemetryConfig
	Chat      ChatConfig
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	telemetry, err := loadTelemetryConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Log: logCfg, Telemetry: telemetry, Chat: chat}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" verbatim.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the model provider.
type AIConfig struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether a credential and a model are configured.
func (c AIConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

// NewChatModel creates a chat model for the configured provider.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("API_KEY is not set for provider %s", c.Provider)
	}
	if c.Model == "" {
		return nil, fmt.Errorf("AI_MODEL is not set for provider %s", c.Provider)
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	switch c.Provider {
	case ProviderArk:
		return ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:     c.BaseURL,
			Region:      c.Region,
			APIKey:      c.APIKey,
			Model:       c.Model,
			MaxTokens:   maxTokens,
			Temperature: temperature,
			TopP:        topP,
		})
	case ProviderOpenAI:
		return openai.NewChatModel(openai.Config{
			APIKey:      c.APIKey,
			BaseURL:     c.BaseURL,
			Model:       c.Model,
			Temperature: temperature,
			TopP:        topP,
			MaxTokens:   maxTokens,
		})
	default:
		return nil, fmt.Errorf("unsupported AI_PROVIDER %q", c.Provider)
	}
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderArk))
	if provider != ProviderArk && provider != ProviderOpenAI {
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value: %q", provider)
	}

	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("AI_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	cfg := AIConfig{
		Provider:    provider,
		APIKey:      strings.TrimSpace(os.Getenv("API_KEY")),
		Model:       strings.TrimSpace(os.Getenv("AI_MODEL")),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}

	switch provider {
	case ProviderArk:
		cfg.APIKey = getEnvOrDefault("ARK_API_KEY", cfg.APIKey)
		cfg.BaseURL = getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3")
		cfg.Region = getEnvOrDefault("ARK_REGION", "cn-beijing")
	case ProviderOpenAI:
		cfg.APIKey = getEnvOrDefault("OPENAI_API_KEY", cfg.APIKey)
		cfg.BaseURL = getEnvOrDefault("OPENAI_BASE_URL", "")
		if cfg.Model == "" {
			cfg.Model = "gpt-4o-mini"
		}
	}

	return cfg, nil
}

// LogConfig controls where the standard logger writes.
type LogConfig struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
}

func loadLogConfig() (LogConfig, error) {
	maxSize, err := parseOptionalIntEnv("LOG_MAX_SIZE_MB")
	if err != nil {
		return LogConfig{}, err
	}
	size := 10
	if maxSize != nil && *maxSize > 0 {
		size = *maxSize
	}

	return LogConfig{
		File:       getEnvOrDefault("LOG_FILE", ""),
		MaxSizeMB:  size,
		MaxBackups: 3,
	}, nil
}

// TelemetryConfig toggles the OpenTelemetry file exporters.
type TelemetryConfig struct {
	Enabled     bool
	Dir         string
	ServiceName string
}

func loadTelemetryConfig() (TelemetryConfig, error) {
	enabled, err := parseBoolEnv("TELEMETRY_ENABLED", false)
	if err != nil {
		return TelemetryConfig{}, err
	}

	return TelemetryConfig{
		Enabled:     enabled,
		Dir:         getEnvOrDefault("TELEMETRY_DIR", "logs"),
		ServiceName: getEnvOrDefault("OTEL_SERVICE_NAME", "aura-backend"),
	}, nil
}

// ChatConfig tunes the conversation controller.
type ChatConfig struct {
	EventBuffer int
}

func loadChatConfig() (ChatConfig, error) {
	buffer, err := parseOptionalIntEnv("EVENT_BUFFER")
	if err != nil {
		return ChatConfig{}, err
	}

	size := 32
	if buffer != nil {
		if *buffer < 1 {
			size = 1
		} else {
			size = *buffer
		}
	}
	return ChatConfig{EventBuffer: size}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
