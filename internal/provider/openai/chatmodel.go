// Package openai adapts OpenAI-compatible chat completion endpoints to eino's ChatModel.
package openai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	goopenai "github.com/sashabaranov/go-openai"
)

// Config describes an OpenAI-compatible endpoint.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float32
	TopP        *float32
	MaxTokens   *int
	HTTPClient  *http.Client
}

// ChatModel implements model.ChatModel on top of go-openai.
type ChatModel struct {
	client *goopenai.Client
	cfg    Config
}

// NewChatModel creates a ChatModel for the configured endpoint.
func NewChatModel(cfg Config) (*ChatModel, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai model name is required")
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	return &ChatModel{
		client: goopenai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}, nil
}

// Generate performs a single chat completion. A response without choices yields an empty
// assistant message rather than an error.
func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	req, err := m.buildRequest(input, opts...)
	if err != nil {
		return nil, err
	}

	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return schema.AssistantMessage("", nil), nil
	}
	return schema.AssistantMessage(resp.Choices[0].Message.Content, nil), nil
}

// Stream returns the complete reply as a single chunk.
func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools is not supported; exchanges never offer tools.
func (m *ChatModel) BindTools(tools []*schema.ToolInfo) error {
	if len(tools) == 0 {
		return nil
	}
	return fmt.Errorf("openai chat model: tool binding is not supported")
}

func (m *ChatModel) buildRequest(input []*schema.Message, opts ...model.Option) (goopenai.ChatCompletionRequest, error) {
	options := model.GetCommonOptions(&model.Options{
		Model:       &m.cfg.Model,
		Temperature: m.cfg.Temperature,
		TopP:        m.cfg.TopP,
		MaxTokens:   m.cfg.MaxTokens,
	}, opts...)

	req := goopenai.ChatCompletionRequest{
		Messages: make([]goopenai.ChatCompletionMessage, 0, len(input)),
	}
	if options.Model != nil {
		req.Model = *options.Model
	}
	if options.Temperature != nil {
		req.Temperature = *options.Temperature
	}
	if options.TopP != nil {
		req.TopP = *options.TopP
	}
	if options.MaxTokens != nil {
		req.MaxTokens = *options.MaxTokens
	}

	for _, msg := range input {
		if msg == nil {
			continue
		}
		role, err := toRole(msg.Role)
		if err != nil {
			return goopenai.ChatCompletionRequest{}, err
		}
		req.Messages = append(req.Messages, goopenai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	return req, nil
}

func toRole(role schema.RoleType) (string, error) {
	switch role {
	case schema.System:
		return goopenai.ChatMessageRoleSystem, nil
	case schema.User:
		return goopenai.ChatMessageRoleUser, nil
	case schema.Assistant:
		return goopenai.ChatMessageRoleAssistant, nil
	default:
		return "", fmt.Errorf("unsupported message role %q", role)
	}
}
