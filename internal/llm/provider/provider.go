// Package provider builds eino BaseChatModel instances per tier.
package provider

import (
	"context"
	"fmt"

	einoClaude "github.com/cloudwego/eino-ext/components/model/claude"
	einoOpenAI "github.com/cloudwego/eino-ext/components/model/openai"
	einoModel "github.com/cloudwego/eino/components/model"

	"github.com/hedaas-code/neoagent/internal/config"
)

// Build constructs a BaseChatModel for a single tier's configuration,
// dispatching on the configured provider name. OpenAI-compatible covers
// the common path for providers exposing an OpenAI-shaped endpoint
// (OpenAI, DeepSeek, Qwen, Kimi, GLM, Ollama); anthropic uses the native
// Claude Messages API shape.
func Build(ctx context.Context, cfg config.ModelTierConfig) (einoModel.BaseChatModel, error) {
	switch cfg.Provider {
	case "anthropic":
		return buildAnthropic(ctx, cfg)
	case "openai", "deepseek", "qwen", "kimi", "glm", "ollama", "":
		return buildOpenAICompatible(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

func buildOpenAICompatible(ctx context.Context, cfg config.ModelTierConfig) (einoModel.BaseChatModel, error) {
	temp := cfg.Temperature
	modelCfg := &einoOpenAI.ChatModelConfig{
		Model:       cfg.ModelName,
		APIKey:      cfg.APIKey,
		Temperature: &temp,
		MaxTokens:   intPtr(cfg.MaxTokens),
	}
	if cfg.BaseURL != "" {
		modelCfg.BaseURL = cfg.BaseURL
	}
	return einoOpenAI.NewChatModel(ctx, modelCfg)
}

func buildAnthropic(ctx context.Context, cfg config.ModelTierConfig) (einoModel.BaseChatModel, error) {
	temp := cfg.Temperature
	modelCfg := &einoClaude.Config{
		APIKey:      cfg.APIKey,
		Model:       cfg.ModelName,
		MaxTokens:   cfg.MaxTokens,
		Temperature: &temp,
	}
	if cfg.BaseURL != "" {
		modelCfg.BaseURL = &cfg.BaseURL
	}
	return einoClaude.NewChatModel(ctx, modelCfg)
}

func intPtr(n int) *int {
	if n == 0 {
		n = 2048
	}
	return &n
}
