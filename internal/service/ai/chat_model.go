package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/rainit/rainit/backend/internal/config"
)

// NewChatModel builds the provider selected in cfg. apiKey overrides the
// configured Gemini key, for keys resolved from a secret store.
func NewChatModel(ctx context.Context, cfg config.AIConfig, apiKey string) (model.BaseChatModel, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("credentials or model missing for provider %q", cfg.Provider)
	}

	switch cfg.Provider {
	case config.ProviderArk:
		return newArkChatModel(ctx, cfg)
	default:
		if apiKey == "" {
			apiKey = cfg.APIKey
		}
		return NewGeminiChatModel(ctx, GeminiConfig{
			APIKey:      apiKey,
			Model:       cfg.Model,
			Temperature: toFloat32(cfg.Temperature),
			TopP:        toFloat32(cfg.TopP),
			MaxTokens:   cfg.MaxTokens,
		})
	}
}

func newArkChatModel(ctx context.Context, c config.AIConfig) (model.BaseChatModel, error) {
	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.ArkBaseURL,
		Region:      c.ArkRegion,
		APIKey:      c.ArkAPIKey,
		AccessKey:   c.ArkAccessKey,
		SecretKey:   c.ArkSecretKey,
		Model:       c.ArkModel,
		MaxTokens:   maxTokens,
		Temperature: toFloat32(c.Temperature),
		TopP:        toFloat32(c.TopP),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ark chat model: %w", err)
	}
	return chatModel, nil
}

func toFloat32(v *float64) *float32 {
	if v == nil {
		return nil
	}
	val := float32(*v)
	return &val
}
