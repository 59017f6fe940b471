package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/dyike/MacroAgent/config"
	"github.com/dyike/MacroAgent/consts"
)

// NewChatModel builds the chat model selected by cfg.LLMProvider.
func NewChatModel(ctx context.Context, cfg *config.Config) (model.ChatModel, error) {
	key, _ := cfg.LLMAPIKey()

	switch cfg.LLMProvider {
	case consts.LLMOpenAI:
		maxTokens := 8192
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:   cfg.LLMBaseURL,
			APIKey:    key,
			Model:     cfg.ModelName(),
			MaxTokens: &maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}
		return cm, nil
	case consts.LLMDeepSeek:
		cm, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:    key,
			Model:     cfg.ModelName(),
			MaxTokens: 8192,
		})
		if err != nil {
			return nil, fmt.Errorf("create deepseek model: %w", err)
		}
		return cm, nil
	case consts.LLMGemini, "":
		temperature := cfg.ReportTemperature
		cm, err := NewGeminiChatModel(ctx, &GeminiConfig{
			APIKey:        key,
			Model:         cfg.ModelName(),
			BaseURL:       cfg.LLMBaseURL,
			Timeout:       cfg.HTTPTimeout * 10,
			Temperature:   &temperature,
			GoogleSearch:  cfg.SearchGrounding,
			ThinkingLevel: cfg.ThinkingLevel,
		})
		if err != nil {
			return nil, err
		}
		return cm, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}
