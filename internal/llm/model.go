// Package llm builds the upstream chat model selected by configuration.
// Every provider is exposed as an eino BaseChatModel so the service layer
// does not care which one is in use.
package llm

import (
	"context"
	"errors"
	"fmt"

	"demystifier-backend/internal/config"
	"demystifier-backend/internal/utils"
	"demystifier-backend/pkg/logger"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	einoModel "github.com/cloudwego/eino/components/model"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported model provider")
	ErrUnsupportedInput    = errors.New("input not supported by provider")
)

// NewChatModel creates the chat model for cfg.Model.Provider.
func NewChatModel(ctx context.Context, cfg *config.Config) (einoModel.BaseChatModel, error) {
	debug := cfg.Model.DebugRequests

	switch cfg.Model.Provider {
	case "gemini":
		logger.Infof("Using Gemini model %s (key %s)", cfg.Gemini.Model, maskKey(cfg.Gemini.APIKey))
		return newGeminiChatModel(cfg.Gemini, utils.NewHTTPClient(cfg.Gemini.Timeout, debug)), nil
	case "openai":
		logger.Infof("Using OpenAI model %s (key %s)", cfg.OpenAI.Model, maskKey(cfg.OpenAI.APIKey))
		return newOpenAIChatModel(cfg.OpenAI, utils.NewHTTPClient(cfg.OpenAI.Timeout, debug)), nil
	case "doubao":
		return createDoubaoModel(ctx, cfg.Doubao)
	case "qwen":
		return createQwenModel(ctx, cfg.Qwen, debug)
	case "mock":
		logger.Warn("Using mock model provider; replies are canned")
		return newMockChatModel(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Model.Provider)
	}
}

func createDoubaoModel(ctx context.Context, cfg config.DoubaoConfig) (einoModel.BaseChatModel, error) {
	logger.Infof("Using Doubao model %s (key %s)", cfg.Model, maskKey(cfg.APIKey))

	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		APIKey: cfg.APIKey,
		Model:  cfg.Model,
		CustomHeader: map[string]string{
			"X-Ark-Thinking-Mode": "disable",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create doubao model: %w", err)
	}
	return chatModel, nil
}

func createQwenModel(ctx context.Context, cfg config.QwenConfig, debug bool) (einoModel.BaseChatModel, error) {
	logger.Infof("Using Qwen model %s at %s (key %s)", cfg.Model, cfg.BaseURL, maskKey(cfg.APIKey))

	chatModel, err := qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		MaxTokens:   &cfg.MaxTokens,
		Temperature: &cfg.Temperature,
		TopP:        &cfg.TopP,
		Timeout:     cfg.Timeout,
		HTTPClient:  utils.NewHTTPClient(cfg.Timeout, debug),
	})
	if err != nil {
		return nil, fmt.Errorf("create qwen model: %w", err)
	}
	return chatModel, nil
}

func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "****"
}
