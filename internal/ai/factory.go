package ai

import (
	"fmt"
	"strings"

	"shopassist/internal/ai/anthropic"
	"shopassist/internal/ai/openai"
	"shopassist/internal/config"
)

// NewModelClient 根据配置创建对话模型客户端，并包装日志与指标
func NewModelClient(cfg config.AIConfig, timeoutSeconds int) (ModelClient, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	var (
		client ModelClient
		model  string
		err    error
	)
	switch provider {
	case "", "openai":
		model = cfg.OpenAI.Model
		client, err = openai.NewClient(&ClientConfig{
			Provider: "openai",
			APIKey:   cfg.OpenAI.APIKey,
			BaseURL:  cfg.OpenAI.BaseURL,
			OrgID:    cfg.OpenAI.OrgID,
			Model:    model,
			Timeout:  timeoutSeconds,
		})
	case "anthropic", "claude":
		model = cfg.Anthropic.Model
		client, err = anthropic.NewClient(&ClientConfig{
			Provider: "anthropic",
			APIKey:   cfg.Anthropic.APIKey,
			BaseURL:  cfg.Anthropic.BaseURL,
			Model:    model,
			Timeout:  timeoutSeconds,
		})
	default:
		return nil, fmt.Errorf("不支持的模型提供方: %s (可选: openai, anthropic)", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("创建模型客户端失败: %w", err)
	}

	return NewLoggingClient(client, model), nil
}

// NewEmbedder 创建向量化客户端（仅 OpenAI 提供嵌入接口）
func NewEmbedder(cfg config.AIConfig) (Embedder, error) {
	client, err := openai.NewClient(&ClientConfig{
		Provider: "openai",
		APIKey:   cfg.OpenAI.APIKey,
		BaseURL:  cfg.OpenAI.BaseURL,
		OrgID:    cfg.OpenAI.OrgID,
		Model:    cfg.OpenAI.EmbeddingModel,
		Timeout:  60,
	})
	if err != nil {
		return nil, fmt.Errorf("创建向量化客户端失败: %w", err)
	}
	return client, nil
}
