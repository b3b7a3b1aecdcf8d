package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/lilhelper-coder/Asset-Architect-sub000/internal/config"
)

// arkBackend runs the composed prompt through an Eino chain backed by Ark.
type arkBackend struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

func newArkBackend(ctx context.Context, cfg config.AIConfig) (*arkBackend, error) {
	chatModel, err := newArkChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return newChainBackend(ctx, chatModel)
}

func newChainBackend(ctx context.Context, chatModel model.ChatModel) (*arkBackend, error) {
	// The whole prompt travels as one user message.
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.UserMessage("{prompt}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}
	return &arkBackend{chain: runnable}, nil
}

func (b *arkBackend) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := b.chain.Invoke(ctx, map[string]any{"prompt": prompt})
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	if resp == nil {
		return "", errMalformedResponse
	}
	return resp.Content, nil
}

// newArkChatModel 使用配置创建一个模型实例。
func newArkChatModel(ctx context.Context, c config.AIConfig) (model.ChatModel, error) {
	if !c.ArkEnabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
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

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	})
}
