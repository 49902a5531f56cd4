package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"ProdHub/internal/config"

	arkModel "github.com/cloudwego/eino-ext/components/model/ark"
	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

type ChatModelMeta struct {
	Provider string
	Model    string
}

// NewChatModelFromConfig 按配置构建回答模型，provider 为 mock 时返回离线确定性模型
func NewChatModelFromConfig(ctx context.Context, conf *config.Config) (model.BaseChatModel, ChatModelMeta, error) {
	if conf == nil {
		return nil, ChatModelMeta{}, fmt.Errorf("nil config")
	}
	cfg := conf.AIConfig.ChatModel
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	switch provider {
	case "", "disabled", "none":
		return nil, ChatModelMeta{}, fmt.Errorf("chat model provider not configured")
	case "mock":
		return NewMockChatModel(), ChatModelMeta{Provider: "mock", Model: "mock"}, nil
	case "openai":
		return newOpenAIChatModel(ctx, cfg)
	case "ark":
		return newArkChatModel(ctx, cfg)
	default:
		return nil, ChatModelMeta{}, fmt.Errorf("unknown chat model provider: %s", provider)
	}
}

func newOpenAIChatModel(ctx context.Context, cfg config.AIChatModelConfig) (model.BaseChatModel, ChatModelMeta, error) {
	apiKey := firstNonEmpty(cfg.APIKey, os.Getenv("OPENAI_API_KEY"))
	modelName := firstNonEmpty(cfg.Model, os.Getenv("OPENAI_MODEL"))
	baseURL := firstNonEmpty(cfg.BaseURL, os.Getenv("OPENAI_BASE_URL"))

	if apiKey == "" || modelName == "" {
		return nil, ChatModelMeta{}, fmt.Errorf("openai chat model missing apiKey/model")
	}

	cm, err := openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
		APIKey:     apiKey,
		Model:      modelName,
		BaseURL:    baseURL,
		ByAzure:    cfg.ByAzure,
		APIVersion: strings.TrimSpace(cfg.AzureAPIVersion),
		Timeout:    chatTimeout(cfg),
	})
	if err != nil {
		return nil, ChatModelMeta{}, err
	}
	return cm, ChatModelMeta{Provider: "openai", Model: modelName}, nil
}

func newArkChatModel(ctx context.Context, cfg config.AIChatModelConfig) (model.BaseChatModel, ChatModelMeta, error) {
	apiKey := firstNonEmpty(cfg.APIKey, os.Getenv("ARK_API_KEY"))
	accessKey := firstNonEmpty(cfg.AccessKey, os.Getenv("ARK_ACCESS_KEY"))
	secretKey := firstNonEmpty(cfg.SecretKey, os.Getenv("ARK_SECRET_KEY"))
	modelName := firstNonEmpty(cfg.Model, os.Getenv("ARK_MODEL_ID"))
	baseURL := firstNonEmpty(cfg.BaseURL, os.Getenv("ARK_BASE_URL"))
	region := firstNonEmpty(cfg.Region, os.Getenv("ARK_REGION"))

	if apiKey == "" && (accessKey == "" || secretKey == "") {
		return nil, ChatModelMeta{}, fmt.Errorf("ark chat model missing apiKey or accessKey/secretKey")
	}
	if modelName == "" {
		return nil, ChatModelMeta{}, fmt.Errorf("ark chat model missing model")
	}

	timeout := chatTimeout(cfg)
	retryTimes := 2
	if cfg.RetryTimes > 0 {
		retryTimes = cfg.RetryTimes
	}

	cm, err := arkModel.NewChatModel(ctx, &arkModel.ChatModelConfig{
		APIKey:     apiKey,
		AccessKey:  accessKey,
		SecretKey:  secretKey,
		Model:      modelName,
		BaseURL:    baseURL,
		Region:     region,
		Timeout:    &timeout,
		RetryTimes: &retryTimes,
	})
	if err != nil {
		return nil, ChatModelMeta{}, err
	}
	return cm, ChatModelMeta{Provider: "ark", Model: modelName}, nil
}

func chatTimeout(cfg config.AIChatModelConfig) time.Duration {
	if cfg.TimeoutSeconds > 0 {
		return time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return 2 * time.Minute
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
