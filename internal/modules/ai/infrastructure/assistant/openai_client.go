package assistant

import (
	"context"
	"errors"
	"strings"

	"ProdHub/internal/config"
	"ProdHub/internal/modules/ai/domain/repository"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient 托管助手服务的 go-openai 适配器
type OpenAIClient struct {
	cli *openai.Client
}

func NewOpenAIClientFromConfig(conf *config.Config) (*OpenAIClient, error) {
	if conf == nil {
		return nil, errors.New("nil config")
	}
	apiKey := strings.TrimSpace(conf.AIConfig.Assistant.APIKey)
	if apiKey == "" {
		return nil, errors.New("assistant apiKey is empty")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL := strings.TrimSpace(conf.AIConfig.Assistant.BaseURL); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{cli: openai.NewClientWithConfig(cfg)}, nil
}

func (c *OpenAIClient) CreateAssistant(ctx context.Context, spec repository.AssistantSpec) (string, error) {
	name := spec.Name
	instructions := spec.Instructions
	resp, err := c.cli.CreateAssistant(ctx, openai.AssistantRequest{
		Model:        spec.Model,
		Name:         &name,
		Instructions: &instructions,
		Tools: []openai.AssistantTool{
			{Type: openai.AssistantToolTypeFileSearch},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *OpenAIClient) CreateVectorStore(ctx context.Context, name string) (string, error) {
	resp, err := c.cli.CreateVectorStore(ctx, openai.VectorStoreRequest{Name: name})
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *OpenAIClient) AttachVectorStore(ctx context.Context, assistantID, vectorStoreID string) error {
	_, err := c.cli.ModifyAssistant(ctx, assistantID, openai.AssistantRequest{
		ToolResources: &openai.AssistantToolResource{
			FileSearch: &openai.AssistantToolFileSearch{
				VectorStoreIDs: []string{vectorStoreID},
			},
		},
	})
	return err
}

func (c *OpenAIClient) UploadFile(ctx context.Context, filename string, content []byte) (string, error) {
	resp, err := c.cli.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    filename,
		Bytes:   content,
		Purpose: openai.PurposeAssistants,
	})
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *OpenAIClient) AddFileToVectorStore(ctx context.Context, vectorStoreID, fileID string) error {
	_, err := c.cli.CreateVectorStoreFile(ctx, vectorStoreID, openai.VectorStoreFileRequest{FileID: fileID})
	return err
}

func (c *OpenAIClient) DeleteFile(ctx context.Context, fileID string) error {
	return c.cli.DeleteFile(ctx, fileID)
}

func (c *OpenAIClient) CreateThread(ctx context.Context) (string, error) {
	resp, err := c.cli.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *OpenAIClient) AddMessage(ctx context.Context, threadID, content string) error {
	_, err := c.cli.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    string(openai.ThreadMessageRoleUser),
		Content: content,
	})
	return err
}

func (c *OpenAIClient) CreateRun(ctx context.Context, threadID, assistantID string) (string, error) {
	resp, err := c.cli.CreateRun(ctx, threadID, openai.RunRequest{AssistantID: assistantID})
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *OpenAIClient) GetRun(ctx context.Context, threadID, runID string) (*repository.RunState, error) {
	run, err := c.cli.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return nil, err
	}
	state := &repository.RunState{Status: mapRunStatus(run.Status)}
	if run.LastError != nil {
		state.LastError = run.LastError.Message
	}
	return state, nil
}

func (c *OpenAIClient) LatestAssistantMessage(ctx context.Context, threadID string) (string, error) {
	limit := 10
	order := "desc"
	list, err := c.cli.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return "", err
	}
	for _, m := range list.Messages {
		if m.Role != string(openai.ThreadMessageRoleAssistant) {
			continue
		}
		var b strings.Builder
		for _, part := range m.Content {
			if part.Text != nil {
				b.WriteString(part.Text.Value)
			}
		}
		if b.Len() > 0 {
			return b.String(), nil
		}
	}
	return "", errors.New("no assistant message in thread")
}

func mapRunStatus(status openai.RunStatus) string {
	switch status {
	case openai.RunStatusQueued:
		return repository.RunStatusQueued
	case openai.RunStatusInProgress, openai.RunStatusCancelling, openai.RunStatusRequiresAction:
		return repository.RunStatusInProgress
	case openai.RunStatusCompleted:
		return repository.RunStatusCompleted
	case openai.RunStatusFailed, openai.RunStatusIncomplete:
		return repository.RunStatusFailed
	case openai.RunStatusCancelled:
		return repository.RunStatusCancelled
	case openai.RunStatusExpired:
		return repository.RunStatusExpired
	default:
		return string(status)
	}
}

var _ repository.HostedAIClient = (*OpenAIClient)(nil)
