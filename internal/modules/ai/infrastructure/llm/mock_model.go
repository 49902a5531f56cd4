package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockChatModel 离线回答模型：回显最后一条用户消息，本地开发与测试用
type MockChatModel struct{}

func NewMockChatModel() *MockChatModel {
	return &MockChatModel{}
}

func (m *MockChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage(m.reply(input), nil), nil
}

func (m *MockChatModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	reply := m.reply(input)
	chunks := make([]*schema.Message, 0, len(reply)/8+1)
	for i := 0; i < len(reply); i += 8 {
		end := i + 8
		if end > len(reply) {
			end = len(reply)
		}
		chunks = append(chunks, schema.AssistantMessage(reply[i:end], nil))
	}
	if len(chunks) == 0 {
		chunks = append(chunks, schema.AssistantMessage(reply, nil))
	}
	return schema.StreamReaderFromArray(chunks), nil
}

func (m *MockChatModel) reply(input []*schema.Message) string {
	for i := len(input) - 1; i >= 0; i-- {
		if input[i] != nil && input[i].Role == schema.User {
			q := strings.TrimSpace(input[i].Content)
			if q != "" {
				return fmt.Sprintf("[mock] re: %s", q)
			}
		}
	}
	return "[mock] no question"
}

var _ model.BaseChatModel = (*MockChatModel)(nil)
