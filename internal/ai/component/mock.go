package component

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockChatModel 不访问网络的 ChatModel，用于本地开发和未配置 API Key 的场景
// 回复内容包含最后一条用户消息和当前是第几轮
type MockChatModel struct{}

// NewMockChatModel 创建 MockChatModel
func NewMockChatModel() *MockChatModel {
	return &MockChatModel{}
}

// Generate 生成回复
func (m *MockChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var last string
	turns := 0
	for _, msg := range input {
		if msg.Role == schema.User {
			last = msg.Content
			turns++
		}
	}
	if turns == 0 {
		return nil, fmt.Errorf("mock model: no user message in input")
	}

	return schema.AssistantMessage(fmt.Sprintf("[mock turn %d] %s", turns, last), nil), nil
}

// Stream 以单个分片返回 Generate 的结果
func (m *MockChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}
