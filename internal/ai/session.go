package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// chatSession 基于 ChatModel 的会话
// 每次发送携带完整上下文，成功后才把本轮写入 history
type chatSession struct {
	mu        sync.Mutex
	chatModel einomodel.BaseChatModel
	history   []*schema.Message
}

// Send 发送一条用户消息
func (s *chatSession) Send(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userMsg := schema.UserMessage(text)

	input := make([]*schema.Message, 0, len(s.history)+1)
	input = append(input, s.history...)
	input = append(input, userMsg)

	resp, err := s.chatModel.Generate(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}
	if resp == nil || resp.Content == "" {
		return "", errors.New("empty response from chat model")
	}

	s.history = append(s.history, userMsg, schema.AssistantMessage(resp.Content, nil))
	return resp.Content, nil
}

// Len 当前上下文中的消息数
func (s *chatSession) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}
