package ai

import (
	"context"

	"gemchat/internal/model"
)

// Session 模型侧会话句柄，持有已经发送过的上下文
type Session interface {
	// Send 只发送新消息，返回模型回复
	Send(ctx context.Context, text string) (string, error)
}

// Provider 模型提供方
type Provider interface {
	// StartSession 创建会话，history 为持久化的历史消息（user/model 角色）
	StartSession(ctx context.Context, history []model.Message) (Session, error)
}
