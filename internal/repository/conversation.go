package repository

import (
	"context"
	"errors"

	"gemchat/internal/model"
)

var (
	// ErrConversationNotFound 对话不存在
	ErrConversationNotFound = errors.New("chat not found")
	// ErrConversationExists 对话 ID 已存在
	ErrConversationExists = errors.New("chat already exists")
)

// ReadResult 全量读取结果
// Recovered 为 true 表示存储内容损坏，已按空集合处理
type ReadResult struct {
	Conversations []*model.Conversation
	Recovered     bool
}

// ConversationRepository 对话存储接口（供 service 层依赖）
// 所有写路径都会把 assistant 角色规范化为 model
type ConversationRepository interface {
	// ReadAll 读取全部对话（按插入顺序）
	ReadAll(ctx context.Context) (*ReadResult, error)

	// GetByID 根据 ID 查询，不存在返回 ErrConversationNotFound
	GetByID(ctx context.Context, id string) (*model.Conversation, error)

	// Add 新增对话，ID 为空时自动生成，返回最终 ID
	Add(ctx context.Context, conv *model.Conversation) (string, error)

	// Update 部分更新（逐字段合并）
	Update(ctx context.Context, id string, patch *model.ConversationPatch) error

	// Delete 删除对话
	Delete(ctx context.Context, id string) error

	// AddMessage 在末尾追加消息并刷新 updated_at
	AddMessage(ctx context.Context, id string, msg model.Message) error

	// ListWithoutMessages 读取全部对话，去掉 messages 字段
	ListWithoutMessages(ctx context.Context) ([]*model.Conversation, error)
}

func normalizePatch(patch *model.ConversationPatch) {
	if patch != nil && patch.Messages != nil {
		msgs := append([]model.Message{}, (*patch.Messages)...)
		model.NormalizeMessages(msgs)
		patch.Messages = &msgs
	}
}
