package ai

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"gemchat/internal/ai/component"
	"gemchat/internal/config"
	"gemchat/internal/model"
)

// Client 模型能力层客户端，实现 Provider
type Client struct {
	chatModel    einomodel.BaseChatModel
	systemPrompt string
}

// NewClient 根据配置创建客户端
func NewClient(ctx context.Context, cfg *config.AIConfig) (*Client, error) {
	aiCfg := *cfg
	if aiCfg.APIKey == "" && aiCfg.Provider != config.ProviderMock {
		log.Warn().Str("provider", aiCfg.Provider).Msg("AI API key not configured, using mock mode")
		aiCfg.Provider = config.ProviderMock
	}

	chatModel, err := component.NewChatModel(ctx, &aiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	log.Info().Str("provider", aiCfg.Provider).Str("model", aiCfg.Model).Msg("chat model initialized")

	return NewClientWithModel(chatModel, cfg.SystemPrompt), nil
}

// NewClientWithModel 使用已有的 ChatModel 创建客户端
func NewClientWithModel(chatModel einomodel.BaseChatModel, systemPrompt string) *Client {
	return &Client{
		chatModel:    chatModel,
		systemPrompt: systemPrompt,
	}
}

// StartSession 用历史消息初始化会话
func (c *Client) StartSession(ctx context.Context, history []model.Message) (Session, error) {
	msgs := make([]*schema.Message, 0, len(history)+1)
	if c.systemPrompt != "" {
		msgs = append(msgs, schema.SystemMessage(c.systemPrompt))
	}

	for i, m := range history {
		msg, err := toSchemaMessage(m)
		if err != nil {
			return nil, fmt.Errorf("history message %d: %w", i, err)
		}
		msgs = append(msgs, msg)
	}

	return &chatSession{
		chatModel: c.chatModel,
		history:   msgs,
	}, nil
}

// toSchemaMessage 持久化角色转换为 eino 角色
func toSchemaMessage(m model.Message) (*schema.Message, error) {
	switch model.NormalizeRole(m.Role) {
	case model.RoleUser:
		return schema.UserMessage(m.Content), nil
	case model.RoleModel:
		return schema.AssistantMessage(m.Content, nil), nil
	case "system":
		return schema.SystemMessage(m.Content), nil
	default:
		return nil, fmt.Errorf("unsupported role %q", m.Role)
	}
}
