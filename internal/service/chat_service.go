package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gemchat/internal/ai"
	"gemchat/internal/model"
	"gemchat/internal/pkg/ctxutil"
	"gemchat/internal/repository"
)

var (
	// ErrMessageRequired 消息为空
	ErrMessageRequired = errors.New("message is required")
	// ErrInvalidRole 消息角色不是 user/model/assistant
	ErrInvalidRole = errors.New("invalid message role")
)

// ChatService 对话服务 - 业务逻辑层
// 职责: 编排存储、会话缓存和模型调用
type ChatService struct {
	repo     repository.ConversationRepository
	provider ai.Provider
	sessions *ai.SessionCache
}

// NewChatService 创建对话服务
func NewChatService(repo repository.ConversationRepository, provider ai.Provider, sessions *ai.SessionCache) *ChatService {
	return &ChatService{
		repo:     repo,
		provider: provider,
		sessions: sessions,
	}
}

// Chat 处理对话请求
// 已有对话: 先落库用户消息 -> 取/建会话 -> 调用模型 -> 落库回复
// 新对话: 新建会话 -> 调用模型 -> 用两条消息创建对话 -> 缓存会话
// 模型调用失败时已落库的用户消息不回滚
func (s *ChatService) Chat(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	if req.Message == "" {
		return nil, ErrMessageRequired
	}

	if req.ChatID != "" {
		return s.continueChat(ctx, req)
	}
	return s.startChat(ctx, req)
}

func (s *ChatService) continueChat(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	logger := ctxutil.Logger(ctx).With().Str("conversation_id", req.ChatID).Logger()
	timestamp := model.Now()

	conv, err := s.repo.GetByID(ctx, req.ChatID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.AddMessage(ctx, req.ChatID, model.Message{
		Role:      model.RoleUser,
		Content:   req.Message,
		Timestamp: timestamp,
	}); err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}

	// conv 是追加前读取的，历史里不含本条消息
	sess, err := s.sessions.GetOrCreate(req.ChatID, func() (ai.Session, error) {
		logger.Debug().Int("history", conv.MessageCount()).Msg("rebuilding chat session from history")
		return s.provider.StartSession(ctx, conv.Messages)
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to start chat session")
		return nil, fmt.Errorf("start chat session: %w", err)
	}

	reply, err := sess.Send(ctx, req.Message)
	if err != nil {
		logger.Error().Err(err).Msg("AI chat failed")
		return nil, err
	}

	if err := s.repo.AddMessage(ctx, req.ChatID, model.Message{
		Role:      model.RoleModel,
		Content:   reply,
		Timestamp: timestamp,
	}); err != nil {
		return nil, fmt.Errorf("save model reply: %w", err)
	}

	logger.Info().Int("reply_length", len(reply)).Msg("chat completed")

	return &model.ChatResponse{
		Response: reply,
		ChatID:   req.ChatID,
	}, nil
}

func (s *ChatService) startChat(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	logger := ctxutil.Logger(ctx)
	timestamp := model.Now()

	sess, err := s.provider.StartSession(ctx, nil)
	if err != nil {
		logger.Error().Err(err).Msg("failed to start chat session")
		return nil, fmt.Errorf("start chat session: %w", err)
	}

	reply, err := sess.Send(ctx, req.Message)
	if err != nil {
		logger.Error().Err(err).Msg("AI chat failed")
		return nil, err
	}

	conv := &model.Conversation{
		Title:     model.DeriveTitle(req.Message),
		CreatedAt: timestamp,
		UpdatedAt: timestamp,
		Messages: []model.Message{
			{Role: model.RoleUser, Content: req.Message, Timestamp: timestamp},
			{Role: model.RoleModel, Content: reply, Timestamp: timestamp},
		},
	}
	chatID, err := s.repo.Add(ctx, conv)
	if err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}

	s.sessions.Put(chatID, sess)

	logger.Info().Str("conversation_id", chatID).Str("title", conv.Title).Msg("conversation created")

	return &model.ChatResponse{
		Response: reply,
		ChatID:   chatID,
	}, nil
}

// ListConversations 对话列表，按 updated_at 倒序
func (s *ChatService) ListConversations(ctx context.Context) ([]*model.Conversation, error) {
	convs, err := s.repo.ListWithoutMessages(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].UpdatedAt > convs[j].UpdatedAt
	})
	return convs, nil
}

// GetConversation 对话详情，model 角色改写为 assistant
func (s *ChatService) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	conv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return conv.External(), nil
}

// DeleteConversation 删除对话并移除缓存的会话
func (s *ChatService) DeleteConversation(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.sessions.Remove(id)

	logger := ctxutil.Logger(ctx)
	logger.Info().Str("conversation_id", id).Msg("conversation deleted")
	return nil
}

// ImportConversation 导入一段已有对话
// 同 ID 的旧会话句柄会被移除，下一次对话从导入的历史重建
func (s *ChatService) ImportConversation(ctx context.Context, req *model.ImportConversationRequest) (*model.Conversation, error) {
	if err := validateMessages(req.Messages); err != nil {
		return nil, err
	}
	now := model.Now()

	msgs := make([]model.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Timestamp == "" {
			m.Timestamp = now
		}
		msgs = append(msgs, m)
	}

	title := req.Title
	if title == "" {
		for _, m := range msgs {
			if model.NormalizeRole(m.Role) == model.RoleUser {
				title = model.DeriveTitle(m.Content)
				break
			}
		}
	}

	conv := &model.Conversation{
		ID:        req.ID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  msgs,
	}
	chatID, err := s.repo.Add(ctx, conv)
	if err != nil {
		return nil, err
	}
	s.sessions.Remove(chatID)

	logger := ctxutil.Logger(ctx)
	logger.Info().Str("conversation_id", chatID).Int("messages", len(msgs)).Msg("conversation imported")

	return s.GetConversation(ctx, chatID)
}

// UpdateConversation 更新标题和/或消息，替换消息时移除缓存的会话
func (s *ChatService) UpdateConversation(ctx context.Context, id string, req *model.UpdateConversationRequest) (*model.Conversation, error) {
	patch := &model.ConversationPatch{
		Title:    req.Title,
		Messages: req.Messages,
	}
	if patch.Messages != nil {
		if err := validateMessages(*patch.Messages); err != nil {
			return nil, err
		}
		now := model.Now()
		for i := range *patch.Messages {
			if (*patch.Messages)[i].Timestamp == "" {
				(*patch.Messages)[i].Timestamp = now
			}
		}
		patch.UpdatedAt = &now
	}

	if err := s.repo.Update(ctx, id, patch); err != nil {
		return nil, err
	}
	if req.Messages != nil {
		s.sessions.Remove(id)
	}

	return s.GetConversation(ctx, id)
}

// Ready 存储可读即就绪，recovered 表示存储内容损坏、已按空集合读取
func (s *ChatService) Ready(ctx context.Context) (recovered bool, err error) {
	res, err := s.repo.ReadAll(ctx)
	if err != nil {
		return false, err
	}
	return res.Recovered, nil
}

func validateMessages(msgs []model.Message) error {
	for i, m := range msgs {
		switch model.NormalizeRole(m.Role) {
		case model.RoleUser, model.RoleModel:
		default:
			return fmt.Errorf("%w: messages[%d] has role %q", ErrInvalidRole, i, m.Role)
		}
	}
	return nil
}
