package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"

	"gemchat/internal/model"
	"gemchat/internal/pkg/id"
	"gemchat/internal/pkg/storage"
)

// DocumentRepo 单 JSON 文档对话仓库
// 全部对话保存在一个 JSON 数组里，每次写操作都是整文档的读-改-写，
// mu 覆盖完整的读-改-写周期，并发写不会互相覆盖。
type DocumentRepo struct {
	mu    sync.Mutex
	store storage.Storage
	key   string
}

// NewDocumentRepo 创建文档仓库
func NewDocumentRepo(store storage.Storage, key string) *DocumentRepo {
	return &DocumentRepo{
		store: store,
		key:   key,
	}
}

// ReadAll 读取全部对话
func (r *DocumentRepo) ReadAll(ctx context.Context) (*ReadResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.readAll(ctx)
}

// GetByID 根据 ID 查询
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexOf(res.Conversations, id); i >= 0 {
		return res.Conversations[i], nil
	}
	return nil, ErrConversationNotFound
}

// Add 新增对话
func (r *DocumentRepo) Add(ctx context.Context, conv *model.Conversation) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.readAll(ctx)
	if err != nil {
		return "", err
	}

	if conv.ID == "" {
		conv.ID = id.New()
	} else if indexOf(res.Conversations, conv.ID) >= 0 {
		return "", ErrConversationExists
	}
	model.NormalizeMessages(conv.Messages)

	convs := append(res.Conversations, conv.Clone())
	if err := r.writeAll(ctx, convs); err != nil {
		return "", err
	}
	return conv.ID, nil
}

// Update 部分更新
func (r *DocumentRepo) Update(ctx context.Context, id string, patch *model.ConversationPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.readAll(ctx)
	if err != nil {
		return err
	}

	normalizePatch(patch)

	i := indexOf(res.Conversations, id)
	if i < 0 {
		return ErrConversationNotFound
	}
	patch.Apply(res.Conversations[i])
	return r.writeAll(ctx, res.Conversations)
}

// Delete 删除对话，只有确实删除了记录才会写回
func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.readAll(ctx)
	if err != nil {
		return err
	}

	kept := make([]*model.Conversation, 0, len(res.Conversations))
	for _, conv := range res.Conversations {
		if conv.ID != id {
			kept = append(kept, conv)
		}
	}
	if len(kept) == len(res.Conversations) {
		return ErrConversationNotFound
	}
	return r.writeAll(ctx, kept)
}

// AddMessage 追加消息
func (r *DocumentRepo) AddMessage(ctx context.Context, id string, msg model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.readAll(ctx)
	if err != nil {
		return err
	}

	msg.Role = model.NormalizeRole(msg.Role)

	i := indexOf(res.Conversations, id)
	if i < 0 {
		return ErrConversationNotFound
	}
	conv := res.Conversations[i]
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = model.Now()
	return r.writeAll(ctx, res.Conversations)
}

// ListWithoutMessages 列表（不含消息）
func (r *DocumentRepo) ListWithoutMessages(ctx context.Context) ([]*model.Conversation, error) {
	res, err := r.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*model.Conversation, 0, len(res.Conversations))
	for _, conv := range res.Conversations {
		out = append(out, conv.Summary())
	}
	return out, nil
}

// readAll 调用方必须持有 mu
func (r *DocumentRepo) readAll(ctx context.Context) (*ReadResult, error) {
	rc, err := r.store.Download(ctx, r.key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return &ReadResult{Conversations: []*model.Conversation{}}, nil
		}
		return nil, fmt.Errorf("read conversation document: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read conversation document: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &ReadResult{Conversations: []*model.Conversation{}}, nil
	}

	var convs []*model.Conversation
	if err := json.Unmarshal(data, &convs); err != nil {
		// 下一次写入会覆盖损坏的文档，原有内容丢失
		log.Warn().
			Err(err).
			Str("location", r.store.Location(r.key)).
			Int("size", len(data)).
			Msg("conversation document is malformed, treating it as empty")
		return &ReadResult{Conversations: []*model.Conversation{}, Recovered: true}, nil
	}

	out := make([]*model.Conversation, 0, len(convs))
	for _, conv := range convs {
		if conv != nil {
			out = append(out, conv)
		}
	}
	return &ReadResult{Conversations: out}, nil
}

// writeAll 调用方必须持有 mu
func (r *DocumentRepo) writeAll(ctx context.Context, convs []*model.Conversation) error {
	if convs == nil {
		convs = []*model.Conversation{}
	}
	data, err := json.MarshalIndent(convs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode conversation document: %w", err)
	}
	if err := r.store.Upload(ctx, r.key, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("write conversation document: %w", err)
	}
	return nil
}

func indexOf(convs []*model.Conversation, id string) int {
	for i, conv := range convs {
		if conv.ID == id {
			return i
		}
	}
	return -1
}
