package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"gemchat/internal/model"
	"gemchat/internal/pkg/cache"
	"gemchat/internal/pkg/id"
)

// RedisRepo 对话仓库（每个对话一个 key，另有 ID 集合作为索引）
// 单实例部署，读-改-写用进程内的 mu 串行化
type RedisRepo struct {
	mu    sync.Mutex
	cache *cache.RedisCache
}

// NewRedisRepo 创建对话仓库
func NewRedisRepo(c *cache.RedisCache) *RedisRepo {
	return &RedisRepo{cache: c}
}

// ReadAll 读取全部对话（按 created_at 正序）
func (r *RedisRepo) ReadAll(ctx context.Context) (*ReadResult, error) {
	client := r.cache.Client()

	ids, err := client.SMembers(ctx, cache.ConversationIndexKey).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return &ReadResult{Conversations: []*model.Conversation{}}, nil
	}

	keys := make([]string, len(ids))
	for i, convID := range ids {
		keys[i] = cache.ConversationKey(convID)
	}
	values, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	res := &ReadResult{Conversations: make([]*model.Conversation, 0, len(values))}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// 索引里有、记录已不存在
			continue
		}
		var conv model.Conversation
		if err := json.Unmarshal([]byte(s), &conv); err != nil {
			log.Warn().Err(err).Str("key", keys[i]).Msg("skipping malformed conversation record")
			res.Recovered = true
			continue
		}
		res.Conversations = append(res.Conversations, &conv)
	}

	sort.SliceStable(res.Conversations, func(i, j int) bool {
		return res.Conversations[i].CreatedAt < res.Conversations[j].CreatedAt
	})
	return res, nil
}

// GetByID 根据 ID 查询
func (r *RedisRepo) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	if err := r.cache.Get(ctx, cache.ConversationKey(id), &conv); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &conv, nil
}

// Add 新增对话
func (r *RedisRepo) Add(ctx context.Context, conv *model.Conversation) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conv.ID == "" {
		conv.ID = id.New()
	} else {
		exists, err := r.cache.Exists(ctx, cache.ConversationKey(conv.ID))
		if err != nil {
			return "", err
		}
		if exists {
			return "", ErrConversationExists
		}
	}
	model.NormalizeMessages(conv.Messages)

	data, err := json.Marshal(conv)
	if err != nil {
		return "", err
	}
	_, err = r.cache.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, cache.ConversationKey(conv.ID), data, 0)
		pipe.SAdd(ctx, cache.ConversationIndexKey, conv.ID)
		return nil
	})
	if err != nil {
		return "", err
	}
	return conv.ID, nil
}

// Update 部分更新
func (r *RedisRepo) Update(ctx context.Context, id string, patch *model.ConversationPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	normalizePatch(patch)

	conv, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	patch.Apply(conv)
	return r.cache.Set(ctx, cache.ConversationKey(id), conv, 0)
}

// Delete 删除对话
func (r *RedisRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var del *redis.IntCmd
	_, err := r.cache.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, cache.ConversationKey(id))
		pipe.SRem(ctx, cache.ConversationIndexKey, id)
		return nil
	})
	if err != nil {
		return err
	}
	if del.Val() == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// AddMessage 追加消息
func (r *RedisRepo) AddMessage(ctx context.Context, id string, msg model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg.Role = model.NormalizeRole(msg.Role)

	conv, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = model.Now()
	return r.cache.Set(ctx, cache.ConversationKey(id), conv, 0)
}

// ListWithoutMessages 列表（不含消息）
func (r *RedisRepo) ListWithoutMessages(ctx context.Context) ([]*model.Conversation, error) {
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
