package ai

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// SessionCache 对话 ID 到会话句柄的进程内缓存
// 不淘汰、不过期、不持久化，重启后按需从存储的消息重建
type SessionCache struct {
	mu       sync.RWMutex
	sessions map[string]Session
	removals map[string]uint64 // 每个 ID 的 Remove 次数
	group    singleflight.Group
}

// NewSessionCache 创建会话缓存
func NewSessionCache() *SessionCache {
	return &SessionCache{
		sessions: make(map[string]Session),
		removals: make(map[string]uint64),
	}
}

// Get 获取会话
func (c *SessionCache) Get(id string) (Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[id]
	return s, ok
}

// Put 写入会话，已有的会被替换
func (c *SessionCache) Put(id string, s Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[id] = s
}

// Remove 移除会话，正在创建中的同 ID 会话也不会再写入缓存
func (c *SessionCache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, id)
	c.removals[id]++
}

// Len 缓存中的会话数
func (c *SessionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

// GetOrCreate 获取会话，不存在时调用 create 创建并缓存
// 同一 ID 的并发创建只执行一次 create，调用方拿到同一个句柄
// create 期间该 ID 被 Remove 时，新会话只返回给本次调用方，不写入缓存
func (c *SessionCache) GetOrCreate(id string, create func() (Session, error)) (Session, error) {
	if s, ok := c.Get(id); ok {
		return s, nil
	}

	v, err, _ := c.group.Do(id, func() (any, error) {
		c.mu.RLock()
		s, ok := c.sessions[id]
		gen := c.removals[id]
		c.mu.RUnlock()
		if ok {
			return s, nil
		}

		s, err := create()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.removals[id] == gen {
			c.sessions[id] = s
		}
		c.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Session), nil
}
