// Package aitest 提供测试用的 Provider 实现
package aitest

import (
	"context"
	"fmt"
	"sync"

	"gemchat/internal/ai"
	"gemchat/internal/model"
)

// FakeProvider 记录每次 StartSession 收到的历史，回复格式为 "reply to <text>"
type FakeProvider struct {
	mu        sync.Mutex
	Histories [][]model.Message
	Sent      []string
	Err       error // 非空时 Send 返回该错误
}

// NewFakeProvider 创建 FakeProvider
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{}
}

// StartSession 记录历史并返回会话
func (p *FakeProvider) StartSession(ctx context.Context, history []model.Message) (ai.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Histories = append(p.Histories, append([]model.Message{}, history...))
	return &fakeSession{provider: p, turns: len(history) / 2}, nil
}

// Starts StartSession 的调用次数
func (p *FakeProvider) Starts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Histories)
}

// LastHistory 最近一次 StartSession 收到的历史
func (p *FakeProvider) LastHistory() []model.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Histories) == 0 {
		return nil
	}
	return p.Histories[len(p.Histories)-1]
}

// SetErr 设置 Send 返回的错误
func (p *FakeProvider) SetErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Err = err
}

type fakeSession struct {
	provider *FakeProvider
	turns    int
}

func (s *fakeSession) Send(ctx context.Context, text string) (string, error) {
	s.provider.mu.Lock()
	defer s.provider.mu.Unlock()

	if s.provider.Err != nil {
		return "", s.provider.Err
	}
	s.provider.Sent = append(s.provider.Sent, text)
	s.turns++
	return fmt.Sprintf("reply to %s", text), nil
}
