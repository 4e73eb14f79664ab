package model

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"
)

// 消息角色
// 持久化只使用 user/model，对外接口使用 user/assistant
const (
	RoleUser      = "user"
	RoleModel     = "model"
	RoleAssistant = "assistant"
)

// TimestampLayout 定宽 ISO 8601（UTC），保证字符串字典序与时间顺序一致
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// TitleMaxLength 标题截断长度（字符数）
const TitleMaxLength = 30

// Now 当前时间的 ISO 8601 字符串
func Now() string {
	return FormatTime(time.Now())
}

// FormatTime 格式化时间为存储使用的时间戳
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Conversation 对话实体
type Conversation struct {
	ID        string    `bson:"_id"`
	Title     string    `bson:"title"`
	CreatedAt string    `bson:"created_at"`
	UpdatedAt string    `bson:"updated_at"`
	Messages  []Message `bson:"messages,omitempty"`

	// Extra 文档中未识别的顶层字段，读写时原样保留
	Extra  map[string]json.RawMessage `bson:"-"`
	states fieldStates
}

// Message 消息
type Message struct {
	Role      string `bson:"role"`
	Content   string `bson:"content"`
	Timestamp string `bson:"timestamp"`

	// Extra 消息中未识别的字段，读写时原样保留
	Extra  map[string]json.RawMessage `bson:"-"`
	states fieldStates
}

// ConversationPatch 对话的部分更新，nil 字段保持不变
type ConversationPatch struct {
	Title     *string
	UpdatedAt *string
	Messages  *[]Message
}

// Apply 逐字段合并到对话
func (p *ConversationPatch) Apply(conv *Conversation) {
	if p.Title != nil {
		conv.Title = *p.Title
	}
	if p.UpdatedAt != nil {
		conv.UpdatedAt = *p.UpdatedAt
	}
	if p.Messages != nil {
		conv.Messages = append([]Message{}, (*p.Messages)...)
	}
}

// NormalizeRole 对外角色转换为持久化角色（assistant -> model）
func NormalizeRole(role string) string {
	if role == RoleAssistant {
		return RoleModel
	}
	return role
}

// ExternalRole 持久化角色转换为对外角色（model -> assistant）
func ExternalRole(role string) string {
	if role == RoleModel {
		return RoleAssistant
	}
	return role
}

// NormalizeMessages 原地规范化消息角色
func NormalizeMessages(msgs []Message) {
	for i := range msgs {
		msgs[i].Role = NormalizeRole(msgs[i].Role)
	}
}

// DeriveTitle 取首条消息的前 30 个字符作为标题，超出时追加 "..."
func DeriveTitle(message string) string {
	if utf8.RuneCountInString(message) <= TitleMaxLength {
		return message
	}
	runes := []rune(message)
	return string(runes[:TitleMaxLength]) + "..."
}

// Clone 深拷贝，避免调用方修改存储层持有的数据
func (c *Conversation) Clone() *Conversation {
	out := *c
	if c.Messages != nil {
		out.Messages = append([]Message{}, c.Messages...)
	}
	if c.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(c.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = v
		}
	}
	return &out
}

// Summary 去掉 messages 字段的副本，用于列表
func (c *Conversation) Summary() *Conversation {
	out := c.Clone()
	out.Messages = nil
	out.states = out.states.without("messages")
	return out
}

// External 对外视图：messages 始终存在且 model 角色改写为 assistant
func (c *Conversation) External() *Conversation {
	out := c.Clone()
	if out.Messages == nil {
		out.Messages = []Message{}
	}
	for i := range out.Messages {
		out.Messages[i].Role = ExternalRole(out.Messages[i].Role)
	}
	return out
}

// MessageCount 消息数量，缺少 messages 字段视为 0
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// fieldState 已知字段在原始 JSON 中的形态
type fieldState uint8

const (
	fieldAbsent fieldState = iota + 1
	fieldNull
)

// fieldStates 记录缺失或为 null 的已知字段，写回时保持原样
type fieldStates map[string]fieldState

// put 值为零值且原文缺失或为 null 时按原样写回
func (s fieldStates) put(out map[string]any, key string, v any, zero bool) {
	if zero {
		switch s[key] {
		case fieldAbsent:
			return
		case fieldNull:
			out[key] = nil
			return
		}
	}
	out[key] = v
}

// without 去掉某个字段的记录
func (s fieldStates) without(key string) fieldStates {
	if _, ok := s[key]; !ok {
		return s
	}
	out := make(fieldStates, len(s))
	for k, v := range s {
		if k != key {
			out[k] = v
		}
	}
	return out
}

type rawField struct {
	key string
	dst any
}

// decodeFields 解析已知字段，返回未识别的字段和已知字段的形态
func decodeFields(data []byte, kind string, fields []rawField) (map[string]json.RawMessage, fieldStates, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}

	var states fieldStates
	mark := func(key string, st fieldState) {
		if states == nil {
			states = make(fieldStates)
		}
		states[key] = st
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok {
			mark(f.key, fieldAbsent)
			continue
		}
		delete(raw, f.key)
		if string(v) == "null" {
			mark(f.key, fieldNull)
			continue
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			return nil, nil, fmt.Errorf("%s field %q: %w", kind, f.key, err)
		}
	}
	if len(raw) == 0 {
		raw = nil
	}
	return raw, states, nil
}

func mergeExtra(out map[string]any, extra map[string]json.RawMessage, known ...string) {
	for k, v := range extra {
		out[k] = v
	}
	for _, k := range known {
		delete(out, k)
	}
}

// MarshalJSON 未识别的字段原样写回，缺失或为 null 的已知字段保持原样
func (m Message) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+3)
	mergeExtra(out, m.Extra, "role", "content", "timestamp")
	m.states.put(out, "role", m.Role, m.Role == "")
	m.states.put(out, "content", m.Content, m.Content == "")
	m.states.put(out, "timestamp", m.Timestamp, m.Timestamp == "")
	return json.Marshal(out)
}

// UnmarshalJSON 解析已知字段，其余字段保存在 Extra
func (m *Message) UnmarshalJSON(data []byte) error {
	*m = Message{}
	extra, states, err := decodeFields(data, "message", []rawField{
		{"role", &m.Role},
		{"content", &m.Content},
		{"timestamp", &m.Timestamp},
	})
	if err != nil {
		return err
	}
	m.Extra, m.states = extra, states
	return nil
}

// MarshalJSON messages 为 nil 时不输出该字段（原文为 null 时写回 null），其余未知字段原样写回
func (c Conversation) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Extra)+5)
	mergeExtra(out, c.Extra, "_id", "title", "created_at", "updated_at", "messages")
	out["_id"] = c.ID
	c.states.put(out, "title", c.Title, c.Title == "")
	c.states.put(out, "created_at", c.CreatedAt, c.CreatedAt == "")
	c.states.put(out, "updated_at", c.UpdatedAt, c.UpdatedAt == "")
	if c.Messages != nil {
		out["messages"] = c.Messages
	} else if c.states["messages"] == fieldNull {
		out["messages"] = nil
	}
	return json.Marshal(out)
}

// UnmarshalJSON 解析已知字段，其余字段保存在 Extra
func (c *Conversation) UnmarshalJSON(data []byte) error {
	*c = Conversation{}
	extra, states, err := decodeFields(data, "conversation", []rawField{
		{"_id", &c.ID},
		{"title", &c.Title},
		{"created_at", &c.CreatedAt},
		{"updated_at", &c.UpdatedAt},
		{"messages", &c.Messages},
	})
	if err != nil {
		return err
	}
	c.Extra, c.states = extra, states
	return nil
}
