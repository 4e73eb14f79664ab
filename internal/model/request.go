package model

// ChatRequest 对话请求
// ChatID 为空时创建新对话
type ChatRequest struct {
	Message string `json:"message"`
	ChatID  string `json:"chatId,omitempty"`
}

// ImportConversationRequest 导入对话请求
type ImportConversationRequest struct {
	ID       string    `json:"_id,omitempty"`
	Title    string    `json:"title,omitempty"`
	Messages []Message `json:"messages"`
}

// UpdateConversationRequest 更新对话请求，未提供的字段保持不变
type UpdateConversationRequest struct {
	Title    *string    `json:"title,omitempty"`
	Messages *[]Message `json:"messages,omitempty"`
}
