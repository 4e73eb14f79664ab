package model

// ChatResponse 对话响应
type ChatResponse struct {
	Response string `json:"response"`
	ChatID   string `json:"chatId"`
}

// DeleteResponse 删除响应
type DeleteResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse 错误响应（所有API共用）
type ErrorResponse struct {
	Error string `json:"error"`
}
