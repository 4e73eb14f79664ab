package id

import (
	"github.com/google/uuid"
)

// New 生成对话 ID（UUID v4 字符串）
func New() string {
	return uuid.NewString()
}

// IsValid 验证UUID格式是否有效
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
