package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound 对象不存在
var ErrObjectNotFound = errors.New("object not found")

// Storage 对象存储接口
// 对话文档以整体对象的方式读写，Upload 需要整体替换已有对象
type Storage interface {
	// Upload 写入对象（整体覆盖）
	Upload(ctx context.Context, key string, data io.Reader, contentType string) error

	// Download 读取对象，不存在时返回 ErrObjectNotFound
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// GetStorageType 获取存储类型
	GetStorageType() string

	// Location 对象的可读位置，用于日志
	Location(key string) string
}

// StorageType 存储类型
type StorageType string

const (
	StorageTypeLocal StorageType = "local" // 本地文件系统
	StorageTypeOSS   StorageType = "oss"   // 阿里云OSS
)
