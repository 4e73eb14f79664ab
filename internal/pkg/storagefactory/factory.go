package storagefactory

import (
	"context"
	"fmt"

	"gemchat/internal/config"
	"gemchat/internal/pkg/storage"
	"gemchat/internal/pkg/storage/local"
	"gemchat/internal/pkg/storage/oss"
)

// NewStorage 根据配置创建对话文档所在的对象存储
func NewStorage(ctx context.Context, cfg *config.StorageConfig) (storage.Storage, error) {
	switch cfg.Type {
	case config.StorageTypeFile, "":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("storage data_dir is required")
		}
		return local.NewLocalStorage(cfg.DataDir)
	case config.StorageTypeOSS:
		if cfg.OSS == nil {
			return nil, fmt.Errorf("OSS storage config is required")
		}
		return oss.NewOSSStorage(
			cfg.OSS.Endpoint,
			cfg.OSS.Bucket,
			cfg.OSS.AccessKeyID,
			cfg.OSS.AccessKeySecret,
			cfg.OSS.Prefix,
		)
	default:
		return nil, fmt.Errorf("storage type %s is not a document storage", cfg.Type)
	}
}
