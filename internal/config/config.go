package config

import (
	"errors"
	"fmt"
	"time"
)

// Config 应用配置根结构
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	AI      AIConfig      `mapstructure:"ai"`
	Log     LogConfig     `mapstructure:"log"`
	Storage StorageConfig `mapstructure:"storage"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	Debug        bool          `mapstructure:"debug"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// AIConfig 模型服务配置
type AIConfig struct {
	Provider     string          `mapstructure:"provider"`
	APIKey       string          `mapstructure:"api_key"`
	Model        string          `mapstructure:"model"`
	BaseURL      string          `mapstructure:"base_url"`
	SystemPrompt string          `mapstructure:"system_prompt"`
	Options      AIOptionsConfig `mapstructure:"options"`
}

// AIOptionsConfig 模型参数
type AIOptionsConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// StorageConfig 对话存储配置
type StorageConfig struct {
	Type      string     `mapstructure:"type"`       // file, oss, mongo, redis
	DataDir   string     `mapstructure:"data_dir"`   // 本地数据目录
	ChatsFile string     `mapstructure:"chats_file"` // 对话文档文件名（oss 下作为对象 key）
	OSS       *OSSConfig `mapstructure:"oss,omitempty"`
}

// OSSConfig 阿里云OSS配置
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`          // OSS端点
	Bucket          string `mapstructure:"bucket"`            // Bucket名称
	AccessKeyID     string `mapstructure:"access_key_id"`     // AccessKey ID
	AccessKeySecret string `mapstructure:"access_key_secret"` // AccessKey Secret
	Prefix          string `mapstructure:"prefix"`            // 对象 key 前缀
}

// MongoConfig MongoDB 配置
type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// 支持的模型提供方
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
	ProviderArk    = "ark"
	ProviderMock   = "mock"
)

// 支持的存储类型
const (
	StorageTypeFile  = "file"
	StorageTypeOSS   = "oss"
	StorageTypeMongo = "mongo"
	StorageTypeRedis = "redis"
)

// ApplyDebug debug 开关打开时强制 debug 模式和 debug 日志
func (c *Config) ApplyDebug() {
	if !c.Server.Debug {
		return
	}
	c.Server.Mode = "debug"
	c.Log.Level = "debug"
}

// Validate 验证配置有效性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	switch c.AI.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderAzure, ProviderArk, ProviderMock:
	default:
		return fmt.Errorf("unsupported ai provider: %s", c.AI.Provider)
	}

	switch c.Storage.Type {
	case StorageTypeFile:
		if c.Storage.DataDir == "" || c.Storage.ChatsFile == "" {
			return errors.New("storage.data_dir and storage.chats_file are required")
		}
	case StorageTypeOSS:
		if c.Storage.OSS == nil || c.Storage.OSS.Endpoint == "" || c.Storage.OSS.Bucket == "" {
			return errors.New("storage.oss.endpoint and storage.oss.bucket are required")
		}
		if c.Storage.ChatsFile == "" {
			return errors.New("storage.chats_file is required")
		}
	case StorageTypeMongo:
		if c.Mongo.URI == "" {
			return errors.New("mongo.uri is required for mongo storage")
		}
	case StorageTypeRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required for redis storage")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	return nil
}
