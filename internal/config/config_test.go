package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Server:  ServerConfig{Port: 5000, Mode: "release"},
		AI:      AIConfig{Provider: ProviderGemini},
		Storage: StorageConfig{Type: StorageTypeFile, DataDir: "data", ChatsFile: "chats.json"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "port out of range", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "unknown mode", mutate: func(c *Config) { c.Server.Mode = "prod" }, wantErr: true},
		{name: "unknown provider", mutate: func(c *Config) { c.AI.Provider = "claude" }, wantErr: true},
		{name: "mock provider", mutate: func(c *Config) { c.AI.Provider = ProviderMock }},
		{name: "file storage without file name", mutate: func(c *Config) { c.Storage.ChatsFile = "" }, wantErr: true},
		{name: "oss storage without bucket", mutate: func(c *Config) {
			c.Storage.Type = StorageTypeOSS
			c.Storage.OSS = &OSSConfig{Endpoint: "oss-cn-hangzhou.aliyuncs.com"}
		}, wantErr: true},
		{name: "oss storage", mutate: func(c *Config) {
			c.Storage.Type = StorageTypeOSS
			c.Storage.OSS = &OSSConfig{Endpoint: "oss-cn-hangzhou.aliyuncs.com", Bucket: "chats"}
		}},
		{name: "mongo storage without uri", mutate: func(c *Config) { c.Storage.Type = StorageTypeMongo }, wantErr: true},
		{name: "redis storage", mutate: func(c *Config) {
			c.Storage.Type = StorageTypeRedis
			c.Redis.Addr = "localhost:6379"
		}},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage.Type = "sqlite" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestApplyDebug(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Level = "info"

	cfg.ApplyDebug()
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "info", cfg.Log.Level)

	cfg.Server.Debug = true
	cfg.ApplyDebug()
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "debug", cfg.Log.Level)
}
