package component

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gemchat/internal/config"
)

func TestNewChatModel(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		cfg      config.AIConfig
		wantErr  bool
		wantMock bool
	}{
		{name: "mock", cfg: config.AIConfig{Provider: config.ProviderMock}, wantMock: true},
		{name: "gemini", cfg: config.AIConfig{Provider: config.ProviderGemini, APIKey: "k", Model: "gemini-2.0-flash"}},
		{name: "default provider is gemini", cfg: config.AIConfig{APIKey: "k", Model: "gemini-2.0-flash"}},
		{name: "openai", cfg: config.AIConfig{Provider: config.ProviderOpenAI, APIKey: "k", Model: "gpt-4o-mini"}},
		{name: "unsupported", cfg: config.AIConfig{Provider: "anthropic"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewChatModel(ctx, &tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, m)

			_, isMock := m.(*MockChatModel)
			assert.Equal(t, tt.wantMock, isMock)
		})
	}
}

func TestMockChatModel(t *testing.T) {
	m := NewMockChatModel()
	ctx := context.Background()

	out, err := m.Generate(ctx, []*schema.Message{
		schema.UserMessage("first"),
		schema.AssistantMessage("[mock turn 1] first", nil),
		schema.UserMessage("second"),
	})
	require.NoError(t, err)
	assert.Equal(t, schema.Assistant, out.Role)
	assert.Equal(t, "[mock turn 2] second", out.Content)

	_, err = m.Generate(ctx, []*schema.Message{schema.SystemMessage("sys")})
	assert.Error(t, err)

	stream, err := m.Stream(ctx, []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	defer stream.Close()
	chunk, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "[mock turn 1] hi", chunk.Content)
}
