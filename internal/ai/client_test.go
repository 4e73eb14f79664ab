package ai

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gemchat/internal/ai/component"
	"gemchat/internal/model"
)

// recordingModel 记录每次 Generate 的输入
type recordingModel struct {
	inputs [][]*schema.Message
	reply  string
	err    error
}

func (m *recordingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	m.inputs = append(m.inputs, input)
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *recordingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func roles(msgs []*schema.Message) []schema.RoleType {
	out := make([]schema.RoleType, len(msgs))
	for i, m := range msgs {
		out[i] = m.Role
	}
	return out
}

func TestClient_StartSessionReplaysHistory(t *testing.T) {
	ctx := context.Background()
	fake := &recordingModel{reply: "pong"}
	client := NewClientWithModel(fake, "be brief")

	sess, err := client.StartSession(ctx, []model.Message{
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleModel, Content: "hello"},
	})
	require.NoError(t, err)

	reply, err := sess.Send(ctx, "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", reply)

	require.Len(t, fake.inputs, 1)
	assert.Equal(t,
		[]schema.RoleType{schema.System, schema.User, schema.Assistant, schema.User},
		roles(fake.inputs[0]))
	assert.Equal(t, "ping", fake.inputs[0][3].Content)

	_, err = sess.Send(ctx, "again")
	require.NoError(t, err)
	assert.Len(t, fake.inputs[1], 6, "上一轮的问答应进入上下文")
}

func TestClient_FailedSendKeepsContext(t *testing.T) {
	ctx := context.Background()
	fake := &recordingModel{err: errors.New("quota exceeded")}
	client := NewClientWithModel(fake, "")

	sess, err := client.StartSession(ctx, nil)
	require.NoError(t, err)

	_, err = sess.Send(ctx, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, 0, sess.(*chatSession).Len())

	fake.err = nil
	fake.reply = "ok"
	_, err = sess.Send(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, 2, sess.(*chatSession).Len())
}

func TestClient_EmptyReplyIsError(t *testing.T) {
	client := NewClientWithModel(&recordingModel{reply: ""}, "")
	sess, err := client.StartSession(context.Background(), nil)
	require.NoError(t, err)

	_, err = sess.Send(context.Background(), "hello")
	assert.Error(t, err)
}

func TestClient_RejectsUnknownRole(t *testing.T) {
	client := NewClientWithModel(&recordingModel{}, "")
	_, err := client.StartSession(context.Background(), []model.Message{{Role: "tool", Content: "x"}})
	assert.Error(t, err)
}

func TestClient_MockModelCountsTurns(t *testing.T) {
	ctx := context.Background()
	client := NewClientWithModel(component.NewMockChatModel(), "")

	sess, err := client.StartSession(ctx, []model.Message{
		{Role: model.RoleUser, Content: "first"},
		{Role: model.RoleModel, Content: "reply"},
	})
	require.NoError(t, err)

	reply, err := sess.Send(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, "[mock turn 2] second", reply)
}
