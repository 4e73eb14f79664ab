package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"gemchat/internal/ai"
	"gemchat/internal/ai/aitest"
	"gemchat/internal/model"
	"gemchat/internal/pkg/storage/local"
	"gemchat/internal/repository"
)

type testEnv struct {
	svc      *ChatService
	repo     *repository.DocumentRepo
	provider *aitest.FakeProvider
	sessions *ai.SessionCache
	path     string
}

func newTestEnv(t *testing.T) *testEnv {
	dir := t.TempDir()
	store, err := local.NewLocalStorage(dir)
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	repo := repository.NewDocumentRepo(store, "chats.json")
	provider := aitest.NewFakeProvider()
	sessions := ai.NewSessionCache()
	return &testEnv{
		svc:      NewChatService(repo, provider, sessions),
		repo:     repo,
		provider: provider,
		sessions: sessions,
		path:     filepath.Join(dir, "chats.json"),
	}
}

func TestChatService_Chat(t *testing.T) {
	Convey("对话", t, func() {
		ctx := context.Background()
		env := newTestEnv(t)

		Convey("新对话创建两条消息", func() {
			resp, err := env.svc.Chat(ctx, &model.ChatRequest{Message: "Hello"})
			So(err, ShouldBeNil)
			So(resp.Response, ShouldEqual, "reply to Hello")
			So(resp.ChatID, ShouldNotBeEmpty)

			conv, err := env.repo.GetByID(ctx, resp.ChatID)
			So(err, ShouldBeNil)
			So(conv.Title, ShouldEqual, "Hello")
			So(conv.Messages, ShouldHaveLength, 2)
			So(conv.Messages[0].Role, ShouldEqual, model.RoleUser)
			So(conv.Messages[0].Content, ShouldEqual, "Hello")
			So(conv.Messages[1].Role, ShouldEqual, model.RoleModel)
			So(conv.Messages[1].Content, ShouldEqual, "reply to Hello")
			So(conv.CreatedAt, ShouldEqual, conv.UpdatedAt)
			So(env.sessions.Len(), ShouldEqual, 1)

			Convey("继续对话追加两条消息并复用会话", func() {
				resp2, err := env.svc.Chat(ctx, &model.ChatRequest{Message: "again", ChatID: resp.ChatID})
				So(err, ShouldBeNil)
				So(resp2.ChatID, ShouldEqual, resp.ChatID)
				So(resp2.Response, ShouldEqual, "reply to again")
				So(env.provider.Starts(), ShouldEqual, 1)

				after, err := env.repo.GetByID(ctx, resp.ChatID)
				So(err, ShouldBeNil)
				So(after.Messages, ShouldHaveLength, 4)
				So(after.Messages[2].Content, ShouldEqual, "again")
				So(after.Messages[3].Role, ShouldEqual, model.RoleModel)
				So(after.UpdatedAt, ShouldBeGreaterThanOrEqualTo, conv.UpdatedAt)
				So(after.CreatedAt, ShouldEqual, conv.CreatedAt)
			})

			Convey("会话缓存丢失后用历史重建", func() {
				env.sessions.Remove(resp.ChatID)

				_, err := env.svc.Chat(ctx, &model.ChatRequest{Message: "after restart", ChatID: resp.ChatID})
				So(err, ShouldBeNil)
				So(env.provider.Starts(), ShouldEqual, 2)

				history := env.provider.LastHistory()
				So(history, ShouldHaveLength, 2)
				So(history[0].Content, ShouldEqual, "Hello")
				So(history[1].Role, ShouldEqual, model.RoleModel)
			})

			Convey("列表按 updated_at 倒序且不含消息", func() {
				time.Sleep(2 * time.Millisecond)
				second, err := env.svc.Chat(ctx, &model.ChatRequest{Message: "second"})
				So(err, ShouldBeNil)

				list, err := env.svc.ListConversations(ctx)
				So(err, ShouldBeNil)
				So(list, ShouldHaveLength, 2)
				So(list[0].ID, ShouldEqual, second.ChatID)
				So(list[0].UpdatedAt, ShouldBeGreaterThanOrEqualTo, list[1].UpdatedAt)
				for _, c := range list {
					So(c.Messages, ShouldBeNil)
				}
			})

			Convey("详情中的回复角色为 assistant", func() {
				conv, err := env.svc.GetConversation(ctx, resp.ChatID)
				So(err, ShouldBeNil)
				So(conv.Messages[1].Role, ShouldEqual, model.RoleAssistant)

				stored, err := env.repo.GetByID(ctx, resp.ChatID)
				So(err, ShouldBeNil)
				So(stored.Messages[1].Role, ShouldEqual, model.RoleModel)
			})
		})

		Convey("空消息不读写存储也不调用模型", func() {
			_, err := env.svc.Chat(ctx, &model.ChatRequest{Message: ""})
			So(err, ShouldEqual, ErrMessageRequired)
			So(env.provider.Starts(), ShouldEqual, 0)

			_, statErr := os.Stat(env.path)
			So(os.IsNotExist(statErr), ShouldBeTrue)
		})

		Convey("不存在的对话返回 not found", func() {
			_, err := env.svc.Chat(ctx, &model.ChatRequest{Message: "hi", ChatID: "missing"})
			So(errors.Is(err, repository.ErrConversationNotFound), ShouldBeTrue)
			So(env.provider.Starts(), ShouldEqual, 0)
		})

		Convey("模型失败时用户消息保留", func() {
			resp, err := env.svc.Chat(ctx, &model.ChatRequest{Message: "first"})
			So(err, ShouldBeNil)

			boom := errors.New("quota exceeded")
			env.provider.SetErr(boom)

			_, err = env.svc.Chat(ctx, &model.ChatRequest{Message: "orphan", ChatID: resp.ChatID})
			So(errors.Is(err, boom), ShouldBeTrue)

			conv, err := env.repo.GetByID(ctx, resp.ChatID)
			So(err, ShouldBeNil)
			So(conv.Messages, ShouldHaveLength, 3)
			So(conv.Messages[2].Role, ShouldEqual, model.RoleUser)
			So(conv.Messages[2].Content, ShouldEqual, "orphan")
		})

		Convey("新对话模型失败时不落库", func() {
			env.provider.SetErr(errors.New("down"))

			_, err := env.svc.Chat(ctx, &model.ChatRequest{Message: "hi"})
			So(err, ShouldNotBeNil)

			res, err := env.repo.ReadAll(ctx)
			So(err, ShouldBeNil)
			So(res.Conversations, ShouldBeEmpty)
			So(env.sessions.Len(), ShouldEqual, 0)
		})
	})
}

func TestChatService_Manage(t *testing.T) {
	Convey("对话管理", t, func() {
		ctx := context.Background()
		env := newTestEnv(t)

		Convey("删除对话并移除会话", func() {
			resp, err := env.svc.Chat(ctx, &model.ChatRequest{Message: "Hello"})
			So(err, ShouldBeNil)

			So(env.svc.DeleteConversation(ctx, resp.ChatID), ShouldBeNil)
			So(env.sessions.Len(), ShouldEqual, 0)

			_, err = env.svc.GetConversation(ctx, resp.ChatID)
			So(err, ShouldEqual, repository.ErrConversationNotFound)

			So(env.svc.DeleteConversation(ctx, resp.ChatID), ShouldEqual, repository.ErrConversationNotFound)

			Convey("同 ID 重新导入后从导入的历史重建会话", func() {
				_, err := env.svc.ImportConversation(ctx, &model.ImportConversationRequest{
					ID: resp.ChatID,
					Messages: []model.Message{
						{Role: model.RoleUser, Content: "imported question"},
						{Role: model.RoleAssistant, Content: "imported answer"},
					},
				})
				So(err, ShouldBeNil)

				_, err = env.svc.Chat(ctx, &model.ChatRequest{Message: "next", ChatID: resp.ChatID})
				So(err, ShouldBeNil)

				history := env.provider.LastHistory()
				So(history, ShouldHaveLength, 2)
				So(history[0].Content, ShouldEqual, "imported question")
				So(history[1].Role, ShouldEqual, model.RoleModel)
			})
		})

		Convey("导入对话", func() {
			conv, err := env.svc.ImportConversation(ctx, &model.ImportConversationRequest{
				Messages: []model.Message{
					{Role: model.RoleUser, Content: "What is the capital of France?"},
					{Role: model.RoleAssistant, Content: "Paris."},
				},
			})
			So(err, ShouldBeNil)
			So(conv.ID, ShouldNotBeEmpty)
			So(conv.Title, ShouldEqual, model.DeriveTitle("What is the capital of France?"))
			So(conv.Messages[1].Role, ShouldEqual, model.RoleAssistant)
			So(conv.Messages[0].Timestamp, ShouldNotBeEmpty)

			stored, err := env.repo.GetByID(ctx, conv.ID)
			So(err, ShouldBeNil)
			So(stored.Messages[1].Role, ShouldEqual, model.RoleModel)

			Convey("重复 ID 返回冲突", func() {
				_, err := env.svc.ImportConversation(ctx, &model.ImportConversationRequest{ID: conv.ID})
				So(err, ShouldEqual, repository.ErrConversationExists)
			})
		})

		Convey("更新对话", func() {
			resp, err := env.svc.Chat(ctx, &model.ChatRequest{Message: "Hello"})
			So(err, ShouldBeNil)
			before, err := env.repo.GetByID(ctx, resp.ChatID)
			So(err, ShouldBeNil)

			Convey("只改标题不改 updated_at 且保留会话", func() {
				title := "Greetings"
				conv, err := env.svc.UpdateConversation(ctx, resp.ChatID, &model.UpdateConversationRequest{Title: &title})
				So(err, ShouldBeNil)
				So(conv.Title, ShouldEqual, "Greetings")
				So(conv.UpdatedAt, ShouldEqual, before.UpdatedAt)
				So(conv.Messages, ShouldHaveLength, 2)
				So(env.sessions.Len(), ShouldEqual, 1)
			})

			Convey("替换消息移除会话", func() {
				msgs := []model.Message{{Role: model.RoleUser, Content: "rewritten", Timestamp: model.Now()}}
				conv, err := env.svc.UpdateConversation(ctx, resp.ChatID, &model.UpdateConversationRequest{Messages: &msgs})
				So(err, ShouldBeNil)
				So(conv.Messages, ShouldHaveLength, 1)
				So(conv.UpdatedAt, ShouldBeGreaterThanOrEqualTo, before.UpdatedAt)
				So(env.sessions.Len(), ShouldEqual, 0)
			})

			Convey("不存在的对话", func() {
				title := "x"
				_, err := env.svc.UpdateConversation(ctx, "missing", &model.UpdateConversationRequest{Title: &title})
				So(err, ShouldEqual, repository.ErrConversationNotFound)
			})
		})
	})
}

func TestChatService_Validation(t *testing.T) {
	Convey("消息角色校验与就绪检查", t, func() {
		ctx := context.Background()
		env := newTestEnv(t)

		_, err := env.svc.ImportConversation(ctx, &model.ImportConversationRequest{
			Messages: []model.Message{{Role: "system", Content: "x"}},
		})
		So(errors.Is(err, ErrInvalidRole), ShouldBeTrue)

		res, err := env.repo.ReadAll(ctx)
		So(err, ShouldBeNil)
		So(res.Conversations, ShouldBeEmpty)

		recovered, err := env.svc.Ready(ctx)
		So(err, ShouldBeNil)
		So(recovered, ShouldBeFalse)

		So(os.WriteFile(env.path, []byte("{broken"), 0o644), ShouldBeNil)
		recovered, err = env.svc.Ready(ctx)
		So(err, ShouldBeNil)
		So(recovered, ShouldBeTrue)
	})
}
