package repository

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"gemchat/internal/model"
)

func newConversation(title string, msgs ...model.Message) *model.Conversation {
	now := model.Now()
	return &model.Conversation{
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  msgs,
	}
}

// runRepositoryBehaviour 所有存储实现共享的行为测试
func runRepositoryBehaviour(t *testing.T, name string, newRepo func(t *testing.T) ConversationRepository) {
	Convey(name+" 对话仓库行为", t, func() {
		ctx := context.Background()
		repo := newRepo(t)

		Convey("空存储读取为空集合", func() {
			res, err := repo.ReadAll(ctx)
			So(err, ShouldBeNil)
			So(res.Conversations, ShouldBeEmpty)
			So(res.Recovered, ShouldBeFalse)
		})

		Convey("Add 生成 ID 并把 assistant 规范化为 model", func() {
			conv := newConversation("hello",
				model.Message{Role: model.RoleUser, Content: "hi", Timestamp: model.Now()},
				model.Message{Role: model.RoleAssistant, Content: "hey", Timestamp: model.Now()},
			)
			id, err := repo.Add(ctx, conv)
			So(err, ShouldBeNil)
			So(id, ShouldNotBeEmpty)
			So(conv.ID, ShouldEqual, id)

			got, err := repo.GetByID(ctx, id)
			So(err, ShouldBeNil)
			So(got.Title, ShouldEqual, "hello")
			So(got.Messages, ShouldHaveLength, 2)
			So(got.Messages[1].Role, ShouldEqual, model.RoleModel)

			Convey("重复 ID 被拒绝", func() {
				dup := newConversation("dup")
				dup.ID = id
				_, err := repo.Add(ctx, dup)
				So(err, ShouldEqual, ErrConversationExists)
			})

			Convey("AddMessage 追加到末尾并推进 updated_at", func() {
				before := got.UpdatedAt
				err := repo.AddMessage(ctx, id, model.Message{Role: model.RoleAssistant, Content: "third", Timestamp: model.Now()})
				So(err, ShouldBeNil)

				after, err := repo.GetByID(ctx, id)
				So(err, ShouldBeNil)
				So(after.Messages, ShouldHaveLength, 3)
				So(after.Messages[2].Content, ShouldEqual, "third")
				So(after.Messages[2].Role, ShouldEqual, model.RoleModel)
				So(after.UpdatedAt, ShouldBeGreaterThanOrEqualTo, before)
				So(after.CreatedAt, ShouldEqual, got.CreatedAt)
			})

			Convey("Update 只覆盖提供的字段", func() {
				title := "renamed"
				err := repo.Update(ctx, id, &model.ConversationPatch{Title: &title})
				So(err, ShouldBeNil)

				after, err := repo.GetByID(ctx, id)
				So(err, ShouldBeNil)
				So(after.Title, ShouldEqual, "renamed")
				So(after.Messages, ShouldHaveLength, 2)

				msgs := []model.Message{{Role: model.RoleAssistant, Content: "only", Timestamp: model.Now()}}
				err = repo.Update(ctx, id, &model.ConversationPatch{Messages: &msgs})
				So(err, ShouldBeNil)

				after, err = repo.GetByID(ctx, id)
				So(err, ShouldBeNil)
				So(after.Title, ShouldEqual, "renamed")
				So(after.Messages, ShouldHaveLength, 1)
				So(after.Messages[0].Role, ShouldEqual, model.RoleModel)
			})

			Convey("ListWithoutMessages 不带消息", func() {
				list, err := repo.ListWithoutMessages(ctx)
				So(err, ShouldBeNil)
				So(list, ShouldHaveLength, 1)
				So(list[0].ID, ShouldEqual, id)
				So(list[0].Messages, ShouldBeNil)
			})

			Convey("Delete 删除一条记录", func() {
				_, err := repo.Add(ctx, newConversation("other"))
				So(err, ShouldBeNil)

				So(repo.Delete(ctx, id), ShouldBeNil)

				res, err := repo.ReadAll(ctx)
				So(err, ShouldBeNil)
				So(res.Conversations, ShouldHaveLength, 1)
				So(res.Conversations[0].Title, ShouldEqual, "other")

				_, err = repo.GetByID(ctx, id)
				So(err, ShouldEqual, ErrConversationNotFound)
			})
		})

		Convey("不存在的 ID", func() {
			_, err := repo.GetByID(ctx, "missing")
			So(err, ShouldEqual, ErrConversationNotFound)

			title := "x"
			So(repo.Update(ctx, "missing", &model.ConversationPatch{Title: &title}), ShouldEqual, ErrConversationNotFound)
			So(repo.Delete(ctx, "missing"), ShouldEqual, ErrConversationNotFound)
			So(repo.AddMessage(ctx, "missing", model.Message{Role: model.RoleUser, Content: "x"}), ShouldEqual, ErrConversationNotFound)
		})

		Convey("没有 messages 的对话可以追加消息", func() {
			id, err := repo.Add(ctx, newConversation("empty"))
			So(err, ShouldBeNil)

			got, err := repo.GetByID(ctx, id)
			So(err, ShouldBeNil)
			So(got.MessageCount(), ShouldEqual, 0)

			So(repo.AddMessage(ctx, id, model.Message{Role: model.RoleUser, Content: "first"}), ShouldBeNil)
			got, err = repo.GetByID(ctx, id)
			So(err, ShouldBeNil)
			So(got.Messages, ShouldHaveLength, 1)
		})
	})
}
