package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gemchat/internal/model"
	"gemchat/internal/pkg/id"
)

// MongoRepo 对话仓库（每个对话一条文档）
type MongoRepo struct {
	collection *mongo.Collection
}

// NewMongoRepo 创建对话仓库
func NewMongoRepo(db *mongo.Database) *MongoRepo {
	var c model.Conversation
	return &MongoRepo{
		collection: db.Collection(c.Collection()),
	}
}

// ReadAll 读取全部对话（按 created_at 正序）
func (r *MongoRepo) ReadAll(ctx context.Context) (*ReadResult, error) {
	opts := options.Find().SetSort(bson.D{bson.E{Key: "created_at", Value: 1}})
	convs, err := r.find(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &ReadResult{Conversations: convs}, nil
}

// GetByID 根据 ID 查询
func (r *MongoRepo) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &conv, nil
}

// Add 新增对话
func (r *MongoRepo) Add(ctx context.Context, conv *model.Conversation) (string, error) {
	if conv.ID == "" {
		conv.ID = id.New()
	}
	model.NormalizeMessages(conv.Messages)

	if _, err := r.collection.InsertOne(ctx, conv); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrConversationExists
		}
		return "", err
	}
	return conv.ID, nil
}

// Update 部分更新
func (r *MongoRepo) Update(ctx context.Context, id string, patch *model.ConversationPatch) error {
	normalizePatch(patch)

	set := bson.M{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.UpdatedAt != nil {
		set["updated_at"] = *patch.UpdatedAt
	}
	if patch.Messages != nil {
		set["messages"] = *patch.Messages
	}

	if len(set) == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}

	result, err := r.collection.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// Delete 删除对话
func (r *MongoRepo) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// AddMessage 追加消息
func (r *MongoRepo) AddMessage(ctx context.Context, id string, msg model.Message) error {
	msg.Role = model.NormalizeRole(msg.Role)

	update := bson.M{
		"$push": bson.M{"messages": msg},
		"$set":  bson.M{"updated_at": model.Now()},
	}

	result, err := r.collection.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// ListWithoutMessages 列表（不含消息）
func (r *MongoRepo) ListWithoutMessages(ctx context.Context) ([]*model.Conversation, error) {
	opts := options.Find().
		SetSort(bson.D{bson.E{Key: "updated_at", Value: -1}}).
		SetProjection(bson.M{"messages": 0})
	return r.find(ctx, opts)
}

func (r *MongoRepo) find(ctx context.Context, opts *options.FindOptions) ([]*model.Conversation, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	convs := []*model.Conversation{}
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}
