package model

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection conversations 集合名
func (c *Conversation) Collection() string {
	return "conversations"
}

// EnsureIndexes 列表按 updated_at 倒序，全量读取按 created_at 正序
func (c *Conversation) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("idx_updated"),
		},
		{
			Keys:    bson.D{bson.E{Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_created"),
		},
	}
	_, err := db.Collection(c.Collection()).Indexes().CreateMany(ctx, indexes)
	return err
}
