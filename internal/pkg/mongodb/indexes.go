package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"gemchat/internal/model"
)

// EnsureIndexes 创建所有模型的索引，应用启动时调用
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	models := []Model{
		&model.Conversation{},
	}

	return EnsureAllIndexes(ctx, db, models...)
}
