package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// OpenMongo はMongoDBクライアントを生成する。
// mongo.Connectは接続を確立しないため、実際の接続確認にはclient.Ping()を使用すること。
func OpenMongo(uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}
	return client, nil
}

// MongoIndexes はコレクション名ごとに作成するインデックス定義を返す。
func MongoIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		"users": {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("idx_users_email"),
			},
		},
		"posts": {
			{
				Keys:    bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
				Options: options.Index().SetName("idx_posts_created_at"),
			},
			{
				Keys:    bson.D{{Key: "author_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
				Options: options.Index().SetName("idx_posts_author_created_at"),
			},
		},
	}
}

// EnsureMongoIndexes はMongoIndexesの定義をすべて作成する。
// 既存の同名・同定義のインデックスがある場合は何もしない。
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	for collection, models := range MongoIndexes() {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
	}
	return nil
}
