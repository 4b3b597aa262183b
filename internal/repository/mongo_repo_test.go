package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/hitoshi/socialboard/internal/database"
)

func TestMongoRepos_ImplementInterfaces(t *testing.T) {
	var _ UserRepository = (*MongoUserRepo)(nil)
	var _ PostRepository = (*MongoPostRepo)(nil)
}

// setupMongo はテスト用のMongoDBデータベースを準備する。
// TEST_MONGO_URI が未設定または接続できない場合はスキップする。
func setupMongo(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI が未設定のためスキップ")
	}

	client, err := database.OpenMongo(uri)
	if err != nil {
		t.Fatalf("MongoDBクライアントの生成に失敗: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		t.Skipf("テスト用MongoDBに接続できません（スキップ）: %v", err)
	}

	db := client.Database("socialboard_test_" + uuid.NewString()[:8])
	if err := database.EnsureMongoIndexes(ctx, db); err != nil {
		t.Fatalf("インデックス作成に失敗: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

func TestMongoRepos_Contract(t *testing.T) {
	db := setupMongo(t)
	runRepositoryContract(t, NewMongoUserRepo(db), NewMongoPostRepo(db))
}

func TestMongoPost_ToModel_ConvertsFields(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("JST", 9*3600))
	doc := mongoPost{
		ID:       "p1",
		AuthorID: "a1",
		Content:  "hello",
		Likes:    []string{"u1"},
		Comments: []mongoComment{
			{ID: "c1", UserID: "u2", Comment: "nice", CreatedAt: at},
		},
		CreatedAt: at,
		UpdatedAt: at,
	}

	post := doc.toModel()

	if post.ID != "p1" || post.AuthorID != "a1" || post.Content != "hello" {
		t.Errorf("toModel = %+v", post)
	}
	if !post.LikedBy("u1") {
		t.Error("expected post liked by u1")
	}
	if len(post.Comments) != 1 || post.Comments[0].Text != "nice" || post.Comments[0].UserID != "u2" {
		t.Errorf("Comments = %+v", post.Comments)
	}
	if post.CreatedAt.Location() != time.UTC {
		t.Errorf("CreatedAt location = %v, want UTC", post.CreatedAt.Location())
	}
}
