package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/hitoshi/socialboard/internal/model"
)

// PostsCollection は投稿を格納するMongoDBコレクション名。
const PostsCollection = "posts"

// mongoPost はpostsコレクションのドキュメント表現。
// いいねとコメントは投稿ドキュメントに埋め込む。
type mongoPost struct {
	ID        string         `bson:"_id"`
	AuthorID  string         `bson:"author_id"`
	Content   string         `bson:"content"`
	Likes     []string       `bson:"likes"`
	Comments  []mongoComment `bson:"comments"`
	CreatedAt time.Time      `bson:"created_at"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

type mongoComment struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Comment   string    `bson:"comment"`
	CreatedAt time.Time `bson:"created_at"`
}

func newMongoComment(c model.Comment) mongoComment {
	return mongoComment{
		ID:        c.ID,
		UserID:    c.UserID,
		Comment:   c.Text,
		CreatedAt: c.CreatedAt,
	}
}

func (d *mongoPost) toModel() *model.Post {
	post := &model.Post{
		ID:        d.ID,
		AuthorID:  d.AuthorID,
		Content:   d.Content,
		Likes:     d.Likes,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	for _, c := range d.Comments {
		post.Comments = append(post.Comments, model.Comment{
			ID:        c.ID,
			UserID:    c.UserID,
			Text:      c.Comment,
			CreatedAt: c.CreatedAt.UTC(),
		})
	}
	return post
}

// MongoPostRepo はMongoDBを使用した投稿リポジトリ。
type MongoPostRepo struct {
	coll *mongo.Collection
}

// NewMongoPostRepo はMongoPostRepoを生成する。
func NewMongoPostRepo(db *mongo.Database) *MongoPostRepo {
	return &MongoPostRepo{coll: db.Collection(PostsCollection)}
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *MongoPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	var doc mongoPost
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post by ID: %w", err)
	}
	return doc.toModel(), nil
}

// Create は投稿を作成する。
func (r *MongoPostRepo) Create(ctx context.Context, post *model.Post) error {
	doc := mongoPost{
		ID:        post.ID,
		AuthorID:  post.AuthorID,
		Content:   post.Content,
		Likes:     nonNilStrings(post.Likes),
		Comments:  []mongoComment{},
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
	}
	for _, c := range post.Comments {
		doc.Comments = append(doc.Comments, newMongoComment(c))
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

// List はcreated_at降順で投稿一覧を返す。
func (r *MongoPostRepo) List(ctx context.Context, filter PostFilter) ([]*model.Post, error) {
	query := bson.D{}
	if filter.AuthorID != "" {
		query = append(query, bson.E{Key: "author_id", Value: filter.AuthorID})
	}
	switch {
	case !filter.Before.IsZero() && filter.BeforeID != "":
		query = append(query, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "created_at", Value: bson.D{{Key: "$lt", Value: filter.Before}}}},
			bson.D{
				{Key: "created_at", Value: filter.Before},
				{Key: "_id", Value: bson.D{{Key: "$lt", Value: filter.BeforeID}}},
			},
		}})
	case !filter.Before.IsZero():
		query = append(query, bson.E{Key: "created_at", Value: bson.D{{Key: "$lt", Value: filter.Before}}})
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(filter.Limit))

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer cursor.Close(ctx)

	var posts []*model.Post
	for cursor.Next(ctx) {
		var doc mongoPost
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode post: %w", err)
		}
		posts = append(posts, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}

	return posts, nil
}

// ToggleLike はパイプライン更新でいいね集合を反転させる。
// 単一ドキュメントへのfindOneAndUpdateはアトミックに適用される。
func (r *MongoPostRepo) ToggleLike(ctx context.Context, postID, userID string, now time.Time) (*model.Post, error) {
	uid := bson.D{{Key: "$literal", Value: userID}}
	likes := bson.D{{Key: "$ifNull", Value: bson.A{"$likes", bson.A{}}}}

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "likes", Value: bson.D{{Key: "$cond", Value: bson.D{
				{Key: "if", Value: bson.D{{Key: "$in", Value: bson.A{uid, likes}}}},
				{Key: "then", Value: bson.D{{Key: "$filter", Value: bson.D{
					{Key: "input", Value: likes},
					{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{"$$this", uid}}}},
				}}}},
				{Key: "else", Value: bson.D{{Key: "$concatArrays", Value: bson.A{likes, bson.A{uid}}}}},
			}}}},
			{Key: "updated_at", Value: now},
		}}},
	}

	return r.findOneAndUpdate(ctx, postID, update)
}

// AppendComment は$pushでコメントを末尾に追加する。
func (r *MongoPostRepo) AppendComment(ctx context.Context, postID string, comment model.Comment, now time.Time) (*model.Post, error) {
	update := bson.D{
		{Key: "$push", Value: bson.D{{Key: "comments", Value: newMongoComment(comment)}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: now}}},
	}
	return r.findOneAndUpdate(ctx, postID, update)
}

func (r *MongoPostRepo) findOneAndUpdate(ctx context.Context, postID string, update any) (*model.Post, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc mongoPost
	err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: postID}}, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return doc.toModel(), nil
}

// compile-time interface check
var _ PostRepository = (*MongoPostRepo)(nil)
