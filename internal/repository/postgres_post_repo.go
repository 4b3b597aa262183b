package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/socialboard/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
// いいね集合はuuid[]、コメント一覧はjsonb配列として1行に保持する。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

const postColumns = `id, author_id, content, likes, comments, created_at, updated_at`

// commentDoc はcommentsカラムに格納するJSON表現。
type commentDoc struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post by ID: %w", err)
	}
	return post, nil
}

// Create は投稿を作成する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	comments, err := encodeComments(post.Comments)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO posts (id, author_id, content, likes, comments, created_at, updated_at)
		 VALUES ($1, $2, $3, $4::uuid[], $5::jsonb, $6, $7)`,
		post.ID, post.AuthorID, post.Content, pq.Array(nonNilStrings(post.Likes)), comments,
		post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

// List はcreated_at降順で投稿一覧を返す。
// 同一時刻の投稿はidの降順で並べ、ページ間で順序が揺れないようにする。
func (r *PostgresPostRepo) List(ctx context.Context, filter PostFilter) ([]*model.Post, error) {
	var conditions []string
	var args []any

	if filter.AuthorID != "" {
		args = append(args, filter.AuthorID)
		conditions = append(conditions, fmt.Sprintf("author_id = $%d", len(args)))
	}
	switch {
	case !filter.Before.IsZero() && filter.BeforeID != "":
		args = append(args, filter.Before, filter.BeforeID)
		conditions = append(conditions, fmt.Sprintf("(created_at, id) < ($%d, $%d::uuid)", len(args)-1, len(args)))
	case !filter.Before.IsZero():
		args = append(args, filter.Before)
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", len(args)))
	}

	query := `SELECT ` + postColumns + ` FROM posts`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, filter.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []*model.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate post rows: %w", err)
	}

	return posts, nil
}

// ToggleLike はいいね集合へのuserIDの追加・削除を1つのUPDATE文で行う。
// 行ロックの下で現在値を評価するため、同時実行されても更新が失われない。
func (r *PostgresPostRepo) ToggleLike(ctx context.Context, postID, userID string, now time.Time) (*model.Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx,
		`UPDATE posts SET
		   likes = CASE
		     WHEN $2::uuid = ANY(likes) THEN array_remove(likes, $2::uuid)
		     ELSE array_append(likes, $2::uuid)
		   END,
		   updated_at = $3
		 WHERE id = $1
		 RETURNING `+postColumns,
		postID, userID, now,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to toggle like: %w", err)
	}
	return post, nil
}

// AppendComment はcommentsのjsonb配列の末尾にコメントを追加する。
func (r *PostgresPostRepo) AppendComment(ctx context.Context, postID string, comment model.Comment, now time.Time) (*model.Post, error) {
	payload, err := encodeComments([]model.Comment{comment})
	if err != nil {
		return nil, err
	}

	post, err := scanPost(r.db.QueryRowContext(ctx,
		`UPDATE posts SET comments = comments || $2::jsonb, updated_at = $3
		 WHERE id = $1
		 RETURNING `+postColumns,
		postID, payload, now,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to append comment: %w", err)
	}
	return post, nil
}

func scanPost(row rowScanner) (*model.Post, error) {
	post := &model.Post{}
	var likes pq.StringArray
	var comments []byte

	if err := row.Scan(
		&post.ID, &post.AuthorID, &post.Content, &likes, &comments,
		&post.CreatedAt, &post.UpdatedAt,
	); err != nil {
		return nil, err
	}

	decoded, err := decodeComments(comments)
	if err != nil {
		return nil, err
	}

	post.Likes = []string(likes)
	post.Comments = decoded
	post.CreatedAt = post.CreatedAt.UTC()
	post.UpdatedAt = post.UpdatedAt.UTC()
	return post, nil
}

func encodeComments(comments []model.Comment) ([]byte, error) {
	docs := make([]commentDoc, 0, len(comments))
	for _, c := range comments {
		docs = append(docs, commentDoc{
			ID:        c.ID,
			UserID:    c.UserID,
			Comment:   c.Text,
			CreatedAt: c.CreatedAt.UTC(),
		})
	}
	b, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode comments: %w", err)
	}
	return b, nil
}

func decodeComments(raw []byte) ([]model.Comment, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var docs []commentDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode comments: %w", err)
	}
	comments := make([]model.Comment, 0, len(docs))
	for _, d := range docs {
		comments = append(comments, model.Comment{
			ID:        d.ID,
			UserID:    d.UserID,
			Text:      d.Comment,
			CreatedAt: d.CreatedAt.UTC(),
		})
	}
	return comments, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
