// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/socialboard/internal/model"
)

// ErrEmailAlreadyExists はメールアドレスのユニーク制約違反を表す。
// 事前チェックとINSERTの間に同じメールアドレスで登録された場合に返る。
var ErrEmailAlreadyExists = errors.New("email already exists")

// UserRepository はユーザー（認証情報を含む）の永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	// PasswordHashを含めて返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByIDs は複数IDのユーザーをまとめて取得し、IDをキーとするマップで返す。
	// 存在しないIDはマップに含まれない。
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレスが重複する場合はErrEmailAlreadyExistsを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateProfile は表示名・自己紹介・アバターを更新する。
	UpdateProfile(ctx context.Context, user *model.User) error
}

// PostFilter は投稿一覧の取得条件。
type PostFilter struct {
	// AuthorID が空でない場合は指定ユーザーの投稿のみを対象とする。
	AuthorID string
	// Before がゼロ値でない場合はcreated_atがBeforeより厳密に古い投稿のみを対象とする。
	Before time.Time
	// BeforeID が空でない場合は (created_at, id) が (Before, BeforeID) より後ろに並ぶ投稿を対象とする。
	// created_atがBeforeと同じでidがBeforeIDより小さい投稿も含まれる。
	BeforeID string
	// Limit は取得件数の上限。
	Limit int
}

// PostRepository は投稿データの永続化インターフェース。
// いいねのトグルとコメントの追記はストア側の単一のアトミック操作として実装する。
type PostRepository interface {
	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// Create は投稿を作成する。
	Create(ctx context.Context, post *model.Post) error

	// List はcreated_at降順で投稿一覧を返す。
	List(ctx context.Context, filter PostFilter) ([]*model.Post, error)

	// ToggleLike はuserIDがいいね集合に含まれていれば取り除き、含まれていなければ追加する。
	// 読み取りと書き込みを1回のアトミックな更新で行い、更新後の投稿を返す。
	// 投稿が見つからない場合はnilを返す。
	ToggleLike(ctx context.Context, postID, userID string, now time.Time) (*model.Post, error)

	// AppendComment はコメントを末尾に追加し、更新後の投稿を返す。
	// 投稿が見つからない場合はnilを返す。
	AppendComment(ctx context.Context, postID string, comment model.Comment, now time.Time) (*model.Post, error)
}
