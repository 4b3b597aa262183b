// Package post は投稿フィードの取得と投稿の作成を提供する。
package post

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/socialboard/internal/metrics"
	"github.com/hitoshi/socialboard/internal/model"
	"github.com/hitoshi/socialboard/internal/repository"
	"github.com/hitoshi/socialboard/internal/security"
)

// ページサイズの既定値
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ServiceConfig は投稿サービスの設定。
type ServiceConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// Service は投稿フィードとエンゲージメント（いいね・コメント）のビジネスロジックを提供する。
type Service struct {
	postRepo  repository.PostRepository
	userRepo  repository.UserRepository
	sanitizer security.ContentSanitizerService
	metrics   metrics.Recorder
	config    ServiceConfig
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	sanitizer security.ContentSanitizerService,
	rec metrics.Recorder,
	config ServiceConfig,
) *Service {
	if config.MaxLimit <= 0 {
		config.MaxLimit = MaxLimit
	}
	if config.DefaultLimit <= 0 || config.DefaultLimit > config.MaxLimit {
		config.DefaultLimit = min(DefaultLimit, config.MaxLimit)
	}
	return &Service{
		postRepo:  postRepo,
		userRepo:  userRepo,
		sanitizer: sanitizer,
		metrics:   metrics.OrNop(rec),
		config:    config,
		now:       time.Now,
	}
}

// FeedPage はフィード1ページ分の結果。
type FeedPage struct {
	Posts      []View
	HasMore    bool
	NextCursor string
}

// ListFeed は全ユーザーの投稿をcreated_at降順で返す。
// cursorが指定された場合はそれより厳密に古い投稿のみを返す。
func (s *Service) ListFeed(ctx context.Context, viewerID string, limit int, cursor string) (*FeedPage, error) {
	return s.list(ctx, viewerID, "", limit, cursor)
}

// ListUserFeed は指定ユーザーの投稿をcreated_at降順で返す。
// 形式は正しいが存在しないユーザーIDの場合は空のページを返す。
func (s *Service) ListUserFeed(ctx context.Context, viewerID, authorID string, limit int, cursor string) (*FeedPage, error) {
	if _, err := uuid.Parse(authorID); err != nil {
		return nil, model.NewUserNotFoundError()
	}
	return s.list(ctx, viewerID, authorID, limit, cursor)
}

func (s *Service) list(ctx context.Context, viewerID, authorID string, limit int, cursorStr string) (*FeedPage, error) {
	cursor, err := ParseCursor(cursorStr)
	if err != nil {
		return nil, err
	}
	limit = s.normalizeLimit(limit)

	// limit+1件を取得してHasMoreを判定する
	posts, err := s.postRepo.List(ctx, repository.PostFilter{
		AuthorID: authorID,
		Before:   cursor.CreatedAt,
		BeforeID: cursor.ID,
		Limit:    limit + 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}

	views, err := s.project(ctx, viewerID, posts)
	if err != nil {
		return nil, err
	}

	page := &FeedPage{Posts: views, HasMore: hasMore}
	if hasMore && len(views) > 0 {
		last := views[len(views)-1]
		page.NextCursor = FormatCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

// normalizeLimit は0以下を既定値に、上限超過を上限に丸める。
func (s *Service) normalizeLimit(limit int) int {
	if limit <= 0 {
		return s.config.DefaultLimit
	}
	if limit > s.config.MaxLimit {
		return s.config.MaxLimit
	}
	return limit
}

// cursorSeparator はカーソル内のcreated_atとidの区切り。
const cursorSeparator = "_"

// Cursor は次ページの開始位置。
// IDが空の場合はCreatedAtより厳密に古い投稿のみを対象とする。
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// ParseCursor は "<RFC 3339>" または "<RFC 3339>_<id>" 形式のカーソルを解釈する。
// 空文字列はゼロ値を返す。
func ParseCursor(s string) (Cursor, error) {
	if s == "" {
		return Cursor{}, nil
	}
	ts, id, hasID := strings.Cut(s, cursorSeparator)
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Cursor{}, model.NewInvalidCursorError(s)
	}
	c := Cursor{CreatedAt: t.UTC()}
	if hasID {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return Cursor{}, model.NewInvalidCursorError(s)
		}
		c.ID = parsed.String()
	}
	return c, nil
}

// FormatCursor はページ末尾の投稿のcreated_atとidを次ページ取得用のカーソル文字列にする。
func FormatCursor(t time.Time, id string) string {
	ts := t.UTC().Format(time.RFC3339Nano)
	if id == "" {
		return ts
	}
	return ts + cursorSeparator + id
}

// CreatePost は投稿を作成する。
// 本文はマークアップを除去・トリムした後に1〜1000文字であること。
func (s *Service) CreatePost(ctx context.Context, authorID, content string) (*View, error) {
	content = s.sanitizer.SanitizeText(content)
	if n := utf8.RuneCountInString(content); n < 1 || n > model.PostMaxLength {
		return nil, model.NewValidationError("Post content must be between 1 and 1000 characters")
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	post := &model.Post{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		Content:   content,
		Likes:     []string{},
		Comments:  []model.Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.metrics.RecordPostCreated()
	slog.Info("post created",
		slog.String("post_id", post.ID),
		slog.String("user_id", authorID),
	)

	return s.projectOne(ctx, authorID, post)
}
