package post

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/socialboard/internal/model"
)

// ToggleLike はuserIDのいいねを反転させ、更新後の投稿とトグル後の状態を返す。
// 反転はストア側の単一のアトミック操作で行うため、同時実行されても更新は失われない。
func (s *Service) ToggleLike(ctx context.Context, postID, userID string) (*View, bool, error) {
	if _, err := uuid.Parse(postID); err != nil {
		return nil, false, model.NewPostNotFoundError(postID)
	}

	post, err := s.postRepo.ToggleLike(ctx, postID, userID, s.now().UTC().Truncate(time.Millisecond))
	if err != nil {
		return nil, false, fmt.Errorf("failed to toggle like: %w", err)
	}
	if post == nil {
		return nil, false, model.NewPostNotFoundError(postID)
	}

	liked := post.LikedBy(userID)
	s.metrics.RecordLikeToggled(liked)
	slog.Debug("like toggled",
		slog.String("post_id", postID),
		slog.String("user_id", userID),
		slog.Bool("liked", liked),
	)

	view, err := s.projectOne(ctx, userID, post)
	if err != nil {
		return nil, false, err
	}
	return view, liked, nil
}

// AddComment は投稿の末尾にコメントを追加し、更新後の投稿を返す。
// コメントはマークアップを除去・トリムした後に1〜500文字であること。
func (s *Service) AddComment(ctx context.Context, postID, userID, text string) (*View, error) {
	text = s.sanitizer.SanitizeText(text)
	if text == "" {
		return nil, model.NewValidationError("Comment is required")
	}
	if utf8.RuneCountInString(text) > model.CommentMaxLength {
		return nil, model.NewValidationError("Comment cannot exceed 500 characters")
	}
	if _, err := uuid.Parse(postID); err != nil {
		return nil, model.NewPostNotFoundError(postID)
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	comment := model.Comment{
		ID:        uuid.New().String(),
		UserID:    userID,
		Text:      text,
		CreatedAt: now,
	}

	post, err := s.postRepo.AppendComment(ctx, postID, comment, now)
	if err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(postID)
	}

	s.metrics.RecordCommentAdded()
	slog.Info("comment added",
		slog.String("post_id", postID),
		slog.String("comment_id", comment.ID),
		slog.String("user_id", userID),
	)

	return s.projectOne(ctx, userID, post)
}
