// Package user はユーザープロフィールのドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/socialboard/internal/avatar"
	"github.com/hitoshi/socialboard/internal/model"
	"github.com/hitoshi/socialboard/internal/post"
	"github.com/hitoshi/socialboard/internal/repository"
)

// FeedLister は指定ユーザーの投稿一覧取得インターフェース。
type FeedLister interface {
	ListUserFeed(ctx context.Context, viewerID, authorID string, limit int, cursor string) (*post.FeedPage, error)
}

// Service はプロフィールの参照・更新を提供する。
type Service struct {
	userRepo      repository.UserRepository
	feed          FeedLister
	uploader      avatar.Uploader
	avatarMaxSize int64
	now           func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// uploaderがnilの場合はアバターを保存しない。
func NewService(
	userRepo repository.UserRepository,
	feed FeedLister,
	uploader avatar.Uploader,
	avatarMaxSize int64,
) *Service {
	if uploader == nil {
		uploader = avatar.NopUploader{MaxSize: avatarMaxSize}
	}
	return &Service{
		userRepo:      userRepo,
		feed:          feed,
		uploader:      uploader,
		avatarMaxSize: avatarMaxSize,
		now:           time.Now,
	}
}

// Profile はユーザーの公開情報と投稿の先頭ページ。
type Profile struct {
	User  *model.User
	Posts *post.FeedPage
}

// UpdateProfileInput はプロフィール更新の入力。nilのフィールドは変更しない。
type UpdateProfileInput struct {
	Name   *string
	Bio    *string
	Avatar *avatar.File
}

// GetDetails はログイン中のユーザー自身の情報を返す。
func (s *Service) GetDetails(ctx context.Context, userID string) (*model.User, error) {
	return s.findUser(ctx, userID)
}

// GetProfile は指定ユーザーのプロフィールと投稿一覧を返す。
func (s *Service) GetProfile(ctx context.Context, viewerID, profileID string, limit int, cursor string) (*Profile, error) {
	user, err := s.findUser(ctx, profileID)
	if err != nil {
		return nil, err
	}

	page, err := s.feed.ListUserFeed(ctx, viewerID, user.ID, limit, cursor)
	if err != nil {
		return nil, err
	}

	return &Profile{User: user, Posts: page}, nil
}

// UpdateProfile は表示名・自己紹介・アバターを更新する。
func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*model.User, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := model.ValidateName(name); err != nil {
			return nil, err
		}
		user.Name = name
	}
	if in.Bio != nil {
		bio := strings.TrimSpace(*in.Bio)
		if err := model.ValidateBio(bio); err != nil {
			return nil, err
		}
		user.Bio = bio
	}
	if in.Avatar != nil {
		if err := avatar.Validate(in.Avatar.Filename, in.Avatar.Size, s.avatarMaxSize); err != nil {
			return nil, err
		}
		url, err := s.uploader.Upload(ctx, *in.Avatar)
		if err != nil {
			return nil, err
		}
		if url != "" {
			user.AvatarURL = url
		}
	}

	user.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)
	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	slog.Info("profile updated",
		slog.String("user_id", user.ID),
		slog.Bool("name_changed", in.Name != nil),
		slog.Bool("bio_changed", in.Bio != nil),
		slog.Bool("avatar_changed", in.Avatar != nil),
	)
	return user, nil
}

func (s *Service) findUser(ctx context.Context, userID string) (*model.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, model.NewUserNotFoundError()
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}
