// Package auth はパスワード認証とJWTセッションの発行・検証を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/socialboard/internal/avatar"
	"github.com/hitoshi/socialboard/internal/metrics"
	"github.com/hitoshi/socialboard/internal/model"
	"github.com/hitoshi/socialboard/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionSecret string
	SessionTTL    time.Duration
	BcryptCost    int
	AvatarMaxSize int64
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	uploader avatar.Uploader
	hasher   *PasswordHasher
	tokens   *TokenIssuer
	metrics  metrics.Recorder
	config   ServiceConfig
	now      func() time.Time
}

// NewService はServiceを生成する。
// uploaderがnilの場合はアバターを保存しない。
func NewService(
	userRepo repository.UserRepository,
	uploader avatar.Uploader,
	rec metrics.Recorder,
	config ServiceConfig,
) *Service {
	if uploader == nil {
		uploader = avatar.NopUploader{MaxSize: config.AvatarMaxSize}
	}
	return &Service{
		userRepo: userRepo,
		uploader: uploader,
		hasher:   NewPasswordHasher(config.BcryptCost),
		tokens:   NewTokenIssuer(config.SessionSecret, config.SessionTTL),
		metrics:  metrics.OrNop(rec),
		config:   config,
		now:      time.Now,
	}
}

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Bio      string
	Avatar   *avatar.File
}

// Register はユーザーを登録する。
// パスワードはbcryptハッシュのみを保存し、アバターが指定されていればアップロードする。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	name := strings.TrimSpace(in.Name)
	email := model.NormalizeEmail(in.Email)
	bio := strings.TrimSpace(in.Bio)

	if name == "" || email == "" || in.Password == "" {
		return nil, model.NewValidationError("All fields are required")
	}
	if err := model.ValidateName(name); err != nil {
		return nil, err
	}
	if err := model.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := model.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	if err := model.ValidateBio(bio); err != nil {
		return nil, err
	}
	if in.Avatar != nil {
		if err := avatar.Validate(in.Avatar.Filename, in.Avatar.Size, s.config.AvatarMaxSize); err != nil {
			return nil, err
		}
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailRegisteredError()
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	var avatarURL string
	if in.Avatar != nil {
		avatarURL, err = s.uploader.Upload(ctx, *in.Avatar)
		if err != nil {
			return nil, err
		}
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	user := &model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Bio:          bio,
		AvatarURL:    avatarURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// アップロード済みのアバターは参照されなくなるため、後から削除できるよう記録する
		if avatarURL != "" {
			slog.Warn("avatar orphaned by failed registration",
				slog.String("avatar_url", avatarURL),
				slog.String("error", err.Error()),
			)
		}
		if errors.Is(err, repository.ErrEmailAlreadyExists) {
			return nil, model.NewEmailRegisteredError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.RecordRegistration()
	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.Bool("has_avatar", avatarURL != ""),
	)
	return user, nil
}

// Authenticate はメールアドレスとパスワードを照合し、セッションを発行する。
// 未登録のメールアドレスと誤ったパスワードは同一のエラーを返し、
// 未登録の場合もbcryptの照合を行って応答時間を揃える。
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.Session, *model.User, error) {
	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, model.NewValidationError("All fields are required")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if user == nil {
		s.hasher.CompareDummy(password)
		s.metrics.RecordLogin(false)
		return nil, nil, model.NewInvalidCredentialsError()
	}
	if !s.hasher.Compare(user.PasswordHash, password) {
		s.metrics.RecordLogin(false)
		slog.Info("login failed", slog.String("user_id", user.ID))
		return nil, nil, model.NewInvalidCredentialsError()
	}

	session, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.metrics.RecordLogin(true)
	slog.Info("user logged in", slog.String("user_id", user.ID))
	return session, user, nil
}

// Verify はセッショントークンを検証し、ユーザーIDを返す。
// トークンが不正・期限切れ、またはユーザーが存在しない場合はUnauthorizedを返す。
func (s *Service) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", model.NewUnauthorizedError()
	}

	userID, err := s.tokens.Parse(token)
	if err != nil {
		slog.Debug("session token rejected", slog.String("error", err.Error()))
		return "", model.NewUnauthorizedError()
	}
	if _, err := uuid.Parse(userID); err != nil {
		return "", model.NewUnauthorizedError()
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to find session user: %w", err)
	}
	if user == nil {
		return "", model.NewUnauthorizedError()
	}

	return user.ID, nil
}

// SessionTTL はセッションの有効期間を返す。
func (s *Service) SessionTTL() time.Duration {
	return s.config.SessionTTL
}
