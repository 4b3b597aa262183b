// Package seed はデモ用のユーザーと投稿を生成する。
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/hitoshi/socialboard/internal/auth"
	"github.com/hitoshi/socialboard/internal/model"
	"github.com/hitoshi/socialboard/internal/post"
)

// DefaultPassword はシードユーザー共通のログインパスワード。
const DefaultPassword = "password123"

// 1投稿あたりのいいね・コメント数の上限
const (
	maxLikesPerPost    = 5
	maxCommentsPerPost = 3
)

// Registrar はユーザー登録を行う。auth.Serviceが実装する。
type Registrar interface {
	Register(ctx context.Context, in auth.RegisterInput) (*model.User, error)
}

// Publisher は投稿とエンゲージメントを行う。post.Serviceが実装する。
type Publisher interface {
	CreatePost(ctx context.Context, authorID, content string) (*post.View, error)
	ToggleLike(ctx context.Context, postID, userID string) (*post.View, bool, error)
	AddComment(ctx context.Context, postID, userID, text string) (*post.View, error)
}

// Config はシード生成の設定。
type Config struct {
	Users    int
	Posts    int
	Password string
	// Seed が0の場合は実行ごとに異なるデータを生成する。
	Seed uint64
}

// Result は生成した件数。
type Result struct {
	Users    int
	Posts    int
	Likes    int
	Comments int
}

// Seeder はサービス層を経由してデモデータを投入する。
// バリデーションやパスワードハッシュは本番の登録・投稿と同じ経路を通る。
type Seeder struct {
	registrar Registrar
	publisher Publisher
	config    Config
	faker     *gofakeit.Faker
	logger    *slog.Logger
}

// New はSeederを生成する。
func New(registrar Registrar, publisher Publisher, config Config, logger *slog.Logger) *Seeder {
	if config.Password == "" {
		config.Password = DefaultPassword
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		registrar: registrar,
		publisher: publisher,
		config:    config,
		faker:     gofakeit.New(config.Seed),
		logger:    logger,
	}
}

// Run はユーザーを登録し、ランダムな投稿・いいね・コメントを生成する。
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	if s.config.Users <= 0 {
		return nil, errors.New("seed users must be positive")
	}

	result := &Result{}
	userIDs := make([]string, 0, s.config.Users)

	for i := 0; i < s.config.Users; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		u, err := s.registrar.Register(ctx, s.fakeUser(i))
		if err != nil {
			var apiErr *model.APIError
			if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeEmailRegistered {
				s.logger.Warn("seed user already exists, skipping", slog.Int("index", i))
				continue
			}
			return result, fmt.Errorf("failed to register seed user: %w", err)
		}
		userIDs = append(userIDs, u.ID)
		result.Users++
	}

	if len(userIDs) == 0 {
		return result, nil
	}

	for i := 0; i < s.config.Posts; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.seedPost(ctx, userIDs, result); err != nil {
			return result, err
		}
	}

	s.logger.Info("seed completed",
		slog.Int("users", result.Users),
		slog.Int("posts", result.Posts),
		slog.Int("likes", result.Likes),
		slog.Int("comments", result.Comments),
	)
	return result, nil
}

func (s *Seeder) seedPost(ctx context.Context, userIDs []string, result *Result) error {
	author := s.pick(userIDs)
	view, err := s.publisher.CreatePost(ctx, author, s.faker.Phrase())
	if err != nil {
		return fmt.Errorf("failed to create seed post: %w", err)
	}
	result.Posts++

	likers := s.distinct(userIDs, s.faker.Number(0, min(maxLikesPerPost, len(userIDs))))
	for _, userID := range likers {
		if _, _, err := s.publisher.ToggleLike(ctx, view.ID, userID); err != nil {
			return fmt.Errorf("failed to like seed post: %w", err)
		}
		result.Likes++
	}

	for range s.faker.Number(0, maxCommentsPerPost) {
		if _, err := s.publisher.AddComment(ctx, view.ID, s.pick(userIDs), s.faker.Phrase()); err != nil {
			return fmt.Errorf("failed to comment on seed post: %w", err)
		}
		result.Comments++
	}
	return nil
}

// fakeUser はi番目のシードユーザーの登録内容を生成する。
// メールアドレスは連番を含めて一意にする。
func (s *Seeder) fakeUser(i int) auth.RegisterInput {
	first := s.faker.FirstName()
	name := truncateRunes(first+" "+s.faker.LastName(), model.NameMaxLength)
	return auth.RegisterInput{
		Name:     name,
		Email:    fmt.Sprintf("%s.%d@example.com", strings.ToLower(first), i+1),
		Password: s.config.Password,
		Bio:      truncateRunes(s.faker.JobTitle(), model.BioMaxLength),
	}
}

func (s *Seeder) pick(ids []string) string {
	return ids[s.faker.Number(0, len(ids)-1)]
}

// distinct はidsから重複なしでn件を選ぶ。
func (s *Seeder) distinct(ids []string, n int) []string {
	shuffled := append([]string(nil), ids...)
	s.faker.ShuffleStrings(shuffled)
	return shuffled[:n]
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}
