package post

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/socialboard/internal/model"
)

// UserSummary は投稿に埋め込まれるユーザーの公開情報。
type UserSummary struct {
	ID        string
	Name      string
	AvatarURL string
	Bio       string
}

// CommentView はコメントの表示用データ。
type CommentView struct {
	ID        string
	User      UserSummary
	Text      string
	CreatedAt time.Time
}

// View はすべてのエンドポイントで共通の投稿表示用データ。
type View struct {
	ID                   string
	Content              string
	Author               UserSummary
	Likes                []UserSummary
	Comments             []CommentView
	LikesCount           int
	CommentsCount        int
	IsLikedByCurrentUser bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// project は投稿一覧を表示用データに変換する。
// 作成者・いいねしたユーザー・コメント投稿者は1回のクエリでまとめて取得する。
func (s *Service) project(ctx context.Context, viewerID string, posts []*model.Post) ([]View, error) {
	views := make([]View, 0, len(posts))
	if len(posts) == 0 {
		return views, nil
	}

	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, p := range posts {
		add(p.AuthorID)
		for _, id := range p.Likes {
			add(id)
		}
		for _, c := range p.Comments {
			add(c.UserID)
		}
	}

	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load post users: %w", err)
	}

	for _, p := range posts {
		views = append(views, buildView(viewerID, p, users))
	}
	return views, nil
}

func (s *Service) projectOne(ctx context.Context, viewerID string, post *model.Post) (*View, error) {
	views, err := s.project(ctx, viewerID, []*model.Post{post})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func buildView(viewerID string, p *model.Post, users map[string]*model.User) View {
	v := View{
		ID:                   p.ID,
		Content:              p.Content,
		Author:               summarize(p.AuthorID, users),
		Likes:                make([]UserSummary, 0, len(p.Likes)),
		Comments:             make([]CommentView, 0, len(p.Comments)),
		LikesCount:           len(p.Likes),
		CommentsCount:        len(p.Comments),
		IsLikedByCurrentUser: p.LikedBy(viewerID),
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
	for _, id := range p.Likes {
		v.Likes = append(v.Likes, summarize(id, users))
	}
	for _, c := range p.Comments {
		v.Comments = append(v.Comments, CommentView{
			ID:        c.ID,
			User:      summarize(c.UserID, users),
			Text:      c.Text,
			CreatedAt: c.CreatedAt,
		})
	}
	return v
}

// summarize はユーザーの公開情報を返す。取得できなかったユーザーはIDのみを持つ。
func summarize(id string, users map[string]*model.User) UserSummary {
	u, ok := users[id]
	if !ok || u == nil {
		return UserSummary{ID: id}
	}
	return UserSummary{
		ID:        u.ID,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		Bio:       u.Bio,
	}
}
