// Package model はドメインモデルを定義する。
package model

import "time"

// Post はユーザーの投稿を表す。
// Likesはいいねしたユーザーの集合（順序は意味を持たない）、
// Commentsは追記のみのコメント一覧。
type Post struct {
	ID        string
	AuthorID  string
	Content   string
	Likes     []string
	Comments  []Comment
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LikedBy はuserIDがいいね集合に含まれるかを返す。
func (p *Post) LikedBy(userID string) bool {
	if userID == "" {
		return false
	}
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// Comment は投稿に付随するコメント。親の投稿に従属し、追加後は変更されない。
type Comment struct {
	ID        string
	UserID    string
	Text      string
	CreatedAt time.Time
}
