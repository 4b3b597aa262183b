// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashはbcryptハッシュで、クライアントには決してシリアライズしない。
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Bio          string
	AvatarURL    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session はステートレスなログインセッションを表す。
// サーバー側には保存せず、署名と有効期限のみで検証する。
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}
