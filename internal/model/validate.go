package model

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// 入力値の長さ制限
const (
	NameMinLength     = 2
	NameMaxLength     = 30
	PasswordMinLength = 6
	PasswordMaxBytes  = 72
	EmailMaxLength    = 320
	BioMaxLength      = 200
	PostMaxLength     = 1000
	CommentMaxLength  = 500
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail はメールアドレスの前後の空白を除去し小文字化する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateName は表示名の長さを検証する。nameはトリム済みであること。
func ValidateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < NameMinLength {
		return NewValidationError("Name should have more than 2 characters")
	}
	if n > NameMaxLength {
		return NewValidationError("Name cannot exceed 30 characters")
	}
	return nil
}

// ValidateEmail はメールアドレスの形式と長さを検証する。
func ValidateEmail(email string) error {
	if utf8.RuneCountInString(email) > EmailMaxLength {
		return NewValidationError("Email cannot exceed 320 characters")
	}
	if !emailPattern.MatchString(email) {
		return NewValidationError("Please enter a valid email")
	}
	return nil
}

// ValidatePassword はパスワードの長さを検証する。
// bcryptは72バイトを超える入力を扱えないため、上限はバイト数で判定する。
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < PasswordMinLength {
		return NewValidationError("Password should be at least 6 characters")
	}
	if len(password) > PasswordMaxBytes {
		return NewValidationError("Password cannot exceed 72 bytes")
	}
	return nil
}

// ValidateBio は自己紹介の長さを検証する。
func ValidateBio(bio string) error {
	if utf8.RuneCountInString(bio) > BioMaxLength {
		return NewValidationError("Bio cannot exceed 200 characters")
	}
	return nil
}
