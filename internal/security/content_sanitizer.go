// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizer は投稿本文やコメントなどユーザーが入力したテキストから
// HTMLマークアップを取り除き、プレーンテキストとして保存できる形にする。
// bluemondayのStrictPolicyを使用し、すべてのタグと属性を除去する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はユーザー入力テキストのサニタイズ機能のインターフェースを定義する。
// 投稿・コメントの保存前に使用される。
type ContentSanitizerService interface {
	// SanitizeText はHTMLタグを除去したプレーンテキストを返す。
	// script, style要素は中身ごと除去する。
	// タグ以外の文字（&や引用符を含む）は入力どおりに残す。
	// 前後の空白は除去する。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフで、複数のリクエストから共有できる。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText はHTMLタグを除去したプレーンテキストを返す。
func (s *contentSanitizer) SanitizeText(raw string) string {
	if raw == "" {
		return ""
	}
	// StrictPolicyはテキストをHTMLエスケープして返すため、保存用に元の文字へ戻す。
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}

var _ ContentSanitizerService = (*contentSanitizer)(nil)
