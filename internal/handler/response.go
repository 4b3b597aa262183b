// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/socialboard/internal/middleware"
	"github.com/hitoshi/socialboard/internal/model"
	"github.com/hitoshi/socialboard/internal/post"
)

// --- レスポンス型 ---

// userResponse はユーザー情報のレスポンス。パスワードハッシュは含めない。
// Emailは本人の情報を返す場合のみ設定する。
type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Bio       string    `json:"bio"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type authorResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Bio    string `json:"bio"`
}

type likerResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type commentUserResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type commentResponse struct {
	ID        string              `json:"id"`
	User      commentUserResponse `json:"user"`
	Comment   string              `json:"comment"`
	CreatedAt time.Time           `json:"createdAt"`
}

// postResponse はすべてのエンドポイントで共通の投稿レスポンス。
type postResponse struct {
	ID                   string            `json:"id"`
	Content              string            `json:"content"`
	Author               authorResponse    `json:"author"`
	Likes                []likerResponse   `json:"likes"`
	Comments             []commentResponse `json:"comments"`
	LikesCount           int               `json:"likesCount"`
	CommentsCount        int               `json:"commentsCount"`
	IsLikedByCurrentUser bool              `json:"isLikedByCurrentUser"`
	CreatedAt            time.Time         `json:"createdAt"`
	UpdatedAt            time.Time         `json:"updatedAt"`
}

func toUserResponse(u *model.User, includeEmail bool) userResponse {
	resp := userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Bio:       u.Bio,
		Avatar:    u.AvatarURL,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if includeEmail {
		resp.Email = u.Email
	}
	return resp
}

func toPostResponse(v *post.View) postResponse {
	resp := postResponse{
		ID:      v.ID,
		Content: v.Content,
		Author: authorResponse{
			ID:     v.Author.ID,
			Name:   v.Author.Name,
			Avatar: v.Author.AvatarURL,
			Bio:    v.Author.Bio,
		},
		Likes:                make([]likerResponse, 0, len(v.Likes)),
		Comments:             make([]commentResponse, 0, len(v.Comments)),
		LikesCount:           v.LikesCount,
		CommentsCount:        v.CommentsCount,
		IsLikedByCurrentUser: v.IsLikedByCurrentUser,
		CreatedAt:            v.CreatedAt,
		UpdatedAt:            v.UpdatedAt,
	}
	for _, l := range v.Likes {
		resp.Likes = append(resp.Likes, likerResponse{ID: l.ID, Name: l.Name})
	}
	for _, c := range v.Comments {
		resp.Comments = append(resp.Comments, commentResponse{
			ID: c.ID,
			User: commentUserResponse{
				ID:     c.User.ID,
				Name:   c.User.Name,
				Avatar: c.User.AvatarURL,
			},
			Comment:   c.Text,
			CreatedAt: c.CreatedAt,
		})
	}
	return resp
}

func toPostResponses(views []post.View) []postResponse {
	out := make([]postResponse, 0, len(views))
	for i := range views {
		out = append(out, toPostResponse(&views[i]))
	}
	return out
}

// feedPayload はフィード1ページ分のレスポンス項目を返す。
func feedPayload(page *post.FeedPage) map[string]any {
	return map[string]any{
		"posts":      toPostResponses(page.Posts),
		"hasMore":    page.HasMore,
		"nextCursor": page.NextCursor,
	}
}

// --- 共通処理 ---

// writeJSON は{success: true, ...payload}形式のJSONレスポンスを書き込む。
// payloadにsuccessが含まれる場合はその値を使う。
func writeJSON(w http.ResponseWriter, statusCode int, payload map[string]any) {
	body := make(map[string]any, len(payload)+1)
	body["success"] = true
	for k, v := range payload {
		body[k] = v
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
// APIError以外のエラーはログに記録し、詳細を返さずに500とする。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation, model.ErrCodeInvalidCursor:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeCSRF:
		return http.StatusForbidden
	case model.ErrCodePostNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeEmailRegistered:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// requireUserID はセッションミドルウェアが注入したユーザーIDを返す。
// 取得できない場合は401を書き込んでfalseを返す。
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return "", false
	}
	return userID, true
}

// pageParams はlimitとlastCreatedAtクエリパラメータを読み取る。
// 数値として解釈できないlimitは0（既定値）として扱う。
func pageParams(r *http.Request) (int, string) {
	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil {
		limit = 0
	}
	return limit, q.Get("lastCreatedAt")
}
