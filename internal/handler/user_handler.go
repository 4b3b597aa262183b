package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/socialboard/internal/model"
	"github.com/hitoshi/socialboard/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	GetDetails(ctx context.Context, userID string) (*model.User, error)
	GetProfile(ctx context.Context, viewerID, profileID string, limit int, cursor string) (*user.Profile, error)
	UpdateProfile(ctx context.Context, userID string, in user.UpdateProfileInput) (*model.User, error)
}

// UserHandler はプロフィールのHTTPハンドラー。
type UserHandler struct {
	service       UserServiceInterface
	avatarMaxSize int64
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, avatarMaxSize int64) *UserHandler {
	return &UserHandler{
		service:       service,
		avatarMaxSize: avatarMaxSize,
	}
}

// GetDetails はログイン中のユーザー自身の情報を返す。
// GET /api/v1/user/get-details
func (h *UserHandler) GetDetails(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	u, err := h.service.GetDetails(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": toUserResponse(u, true),
	})
}

// GetProfile は指定ユーザーのプロフィールと投稿一覧を返す。
// GET /api/v1/user/get-profile/{id}?limit=10&lastCreatedAt=...
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	profileID := chi.URLParam(r, "id")
	limit, cursor := pageParams(r)

	profile, err := h.service.GetProfile(r.Context(), viewerID, profileID, limit, cursor)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	payload := feedPayload(profile.Posts)
	payload["user"] = toUserResponse(profile.User, profile.User.ID == viewerID)
	writeJSON(w, http.StatusOK, payload)
}

// UpdateProfile は表示名・自己紹介・アバターを更新する。
// PUT /api/v1/user/update-profile（multipart: name, bio, avatar または JSON）
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	form, err := readForm(w, r, h.avatarMaxSize, "name", "bio")
	if err != nil {
		handleServiceError(w, err)
		return
	}
	defer form.Close()

	u, err := h.service.UpdateProfile(r.Context(), userID, user.UpdateProfileInput{
		Name:   form.optional("name"),
		Bio:    form.optional("bio"),
		Avatar: form.avatar,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Profile updated successfully",
		"user":    toUserResponse(u, true),
	})
}
