package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/socialboard/internal/post"
)

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	ListFeed(ctx context.Context, viewerID string, limit int, cursor string) (*post.FeedPage, error)
	ListUserFeed(ctx context.Context, viewerID, authorID string, limit int, cursor string) (*post.FeedPage, error)
	CreatePost(ctx context.Context, authorID, content string) (*post.View, error)
	ToggleLike(ctx context.Context, postID, userID string) (*post.View, bool, error)
	AddComment(ctx context.Context, postID, userID, text string) (*post.View, error)
}

// PostHandler は投稿フィードとエンゲージメントのHTTPハンドラー。
type PostHandler struct {
	service PostServiceInterface
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface) *PostHandler {
	return &PostHandler{service: service}
}

// CreatePost は投稿を作成する。
// POST /api/v1/post/create {"content": "..."}
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	form, err := readJSON(w, r, []string{"content"})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	content, _ := form.value("content")

	view, err := h.service.CreatePost(r.Context(), userID, content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Post created successfully",
		"post":    toPostResponse(view),
	})
}

// ListPosts は全体フィードを返す。
// GET /api/v1/post/posts?limit=10&lastCreatedAt=...
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	limit, cursor := pageParams(r)
	page, err := h.service.ListFeed(r.Context(), userID, limit, cursor)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, feedPayload(page))
}

// ListUserPosts は指定ユーザーの投稿一覧を返す。
// GET /api/v1/post/user-posts/{userId}?limit=10&lastCreatedAt=...
func (h *PostHandler) ListUserPosts(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	limit, cursor := pageParams(r)
	page, err := h.service.ListUserFeed(r.Context(), userID, chi.URLParam(r, "userId"), limit, cursor)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, feedPayload(page))
}

// ToggleLike はいいねを反転させる。
// PUT /api/v1/post/{id}/like
func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	view, liked, err := h.service.ToggleLike(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	message := "Post unliked"
	if liked {
		message = "Post liked"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": message,
		"liked":   liked,
		"post":    toPostResponse(view),
	})
}

// AddComment は投稿にコメントを追加する。
// POST /api/v1/post/{id}/comment {"comment": "..."}
func (h *PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	form, err := readJSON(w, r, []string{"comment"})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	text, _ := form.value("comment")

	view, err := h.service.AddComment(r.Context(), chi.URLParam(r, "id"), userID, text)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Comment added successfully",
		"post":    toPostResponse(view),
	})
}
