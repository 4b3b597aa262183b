package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/socialboard/internal/auth"
	"github.com/hitoshi/socialboard/internal/middleware"
	"github.com/hitoshi/socialboard/internal/model"
	"github.com/hitoshi/socialboard/internal/post"
	"github.com/hitoshi/socialboard/internal/user"
)

// --- モック定義 ---

type mockAuthService struct {
	registerFn     func(ctx context.Context, in auth.RegisterInput) (*model.User, error)
	authenticateFn func(ctx context.Context, email, password string) (*model.Session, *model.User, error)
}

func (m *mockAuthService) Register(ctx context.Context, in auth.RegisterInput) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, in)
	}
	return &model.User{ID: "user-1"}, nil
}

func (m *mockAuthService) Authenticate(ctx context.Context, email, password string) (*model.Session, *model.User, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, email, password)
	}
	return nil, nil, model.NewInvalidCredentialsError()
}

type mockPostService struct {
	listFeedFn     func(ctx context.Context, viewerID string, limit int, cursor string) (*post.FeedPage, error)
	listUserFeedFn func(ctx context.Context, viewerID, authorID string, limit int, cursor string) (*post.FeedPage, error)
	createPostFn   func(ctx context.Context, authorID, content string) (*post.View, error)
	toggleLikeFn   func(ctx context.Context, postID, userID string) (*post.View, bool, error)
	addCommentFn   func(ctx context.Context, postID, userID, text string) (*post.View, error)
}

func (m *mockPostService) ListFeed(ctx context.Context, viewerID string, limit int, cursor string) (*post.FeedPage, error) {
	return m.listFeedFn(ctx, viewerID, limit, cursor)
}

func (m *mockPostService) ListUserFeed(ctx context.Context, viewerID, authorID string, limit int, cursor string) (*post.FeedPage, error) {
	return m.listUserFeedFn(ctx, viewerID, authorID, limit, cursor)
}

func (m *mockPostService) CreatePost(ctx context.Context, authorID, content string) (*post.View, error) {
	return m.createPostFn(ctx, authorID, content)
}

func (m *mockPostService) ToggleLike(ctx context.Context, postID, userID string) (*post.View, bool, error) {
	return m.toggleLikeFn(ctx, postID, userID)
}

func (m *mockPostService) AddComment(ctx context.Context, postID, userID, text string) (*post.View, error) {
	return m.addCommentFn(ctx, postID, userID, text)
}

type mockUserService struct {
	getDetailsFn    func(ctx context.Context, userID string) (*model.User, error)
	getProfileFn    func(ctx context.Context, viewerID, profileID string, limit int, cursor string) (*user.Profile, error)
	updateProfileFn func(ctx context.Context, userID string, in user.UpdateProfileInput) (*model.User, error)
}

func (m *mockUserService) GetDetails(ctx context.Context, userID string) (*model.User, error) {
	return m.getDetailsFn(ctx, userID)
}

func (m *mockUserService) GetProfile(ctx context.Context, viewerID, profileID string, limit int, cursor string) (*user.Profile, error) {
	return m.getProfileFn(ctx, viewerID, profileID, limit, cursor)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID string, in user.UpdateProfileInput) (*model.User, error) {
	return m.updateProfileFn(ctx, userID, in)
}

// --- ヘルパー ---

// withUserID はセッションミドルウェア通過後と同じコンテキストを持つリクエストを返す。
func withUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v\nraw: %s", err, w.Body.String())
	}
	return body
}

func assertErrorBody(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Errorf("status = %d, want %d (body: %s)", w.Code, status, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
	if body["code"] != code {
		t.Errorf("code = %v, want %q", body["code"], code)
	}
}

func sampleView(id string) *post.View {
	return &post.View{
		ID:      id,
		Content: "hello",
		Author:  post.UserSummary{ID: "author-1", Name: "Alice", AvatarURL: "https://example.com/a.png", Bio: "bio"},
		Likes:   []post.UserSummary{{ID: "user-1", Name: "Bob"}},
		Comments: []post.CommentView{
			{ID: "c1", User: post.UserSummary{ID: "user-1", Name: "Bob"}, Text: "nice"},
		},
		LikesCount:           1,
		CommentsCount:        1,
		IsLikedByCurrentUser: true,
	}
}
