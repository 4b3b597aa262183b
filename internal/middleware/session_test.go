package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/socialboard/internal/model"
)

// --- モック定義 ---

type mockTokenVerifier struct {
	verifyFn func(ctx context.Context, token string) (string, error)
}

func (m *mockTokenVerifier) Verify(ctx context.Context, token string) (string, error) {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, token)
	}
	return "", model.NewUnauthorizedError()
}

func validTokenVerifier(token, userID string) *mockTokenVerifier {
	return &mockTokenVerifier{
		verifyFn: func(_ context.Context, got string) (string, error) {
			if got == token {
				return userID, nil
			}
			return "", model.NewUnauthorizedError()
		},
	}
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) ErrorResponseBody {
	t.Helper()
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

// --- テスト ---

func TestSessionMiddleware_ValidCookie_InjectsUserID(t *testing.T) {
	mw := NewSessionMiddleware(validTokenVerifier("good-token", "user-123"))

	var capturedUserID string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := UserIDFromContext(r.Context())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		capturedUserID = userID
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/post/posts", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "good-token"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if capturedUserID != "user-123" {
		t.Errorf("userID = %q, want %q", capturedUserID, "user-123")
	}
}

func TestSessionMiddleware_BearerHeader_InjectsUserID(t *testing.T) {
	mw := NewSessionMiddleware(validTokenVerifier("good-token", "user-456"))

	var capturedUserID string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedUserID, _ = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/post/create", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if capturedUserID != "user-456" {
		t.Errorf("userID = %q, want %q", capturedUserID, "user-456")
	}
}

func TestSessionMiddleware_CookieTakesPrecedenceOverHeader(t *testing.T) {
	var seen string
	mw := NewSessionMiddleware(&mockTokenVerifier{
		verifyFn: func(_ context.Context, token string) (string, error) {
			seen = token
			return "user-1", nil
		},
	})
	handler := mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})
	req.Header.Set("Authorization", "Bearer header-token")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "cookie-token" {
		t.Errorf("verified token = %q, want cookie-token", seen)
	}
}

func TestSessionMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"トークンなし", func(*http.Request) {}},
		{"空のCookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: ""})
		}},
		{"Bearer以外のスキーム", func(r *http.Request) {
			r.Header.Set("Authorization", "Basic good-token")
		}},
		{"不正なトークン", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "forged"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := NewSessionMiddleware(validTokenVerifier("good-token", "user-1"))
			handler := mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatal("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/user/get-details", nil)
			tt.setup(req)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			body := decodeErrorBody(t, w)
			if body.Success || body.Code != model.ErrCodeUnauthorized {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestSessionMiddleware_VerifierFailure_Returns500(t *testing.T) {
	mw := NewSessionMiddleware(&mockTokenVerifier{
		verifyFn: func(context.Context, string) (string, error) {
			return "", errors.New("database unavailable")
		},
	})
	handler := mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "t"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if body := decodeErrorBody(t, w); body.Message != "Internal server error" {
		t.Errorf("message = %q, internal details must not leak", body.Message)
	}
}

func TestUserIDFromContext_NoValue_ReturnsError(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("expected error for empty context")
	}
}

func TestUserIDFromContext_ValidValue_ReturnsUserID(t *testing.T) {
	ctx := ContextWithUserID(context.Background(), "user-789")
	userID, err := UserIDFromContext(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != "user-789" {
		t.Errorf("userID = %q, want %q", userID, "user-789")
	}
}
