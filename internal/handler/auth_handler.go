package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/socialboard/internal/auth"
	"github.com/hitoshi/socialboard/internal/middleware"
	"github.com/hitoshi/socialboard/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, in auth.RegisterInput) (*model.User, error)
	Authenticate(ctx context.Context, email, password string) (*model.Session, *model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	AvatarMaxSize int64
}

// AuthHandler は登録・ログイン・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
	now     func() time.Time
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
		now:     time.Now,
	}
}

// Register はユーザーを登録する。
// POST /api/v1/user/register（multipart: name, email, password, bio, avatar または JSON）
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	form, err := readForm(w, r, h.config.AvatarMaxSize, "name", "email", "password", "bio")
	if err != nil {
		handleServiceError(w, err)
		return
	}
	defer form.Close()

	name, _ := form.value("name")
	email, _ := form.value("email")
	password, _ := form.value("password")
	bio, _ := form.value("bio")

	if _, err := h.service.Register(r.Context(), auth.RegisterInput{
		Name:     name,
		Email:    email,
		Password: password,
		Bio:      bio,
		Avatar:   form.avatar,
	}); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
	})
}

// Login はメールアドレスとパスワードで認証し、セッションCookieを設定する。
// POST /api/v1/user/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	form, err := readJSON(w, r, []string{"email", "password"})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	email, _ := form.value("email")
	password, _ := form.value("password")

	session, user, err := h.service.Authenticate(r.Context(), email, password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	maxAge := int(session.ExpiresAt.Sub(h.now()).Seconds())
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		Expires:  session.ExpiresAt,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Log in successful",
		"user":    toUserResponse(user, true),
		"token":   session.Token,
	})
}

// Logout はセッションCookieを削除する。
// トークンはステートレスなため、有効期限まではサーバー側で無効化されない。
// GET /api/v1/user/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Logged out successfully",
	})
}
