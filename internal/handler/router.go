package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/socialboard/internal/metrics"
	"github.com/hitoshi/socialboard/internal/middleware"
)

// healthCheckTimeout はヘルスチェックでストアの応答を待つ時間。
const healthCheckTimeout = 2 * time.Second

// HealthChecker はストアへの疎通確認関数。
type HealthChecker func(ctx context.Context) error

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	// CSRF がnilの場合はCSRF検証を行わない。
	CSRF   *middleware.CSRFConfig
	Logger *slog.Logger

	// メトリクス
	Metrics        metrics.Recorder
	MetricsHandler http.Handler

	// ヘルスチェック
	HealthCheck HealthChecker

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 投稿
	PostService PostServiceInterface

	// ユーザー
	UserService UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Logging → Recovery → Metrics → SecurityHeaders → CORS → CSRF（有効時） → Session（認証ルートのみ）
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(metrics.Middleware(deps.Metrics))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.Get("/health", healthHandler(deps.HealthCheck))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	postHandler := NewPostHandler(deps.PostService)
	userHandler := NewUserHandler(deps.UserService, deps.AuthConfig.AvatarMaxSize)
	session := middleware.NewSessionMiddleware(deps.TokenVerifier)

	r.Route("/api/v1", func(r chi.Router) {
		if deps.CSRF != nil {
			r.Use(middleware.NewCSRFMiddleware(*deps.CSRF))
			r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(*deps.CSRF))
		}

		r.Route("/user", func(r chi.Router) {
			// --- 認証不要のルート ---
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)

			// --- 認証が必要なルート ---
			r.Group(func(r chi.Router) {
				r.Use(session)
				r.Get("/logout", authHandler.Logout)
				r.Get("/get-details", userHandler.GetDetails)
				r.Get("/get-profile/{id}", userHandler.GetProfile)
				r.Put("/update-profile", userHandler.UpdateProfile)
			})
		})

		r.Route("/post", func(r chi.Router) {
			r.Use(session)
			r.Post("/create", postHandler.CreatePost)
			r.Get("/posts", postHandler.ListPosts)
			r.Get("/user-posts/{userId}", postHandler.ListUserPosts)
			r.Put("/{id}/like", postHandler.ToggleLike)
			r.Post("/{id}/comment", postHandler.AddComment)
		})
	})

	return r
}

// healthHandler はストアへの疎通を確認するハンドラーを返す。
// GET /health
func healthHandler(check HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := check(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]any{"success": false, "status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}
}
