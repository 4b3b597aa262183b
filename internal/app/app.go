// Package app はサブコマンドの解析と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/socialboard/internal/auth"
	"github.com/hitoshi/socialboard/internal/avatar"
	"github.com/hitoshi/socialboard/internal/config"
	"github.com/hitoshi/socialboard/internal/database"
	"github.com/hitoshi/socialboard/internal/handler"
	"github.com/hitoshi/socialboard/internal/logger"
	"github.com/hitoshi/socialboard/internal/metrics"
	"github.com/hitoshi/socialboard/internal/middleware"
	"github.com/hitoshi/socialboard/internal/post"
	"github.com/hitoshi/socialboard/internal/security"
	"github.com/hitoshi/socialboard/internal/seed"
	"github.com/hitoshi/socialboard/internal/user"
)

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再初期化する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("backend", cfg.StoreBackend),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSeed:
		return runSeed(cfg)
	default:
		return runServe(cfg)
	}
}

// services はHTTPハンドラーとシーダーが利用するドメインサービス。
type services struct {
	auth  *auth.Service
	posts *post.Service
	users *user.Service
}

// newServices はストアとメトリクスからドメインサービスを組み立てる。
// CLOUDINARY_URLが未設定の場合、アバターは検証のみ行い保存しない。
func newServices(cfg *config.Config, st *store, rec metrics.Recorder) (*services, error) {
	var uploader avatar.Uploader
	if cfg.CloudinaryURL != "" {
		cld, err := avatar.NewCloudinaryUploader(cfg.CloudinaryURL, cfg.AvatarMaxSize)
		if err != nil {
			return nil, err
		}
		uploader = cld
	}

	authService := auth.NewService(st.users, uploader, rec, auth.ServiceConfig{
		SessionSecret: cfg.SessionSecret,
		SessionTTL:    cfg.SessionTTL(),
		BcryptCost:    cfg.BcryptCost,
		AvatarMaxSize: cfg.AvatarMaxSize,
	})
	postService := post.NewService(st.posts, st.users, security.NewContentSanitizer(), rec, post.ServiceConfig{
		DefaultLimit: cfg.FeedDefaultLimit,
		MaxLimit:     cfg.FeedMaxLimit,
	})
	userService := user.NewService(st.users, postService, uploader, cfg.AvatarMaxSize)

	return &services{auth: authService, posts: postService, users: userService}, nil
}

// newHandler はメトリクスレジストリを構成し、全ルートを持つHTTPハンドラーを返す。
func newHandler(cfg *config.Config, st *store, svcs *services, collector *metrics.Collector, gatherer prometheus.Gatherer) http.Handler {
	deps := &handler.RouterDeps{
		TokenVerifier:     svcs.auth,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		Logger:            slog.Default(),
		Metrics:           collector,
		MetricsHandler:    metrics.Handler(gatherer),
		HealthCheck:       st.ping,

		AuthService: svcs.auth,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			AvatarMaxSize: cfg.AvatarMaxSize,
		},

		PostService: svcs.posts,
		UserService: svcs.users,
	}
	if cfg.CSRFProtection {
		deps.CSRF = &middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		}
	}
	return handler.NewRouter(deps)
}

// newRegistry はプロセス・ランタイムのメトリクスを含むレジストリとアプリのCollectorを生成する。
func newRegistry() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewCollector(reg)
}

// runServe はAPIサーバーモードで起動する。
// ストアに接続し、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. ストア接続
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	// 2. メトリクスとドメインサービス
	reg, collector := newRegistry()
	svcs, err := newServices(cfg, st, collector)
	if err != nil {
		return err
	}

	// 3. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      newHandler(cfg, st, svcs, collector, reg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server listen error: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はストアのスキーマを適用する。
// PostgreSQLは未適用のマイグレーションを順番に適用し、MongoDBはインデックスを作成する。
func runMigrate(cfg *config.Config) error {
	if cfg.StoreBackend == config.BackendMongo {
		st, err := openMongoStore(context.Background(), cfg)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("mongo indexes ensured")
		return st.close()
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	status, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(status.Version)),
		slog.Bool("changed", status.Changed),
	)
	return nil
}

// runSeed はデモ用のユーザーと投稿を投入する。
func runSeed(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	svcs, err := newServices(cfg, st, nil)
	if err != nil {
		return err
	}

	seeder := seed.New(svcs.auth, svcs.posts, seed.Config{
		Users: cfg.SeedUsers,
		Posts: cfg.SeedPosts,
	}, slog.Default())
	if _, err := seeder.Run(ctx); err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
