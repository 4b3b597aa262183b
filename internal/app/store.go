package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/socialboard/internal/config"
	"github.com/hitoshi/socialboard/internal/database"
	"github.com/hitoshi/socialboard/internal/repository"
)

// storeConnectTimeout は起動時のストア疎通確認とインデックス作成の待ち時間。
const storeConnectTimeout = 10 * time.Second

// store は選択されたバックエンドのリポジトリと接続管理をまとめる。
type store struct {
	users repository.UserRepository
	posts repository.PostRepository
	ping  func(ctx context.Context) error
	close func() error
}

// openStore はSTORE_BACKENDに応じてPostgreSQLまたはMongoDBに接続する。
// MongoDBの場合はインデックスも作成する（既存なら何もしない）。
func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.StoreBackend {
	case config.BackendMongo:
		return openMongoStore(ctx, cfg)
	default:
		return openPostgresStore(ctx, cfg)
	}
}

func openPostgresStore(ctx context.Context, cfg *config.Config) (*store, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Ping(ctx, db, storeConnectTimeout); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established", slog.String("backend", config.BackendPostgres))

	return &store{
		users: repository.NewPostgresUserRepo(db),
		posts: repository.NewPostgresPostRepo(db),
		ping:  db.PingContext,
		close: db.Close,
	}, nil
}

func openMongoStore(ctx context.Context, cfg *config.Config) (*store, error) {
	client, err := database.OpenMongo(cfg.MongoURI)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, storeConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	db := client.Database(cfg.MongoDatabase)
	if err := database.EnsureMongoIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	slog.Info("database connection established",
		slog.String("backend", config.BackendMongo),
		slog.String("database", cfg.MongoDatabase),
	)

	return &store{
		users: repository.NewMongoUserRepo(db),
		posts: repository.NewMongoPostRepo(db),
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
		close: func() error {
			return client.Disconnect(context.Background())
		},
	}, nil
}
