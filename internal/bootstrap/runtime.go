package bootstrap

import (
	"context"
	"fmt"

	"chirper/internal/cache"
	"chirper/internal/config"
	"chirper/internal/database"
	"chirper/internal/middleware"
	"chirper/internal/seed"
	"chirper/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SkipSchema leaves the schema alone; chirpctl migrate manages it itself.
	SkipSchema bool
	// SkipStore skips connecting the media store.
	SkipStore bool
	// Seed, when set, fills the database with demo data after the schema is ready.
	Seed *seed.Options
}

// Runtime holds the shared connections used by cmd/server and cmd/chirpctl.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
	Store storage.ImageStore
}

// InitRuntime connects to the database, Redis and the media store.
// Redis is optional: a nil client means running without cache and with
// in-memory sessions.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rt := &Runtime{DB: db}

	if !opts.SkipSchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			rt.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	rt.Redis = cache.InitRedis(cfg.RedisURL)

	if !opts.SkipStore {
		if rt.Store, err = NewImageStore(ctx, cfg); err != nil {
			rt.Close()
			return nil, err
		}
	}

	if opts.Seed != nil {
		sum, err := seed.Seed(db, *opts.Seed)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
		middleware.Logger.Info("seeded demo data",
			"users", sum.Users, "tweets", sum.Tweets, "likes", sum.Likes, "follows", sum.Follows)
	}

	return rt, nil
}

// NewImageStore returns the media backend named by STORAGE_BACKEND.
func NewImageStore(ctx context.Context, cfg *config.Config) (storage.ImageStore, error) {
	switch cfg.StorageBackend {
	case "minio":
		s, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("minio store: %w", err)
		}
		return s, nil
	case "local", "":
		s, err := storage.NewLocalStore(cfg.MediaRoot, cfg.MediaURL)
		if err != nil {
			return nil, fmt.Errorf("local store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}

// Close releases the database pool and the Redis client.
func (rt *Runtime) Close() {
	if rt.Redis != nil {
		_ = rt.Redis.Close()
	}
	if rt.DB != nil {
		if sqlDB, err := rt.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
