// Package bootstrap connects the runtime dependencies shared by the commands.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"warbler/internal/cache"
	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/middleware"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	ApplySchema bool
}

// InitRuntime connects to the database and Redis. The Redis client is nil
// when REDIS_URL is empty or the server is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if opts.ApplySchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			_ = database.Close(db)
			return nil, nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	if strings.TrimSpace(cfg.RedisURL) == "" {
		middleware.Logger.Info("REDIS_URL not set, sessions and cache use the database")
		return db, nil, nil
	}
	return db, cache.InitRedis(cfg.RedisURL), nil
}
