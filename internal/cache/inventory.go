package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	UserKeyPrefix = "user:%d"
	UserTTL       = 5 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// Invalidate removes key. A nil client is a no-op.
func Invalidate(ctx context.Context, rdb *redis.Client, key string) {
	if rdb != nil {
		rdb.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, rdb *redis.Client, userID uint) {
	Invalidate(ctx, rdb, UserKey(userID))
}
