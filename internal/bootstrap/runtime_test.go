package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"warbler/internal/config"
	"warbler/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig(t *testing.T) *config.Config {
	return &config.Config{
		Env:         "test",
		DBDriver:    "sqlite",
		DatabaseURL: filepath.Join(t.TempDir(), "warbler.db"),
	}
}

func TestInitRuntime_WithoutRedis(t *testing.T) {
	db, rdb, err := InitRuntime(context.Background(), sqliteConfig(t), Options{ApplySchema: true})
	require.NoError(t, err)
	assert.Nil(t, rdb)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	assert.True(t, db.Migrator().HasTable(&models.User{}))
	assert.True(t, db.Migrator().HasTable(&models.Session{}))
}

func TestInitRuntime_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := sqliteConfig(t)
	cfg.RedisURL = "redis://" + mr.Addr()

	db, rdb, err := InitRuntime(context.Background(), cfg, Options{})
	require.NoError(t, err)
	require.NotNil(t, rdb)
	t.Cleanup(func() {
		_ = rdb.Close()
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	assert.NoError(t, rdb.Ping(context.Background()).Err())
	assert.False(t, db.Migrator().HasTable(&models.User{}), "schema is applied only on request")
}
