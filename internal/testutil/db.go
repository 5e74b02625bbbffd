// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"testing"
	"time"

	"warbler/internal/database"
	"warbler/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory sqlite database private to t.
// The pool holds a single connection so every query sees the same database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// NewRedis returns a client backed by a miniredis instance private to t.
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// CreateUser inserts a user with a placeholder password hash.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "$2a$04$placeholderplaceholderplaceholderplaceholderplace",
	}
	u.ApplyImageDefaults()
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateMessage inserts a message authored by userID at ts.
func CreateMessage(t testing.TB, db *gorm.DB, userID uint, text string, ts time.Time) *models.Message {
	t.Helper()
	m := &models.Message{UserID: userID, Text: text, Timestamp: ts.UTC()}
	require.NoError(t, db.Create(m).Error)
	return m
}

// Follow inserts the edge follower -> followee.
func Follow(t testing.TB, db *gorm.DB, followerID, followeeID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.Follow{FollowerID: followerID, FolloweeID: followeeID}).Error)
}

// Like inserts a like by userID on messageID.
func Like(t testing.TB, db *gorm.DB, userID, messageID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.Like{UserID: userID, MessageID: messageID}).Error)
}
