package service

import (
	"context"
	"testing"

	"warbler/internal/models"
	"warbler/internal/repository"
	"warbler/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	auth     *AuthService
	users    *UserService
	follows  *FollowService
	likes    *LikeService
	messages *MessageService
	feed     *FeedService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	_, rdb := testutil.NewRedis(t)

	userRepo := repository.NewUserRepository(db, rdb)
	followRepo := repository.NewFollowRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	likeRepo := repository.NewLikeRepository(db)

	follows := NewFollowService(userRepo, followRepo)
	messages := NewMessageService(messageRepo)
	feed := NewFeedService(messageRepo, messages, 100)

	return &fixture{
		db:       db,
		auth:     NewAuthService(userRepo, bcrypt.MinCost),
		users:    NewUserService(userRepo, followRepo, messageRepo, follows, feed, 100),
		follows:  follows,
		likes:    NewLikeService(messageRepo, likeRepo),
		messages: messages,
		feed:     feed,
	}
}

func (f *fixture) signup(t *testing.T, username, password string) *models.User {
	t.Helper()
	u, err := f.auth.Signup(context.Background(), SignupInput{
		Username: username,
		Email:    username + "@example.com",
		Password: password,
	})
	require.NoError(t, err)
	return u
}

func assertValidationError(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := models.AsAppError(err)
	require.True(t, ok, "expected AppError, got %T", err)
	assert.Equal(t, models.CodeValidation, appErr.Code)
	if field != "" {
		assert.Contains(t, appErr.Fields, field)
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, models.IsCode(err, code), "expected %s, got %v", code, err)
}
