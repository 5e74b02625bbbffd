package repository

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"warbler/internal/cache"
	"warbler/internal/models"
	"warbler/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestUserRepository_SearchEscapesWildcards(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE username LIKE $1 ESCAPE '\' ORDER BY username ASC LIMIT $2`)).
		WithArgs(`%50\%\_off%`, MaxUserListSize).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email"}).AddRow(4, "50%_off", "deal@example.com"))

	users, err := repo.Search(context.Background(), "50%_off", 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "50%_off", users[0].Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateConflict(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db, nil)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Username: "dupe", Email: "a@example.com", Password: "x"}))

	err := repo.Create(ctx, &models.User{Username: "dupe", Email: "b@example.com", Password: "x"})
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeConflict))
	appErr, _ := models.AsAppError(err)
	assert.Equal(t, "Username already taken", appErr.Message)

	err = repo.Create(ctx, &models.User{Username: "other", Email: "a@example.com", Password: "x"})
	require.Error(t, err)
	appErr, _ = models.AsAppError(err)
	assert.Equal(t, "Email already taken", appErr.Message)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUserRepository_GetByIDUsesCache(t *testing.T) {
	db := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)
	repo := NewUserRepository(db, rdb)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "alice")

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Empty(t, got.Password)
	assert.True(t, mr.Exists(cache.UserKey(u.ID)))

	withPassword, err := repo.GetWithPassword(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, withPassword.Password)

	withPassword.Bio = "hello"
	require.NoError(t, repo.Update(ctx, withPassword))
	assert.False(t, mr.Exists(cache.UserKey(u.ID)))

	_, err = repo.GetByID(ctx, 999)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestUserRepository_GetByUsernameIsExact(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db, nil)
	testutil.CreateUser(t, db, "alice")

	u, err := repo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, u)

	u, err = repo.GetByUsername(context.Background(), "ali")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db, nil)
	ctx := context.Background()
	now := time.Now()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	aliceMsg := testutil.CreateMessage(t, db, alice.ID, "alice says hi", now)
	bobMsg := testutil.CreateMessage(t, db, bob.ID, "bob says hi", now)
	testutil.Follow(t, db, alice.ID, bob.ID)
	testutil.Follow(t, db, bob.ID, alice.ID)
	testutil.Like(t, db, bob.ID, aliceMsg.ID)
	testutil.Like(t, db, alice.ID, bobMsg.ID)
	require.NoError(t, db.Create(&models.Session{ID: "s1", UserID: alice.ID, ExpiresAt: now.Add(time.Hour)}).Error)

	require.NoError(t, repo.Delete(ctx, alice.ID))

	count := func(model any, where string, args ...any) int64 {
		var n int64
		require.NoError(t, db.Model(model).Where(where, args...).Count(&n).Error)
		return n
	}
	assert.Zero(t, count(&models.User{}, "id = ?", alice.ID))
	assert.Zero(t, count(&models.Message{}, "user_id = ?", alice.ID))
	assert.Zero(t, count(&models.Follow{}, "follower_id = ? OR followee_id = ?", alice.ID, alice.ID))
	assert.Zero(t, count(&models.Like{}, "user_id = ? OR message_id = ?", alice.ID, aliceMsg.ID))
	assert.Zero(t, count(&models.Session{}, "user_id = ?", alice.ID))
	assert.Equal(t, int64(1), count(&models.Message{}, "user_id = ?", bob.ID))

	err := repo.Delete(ctx, alice.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestUserRepository_Stats(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db, nil)
	now := time.Now()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carol := testutil.CreateUser(t, db, "carol")
	m := testutil.CreateMessage(t, db, bob.ID, "one", now)
	testutil.CreateMessage(t, db, alice.ID, "two", now)
	testutil.Follow(t, db, alice.ID, bob.ID)
	testutil.Follow(t, db, alice.ID, carol.ID)
	testutil.Follow(t, db, carol.ID, alice.ID)
	testutil.Like(t, db, alice.ID, m.ID)

	stats, err := repo.Stats(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, UserStats{Messages: 1, Following: 2, Followers: 1, Likes: 1}, *stats)
}

func TestFollowRepository_Lifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	created, err := repo.Create(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, created)

	exists, err := repo.Exists(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.Exists(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	following, err := repo.ListFollowing(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, "bob", following[0].Username)

	followers, err := repo.ListFollowers(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, "alice", followers[0].Username)

	removed, err := repo.Delete(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = repo.Delete(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMessageRepository_FeedAndDetails(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carolMsg := testutil.CreateMessage(t, db, testutil.CreateUser(t, db, "carol").ID, "carol", base.Add(3*time.Minute))
	own := testutil.CreateMessage(t, db, alice.ID, "alice", base)
	followed := testutil.CreateMessage(t, db, bob.ID, "bob", base.Add(time.Minute))
	testutil.Follow(t, db, alice.ID, bob.ID)
	testutil.Like(t, db, alice.ID, followed.ID)
	testutil.Like(t, db, bob.ID, followed.ID)

	feed, err := repo.Feed(ctx, alice.ID, 100)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, followed.ID, feed[0].ID)
	assert.Equal(t, own.ID, feed[1].ID)
	assert.Equal(t, 2, feed[0].LikesCount)
	assert.True(t, feed[0].Liked)
	assert.False(t, feed[1].Liked)
	require.NotNil(t, feed[0].User)
	assert.Equal(t, "bob", feed[0].User.Username)
	for _, m := range feed {
		assert.NotEqual(t, carolMsg.ID, m.ID)
	}

	limited, err := repo.Feed(ctx, alice.ID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	anon, err := repo.GetByID(ctx, followed.ID, 0)
	require.NoError(t, err)
	assert.False(t, anon.Liked)
	assert.Equal(t, 2, anon.LikesCount)

	liked, err := repo.ListLikedBy(ctx, alice.ID, 0, alice.ID)
	require.NoError(t, err)
	require.Len(t, liked, 1)
	assert.Equal(t, followed.ID, liked[0].ID)
}

func TestMessageRepository_DeleteRemovesLikes(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	m := testutil.CreateMessage(t, db, alice.ID, "bye", time.Now())
	testutil.Like(t, db, alice.ID, m.ID)

	require.NoError(t, repo.Delete(ctx, m.ID))

	var likes int64
	require.NoError(t, db.Model(&models.Like{}).Count(&likes).Error)
	assert.Zero(t, likes)

	_, err := repo.GetByID(ctx, m.ID, 0)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	assert.True(t, models.IsCode(repo.Delete(ctx, m.ID), models.CodeNotFound))
}

func TestLikeRepository_ToggleIsInvolution(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	m := testutil.CreateMessage(t, db, alice.ID, "like me", time.Now())

	liked, err := repo.Toggle(ctx, alice.ID, m.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	isLiked, err := repo.IsLiked(ctx, alice.ID, m.ID)
	require.NoError(t, err)
	assert.True(t, isLiked)

	liked, err = repo.Toggle(ctx, alice.ID, m.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	isLiked, err = repo.IsLiked(ctx, alice.ID, m.ID)
	require.NoError(t, err)
	assert.False(t, isLiked)
}

func TestLikeRepository_ConcurrentToggles(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewLikeRepository(db)
	alice := testutil.CreateUser(t, db, "alice")
	m := testutil.CreateMessage(t, db, alice.ID, "race me", time.Now())

	const workers = 16
	results := make([]bool, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = repo.Toggle(context.Background(), alice.ID, m.ID)
		}(i)
	}
	wg.Wait()

	balance := 0
	for i := range results {
		require.NoError(t, errs[i])
		if results[i] {
			balance++
		} else {
			balance--
		}
	}

	var rows int64
	require.NoError(t, db.Model(&models.Like{}).Where("message_id = ?", m.ID).Count(&rows).Error)
	assert.LessOrEqual(t, rows, int64(1))
	assert.EqualValues(t, rows, balance)
}

func TestLikeRepository_UniquePerUserMessage(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	m := testutil.CreateMessage(t, db, alice.ID, "once", time.Now())
	testutil.Like(t, db, alice.ID, m.ID)

	err := db.Create(&models.Like{UserID: alice.ID, MessageID: m.ID}).Error
	require.Error(t, err)
	assert.True(t, isUniqueConstraintError(err))
}

func TestSessionRepository_Expiry(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	alice := testutil.CreateUser(t, db, "alice")
	require.NoError(t, repo.Create(ctx, &models.Session{ID: "live", UserID: alice.ID, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.Create(ctx, &models.Session{ID: "stale", UserID: alice.ID, ExpiresAt: now.Add(-time.Hour)}))

	s, err := repo.GetActive(ctx, "live", now)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, alice.ID, s.UserID)

	s, err = repo.GetActive(ctx, "stale", now)
	require.NoError(t, err)
	assert.Nil(t, s)

	purged, err := repo.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	require.NoError(t, repo.DeleteByUser(ctx, alice.ID))
	s, err = repo.GetActive(ctx, "live", now)
	require.NoError(t, err)
	assert.Nil(t, s)
}
