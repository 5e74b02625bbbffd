package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"warbler/internal/models"
	"warbler/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_GetProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.signup(t, "alice", "secret1")
	bob := f.signup(t, "bob", "secret1")
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	older := testutil.CreateMessage(t, f.db, alice.ID, "first", base)
	newer := testutil.CreateMessage(t, f.db, alice.ID, "second", base.Add(time.Minute))
	testutil.Follow(t, f.db, bob.ID, alice.ID)
	testutil.Like(t, f.db, bob.ID, older.ID)

	profile, err := f.users.GetProfile(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.User.Username)
	assert.Empty(t, profile.User.Password)
	assert.EqualValues(t, 2, profile.MessagesCount)
	assert.EqualValues(t, 0, profile.FollowingCount)
	assert.EqualValues(t, 1, profile.FollowersCount)
	assert.True(t, profile.IsFollowing)
	assert.False(t, profile.FollowsYou)
	require.Len(t, profile.Messages, 2)
	assert.Equal(t, newer.ID, profile.Messages[0].ID)
	assert.False(t, profile.Messages[0].Liked)
	assert.True(t, profile.Messages[1].Liked)
	assert.EqualValues(t, 1, profile.Messages[1].LikesCount)

	bobProfile, err := f.users.GetProfile(ctx, bob.ID, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, bobProfile.FollowingCount)
	assert.EqualValues(t, 1, bobProfile.LikesCount)
	assert.False(t, bobProfile.IsFollowing)

	seenByAlice, err := f.users.GetProfile(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, seenByAlice.IsFollowing)
	assert.True(t, seenByAlice.FollowsYou)

	_, err = f.users.GetProfile(ctx, 9999, 0)
	assertCode(t, err, models.CodeNotFound)
}

func TestUserService_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice", "secret1")
	f.signup(t, "bob", "secret1")

	t.Run("wrong password changes nothing", func(t *testing.T) {
		_, err := f.users.UpdateProfile(ctx, UpdateProfileInput{
			UserID:   alice.ID,
			Username: "mallory",
			Email:    "alice@example.com",
			Password: "not-it",
		})
		assertCode(t, err, models.CodeAuthenticationFailed)

		got, err := f.users.GetUserByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)
	})

	t.Run("invalid fields", func(t *testing.T) {
		_, err := f.users.UpdateProfile(ctx, UpdateProfileInput{
			UserID:   alice.ID,
			Username: "alice",
			Email:    "alice@example.com",
			Bio:      strings.Repeat("x", 501),
			Password: "secret1",
		})
		assertValidationError(t, err, "bio")
	})

	t.Run("taken username", func(t *testing.T) {
		_, err := f.users.UpdateProfile(ctx, UpdateProfileInput{
			UserID:   alice.ID,
			Username: "bob",
			Email:    "alice@example.com",
			Password: "secret1",
		})
		assertCode(t, err, models.CodeConflict)
	})

	t.Run("success", func(t *testing.T) {
		updated, err := f.users.UpdateProfile(ctx, UpdateProfileInput{
			UserID:   alice.ID,
			Username: "alice2",
			Email:    "alice2@example.com",
			Bio:      "hello there",
			Location: "Berlin",
			Password: "secret1",
		})
		require.NoError(t, err)
		assert.Empty(t, updated.Password)
		assert.Equal(t, models.DefaultImageURL, updated.ImageURL)

		got, err := f.users.GetUserByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice2", got.Username)
		assert.Equal(t, "hello there", got.Bio)
		assert.Equal(t, "Berlin", got.Location)

		_, err = f.auth.Authenticate(ctx, "alice2", "secret1")
		assert.NoError(t, err, "password survives a profile update")
	})
}

func TestUserService_DeleteAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice", "secret1")
	bob := f.signup(t, "bob", "secret1")
	msg := testutil.CreateMessage(t, f.db, alice.ID, "bye", time.Now())
	testutil.Like(t, f.db, bob.ID, msg.ID)
	testutil.Follow(t, f.db, bob.ID, alice.ID)

	require.NoError(t, f.users.DeleteAccount(ctx, alice.ID))

	_, err := f.users.GetUserByID(ctx, alice.ID)
	assertCode(t, err, models.CodeNotFound)

	profile, err := f.users.GetProfile(ctx, bob.ID, 0)
	require.NoError(t, err)
	assert.Zero(t, profile.FollowingCount)
	assert.Zero(t, profile.LikesCount)

	assertCode(t, f.users.DeleteAccount(ctx, alice.ID), models.CodeNotFound)
}

func TestUserService_ListsAndSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice", "secret1")
	bob := f.signup(t, "bob", "secret1")
	carol := f.signup(t, "carol", "secret1")
	testutil.Follow(t, f.db, alice.ID, bob.ID)
	testutil.Follow(t, f.db, alice.ID, carol.ID)
	testutil.Follow(t, f.db, carol.ID, alice.ID)
	msg := testutil.CreateMessage(t, f.db, bob.ID, "likeable", time.Now())
	testutil.Like(t, f.db, alice.ID, msg.ID)

	users, err := f.users.ListUsers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, users, 3)

	users, err = f.users.ListUsers(ctx, "ar")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "carol", users[0].Username)

	_, following, err := f.users.Following(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, following, 2)
	assert.Equal(t, "bob", following[0].Username)

	_, followers, err := f.users.Followers(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, "carol", followers[0].Username)

	owner, liked, err := f.users.LikedMessages(ctx, alice.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", owner.Username)
	require.Len(t, liked, 1)
	assert.Equal(t, msg.ID, liked[0].ID)
	assert.True(t, liked[0].Liked)

	_, _, err = f.users.Following(ctx, 9999)
	assertCode(t, err, models.CodeNotFound)
}
