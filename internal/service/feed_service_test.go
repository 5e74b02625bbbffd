package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"warbler/internal/repository"
	"warbler/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedService_HomeFeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.signup(t, "alice", "secret1")
	bob := f.signup(t, "bob", "secret1")
	carol := f.signup(t, "carol", "secret1")
	testutil.Follow(t, f.db, alice.ID, bob.ID)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	own := testutil.CreateMessage(t, f.db, alice.ID, "own", base)
	followed := testutil.CreateMessage(t, f.db, bob.ID, "followed", base.Add(time.Hour))
	testutil.CreateMessage(t, f.db, carol.ID, "stranger", base.Add(2*time.Hour))

	feed, err := f.feed.HomeFeed(ctx, alice.ID, 0)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, followed.ID, feed[0].ID)
	assert.Equal(t, own.ID, feed[1].ID)
	for _, m := range feed {
		require.NotNil(t, m.User)
		assert.NotEqual(t, carol.ID, m.UserID)
	}

	limited, err := f.feed.HomeFeed(ctx, alice.ID, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, followed.ID, limited[0].ID)

	userFeed, err := f.feed.UserFeed(ctx, carol.ID, alice.ID, 10)
	require.NoError(t, err)
	require.Len(t, userFeed, 1)
	assert.Equal(t, "stranger", userFeed[0].Text)
}

func TestFeedService_LimitIsCapped(t *testing.T) {
	f := newFixture(t)
	alice := f.signup(t, "alice", "secret1")
	base := time.Now().Add(-time.Hour)
	for i := 0; i < repository.MaxMessageListSize+5; i++ {
		testutil.CreateMessage(t, f.db, alice.ID, fmt.Sprintf("m%d", i), base.Add(time.Duration(i)*time.Second))
	}

	svc := NewFeedService(repository.NewMessageRepository(f.db), f.messages, 0)
	feed, err := svc.HomeFeed(context.Background(), alice.ID, 1000)
	require.NoError(t, err)
	assert.Len(t, feed, repository.MaxMessageListSize)
	assert.Equal(t, fmt.Sprintf("m%d", repository.MaxMessageListSize+4), feed[0].Text)
}
