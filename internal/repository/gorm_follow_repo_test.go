package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openblog/microblog/internal/repository"
)

func TestFollowAndIsFollowing(t *testing.T) {
	db := newTestDB(t)
	users := repository.NewGormUserRepository(db)
	follows := repository.NewGormFollowRepository(db)
	ctx := context.Background()

	alice := createUser(t, users, "alice", "alice@example.com")
	bob := createUser(t, users, "bob", "bob@example.com")

	following, err := follows.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)

	require.NoError(t, follows.Follow(ctx, alice.ID, bob.ID))

	following, err = follows.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	// Edges are directional.
	reverse, err := follows.IsFollowing(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, reverse)
}

func TestFollowDuplicateEdge(t *testing.T) {
	db := newTestDB(t)
	users := repository.NewGormUserRepository(db)
	follows := repository.NewGormFollowRepository(db)
	ctx := context.Background()

	alice := createUser(t, users, "alice", "alice@example.com")
	bob := createUser(t, users, "bob", "bob@example.com")

	require.NoError(t, follows.Follow(ctx, alice.ID, bob.ID))

	err := follows.Follow(ctx, alice.ID, bob.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrAlreadyFollowing)
	assert.ErrorIs(t, err, repository.ErrDuplicateKey)

	// Still exactly one edge.
	count, err := follows.CountFollowers(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUnfollow(t *testing.T) {
	db := newTestDB(t)
	users := repository.NewGormUserRepository(db)
	follows := repository.NewGormFollowRepository(db)
	ctx := context.Background()

	alice := createUser(t, users, "alice", "alice@example.com")
	bob := createUser(t, users, "bob", "bob@example.com")

	require.NoError(t, follows.Follow(ctx, alice.ID, bob.ID))
	require.NoError(t, follows.Unfollow(ctx, alice.ID, bob.ID))

	following, err := follows.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)

	// A second unfollow finds no edge.
	err = follows.Unfollow(ctx, alice.ID, bob.ID)
	assert.ErrorIs(t, err, repository.ErrNotFollowing)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFollowersAndFollowedLists(t *testing.T) {
	db := newTestDB(t)
	users := repository.NewGormUserRepository(db)
	follows := repository.NewGormFollowRepository(db)
	ctx := context.Background()

	alice := createUser(t, users, "alice", "alice@example.com")
	bob := createUser(t, users, "bob", "bob@example.com")
	carol := createUser(t, users, "carol", "carol@example.com")

	require.NoError(t, follows.Follow(ctx, alice.ID, carol.ID))
	require.NoError(t, follows.Follow(ctx, bob.ID, carol.ID))
	require.NoError(t, follows.Follow(ctx, carol.ID, alice.ID))

	followers, err := follows.Followers(ctx, carol.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, followers, 2)
	assert.Equal(t, "alice", followers[0].Username)
	assert.Equal(t, "bob", followers[1].Username)

	followed, err := follows.Followed(ctx, carol.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, followed, 1)
	assert.Equal(t, "alice", followed[0].Username)

	nFollowers, err := follows.CountFollowers(ctx, carol.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), nFollowers)

	nFollowed, err := follows.CountFollowed(ctx, carol.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), nFollowed)
}

func TestFollowersPagination(t *testing.T) {
	db := newTestDB(t)
	users := repository.NewGormUserRepository(db)
	follows := repository.NewGormFollowRepository(db)
	ctx := context.Background()

	target := createUser(t, users, "target", "target@example.com")
	names := []string{"anna", "ben", "cleo", "dan"}
	for _, name := range names {
		u := createUser(t, users, name, name+"@example.com")
		require.NoError(t, follows.Follow(ctx, u.ID, target.ID))
	}

	page1, err := follows.Followers(ctx, target.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, "anna", page1[0].Username)
	assert.Equal(t, "ben", page1[1].Username)

	page2, err := follows.Followers(ctx, target.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, "cleo", page2[0].Username)
	assert.Equal(t, "dan", page2[1].Username)
}
