package follow

import (
	"context"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog/internal/models"
	"blog/internal/store"
	"blog/internal/store/memory"
)

func setup(t *testing.T) (*Registry, *memory.Store, *test.Hook, models.User, models.User) {
	t.Helper()
	s := memory.New()
	ctx := context.Background()
	a, err := s.CreateUser(ctx, models.User{Email: "a@example.com", Username: "a"})
	require.NoError(t, err)
	b, err := s.CreateUser(ctx, models.User{Email: "b@example.com", Username: "b"})
	require.NoError(t, err)
	log, hook := test.NewNullLogger()
	return NewRegistry(s, log), s, hook, a, b
}

func TestFollowTwiceCreatesOneEdge(t *testing.T) {
	r, _, hook, a, b := setup(t)
	ctx := context.Background()

	before, err := r.FollowerCount(ctx, b.ID)
	require.NoError(t, err)

	require.NoError(t, r.Follow(ctx, a.ID, b.ID))
	require.NoError(t, r.Follow(ctx, a.ID, b.ID))

	after, err := r.FollowerCount(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)

	ok, err := r.IsFollowing(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, hook.AllEntries(), 1)
}

func TestSelfFollowIsIgnored(t *testing.T) {
	r, _, _, a, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, r.Follow(ctx, a.ID, a.ID))

	n, err := r.FollowingCount(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUnfollowMissingEdgeIsNotFound(t *testing.T) {
	r, _, _, a, b := setup(t)
	ctx := context.Background()

	err := r.Unfollow(ctx, a.ID, b.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	n, err := r.FollowerCount(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUnfollowTwice(t *testing.T) {
	r, _, _, a, b := setup(t)
	ctx := context.Background()

	require.NoError(t, r.Follow(ctx, a.ID, b.ID))
	require.NoError(t, r.Unfollow(ctx, a.ID, b.ID))
	assert.ErrorIs(t, r.Unfollow(ctx, a.ID, b.ID), store.ErrNotFound)
}

func TestAnonymousFollower(t *testing.T) {
	r, _, _, _, b := setup(t)
	ctx := context.Background()

	ok, err := r.IsFollowing(ctx, 0, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, r.Follow(ctx, 0, b.ID), ErrUnauthenticated)
	assert.ErrorIs(t, r.Unfollow(ctx, 0, b.ID), ErrUnauthenticated)
}

// racingStore reports a unique violation as if a concurrent request had
// inserted the same edge first.
type racingStore struct {
	store.FollowStore
}

func (racingStore) CreateFollow(context.Context, int64, int64) error {
	return fmt.Errorf("%w: follows_already_following", store.ErrConflict)
}

func TestConcurrentDuplicateIsSuccess(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := NewRegistry(racingStore{memory.New()}, log)

	assert.NoError(t, r.Follow(context.Background(), 1, 2))
}

func TestFollowUnknownAuthor(t *testing.T) {
	r, _, _, a, _ := setup(t)

	err := r.Follow(context.Background(), a.ID, 404)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
