package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog/internal/db"
	"blog/internal/models"
	"blog/internal/store"
)

// Runs against a disposable database: every table is truncated first.
func TestStoreIntegration(t *testing.T) {
	_ = godotenv.Load("../../../.env")
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, dsn)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, db.Migrate(conn.DB))

	_, err = conn.ExecContext(ctx, `TRUNCATE follows, comments, posts, groups, sessions, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	s := New(conn)
	alice, err := s.CreateUser(ctx, models.User{Email: "a@example.com", Username: "alice", PasswordHash: "x"})
	require.NoError(t, err)
	bob, err := s.CreateUser(ctx, models.User{Email: "b@example.com", Username: "bob", PasswordHash: "x"})
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, models.User{Email: "a@example.com", Username: "other", PasswordHash: "x"})
	assert.ErrorIs(t, err, store.ErrConflict)

	cats, err := s.CreateGroup(ctx, models.Group{Title: "Cats", Slug: "cats"})
	require.NoError(t, err)
	_, err = s.CreateGroup(ctx, models.Group{Title: "Cats again", Slug: "cats"})
	assert.ErrorIs(t, err, store.ErrConflict)

	p1, err := s.CreatePost(ctx, models.Post{Text: "first", AuthorID: alice.ID, GroupID: &cats.ID})
	require.NoError(t, err)
	p2, err := s.CreatePost(ctx, models.Post{Text: "second", AuthorID: alice.ID})
	require.NoError(t, err)

	all, err := s.ListPosts(ctx, store.PostFilter{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, p2.ID, all[0].ID)
	assert.Equal(t, p1.ID, all[1].ID)

	inGroup, err := s.ListPosts(ctx, store.PostFilter{GroupID: cats.ID}, 10, 0)
	require.NoError(t, err)
	require.Len(t, inGroup, 1)
	assert.Equal(t, "cats", *inGroup[0].GroupSlug)

	require.NoError(t, s.CreateFollow(ctx, bob.ID, alice.ID))
	assert.ErrorIs(t, s.CreateFollow(ctx, bob.ID, alice.ID), store.ErrConflict)
	n, err := s.CountFollowers(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	feed, err := s.ListPosts(ctx, store.PostFilter{FollowerID: bob.ID}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, feed, 2)

	require.NoError(t, s.DeleteGroup(ctx, cats.ID))
	got, err := s.GetPost(ctx, p1.ID)
	require.NoError(t, err)
	assert.Nil(t, got.GroupID)

	require.NoError(t, s.DeleteFollow(ctx, bob.ID, alice.ID))
	assert.ErrorIs(t, s.DeleteFollow(ctx, bob.ID, alice.ID), store.ErrNotFound)

	require.NoError(t, s.DeleteUser(ctx, alice.ID))
	_, err = s.GetPost(ctx, p2.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
