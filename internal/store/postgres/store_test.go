package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog/internal/models"
	"blog/internal/store"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(sqlx.NewDb(db, "sqlmock")), mock
}

var postColumns = []string{"id", "text", "created_at", "author_id", "group_id", "image", "author", "group_slug", "group_title"}

func TestListPostsFiltersByGroupNewestFirst(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()

	rows := sqlmock.NewRows(postColumns).
		AddRow(int64(2), "second", now, int64(1), int64(7), "", "alice", "cats", "Cats").
		AddRow(int64(1), "first", now.Add(-time.Minute), int64(1), int64(7), "", "alice", "cats", "Cats")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.group_id = $1") + `\s+ORDER BY p.created_at DESC, p.id DESC\s+LIMIT \$2 OFFSET \$3`).
		WithArgs(int64(7), 10, 20).
		WillReturnRows(rows)

	posts, err := s.ListPosts(context.Background(), store.PostFilter{GroupID: 7}, 10, 20)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, int64(2), posts[0].ID)
	assert.Equal(t, "alice", posts[0].Author)
	require.NotNil(t, posts[0].GroupSlug)
	assert.Equal(t, "cats", *posts[0].GroupSlug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPostsFollowingUsesSubquery(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("p.author_id IN (SELECT author_id FROM follows WHERE user_id = $1)")).
		WithArgs(int64(3), 5, 0).
		WillReturnRows(sqlmock.NewRows(postColumns).
			AddRow(int64(9), "hello", time.Now(), int64(4), nil, "", "bob", nil, nil))

	posts, err := s.ListPosts(context.Background(), store.PostFilter{FollowerID: 3}, 5, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.False(t, posts[0].InGroup())
	assert.Nil(t, posts[0].GroupSlug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountPostsWithoutFilter(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM posts p")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(13))

	n, err := s.CountPosts(context.Background(), store.PostFilter{})
	require.NoError(t, err)
	assert.Equal(t, 13, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFollowDuplicateIsConflict(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO follows")).
		WithArgs(int64(1), int64(2)).
		WillReturnError(&pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "follows_already_following"})

	err := s.CreateFollow(context.Background(), 1, 2)
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFollowUnknownAuthorIsNotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO follows")).
		WithArgs(int64(1), int64(99)).
		WillReturnError(&pgconn.PgError{Code: codeForeignKeyViolation, ConstraintName: "follows_author_id_fkey"})

	err := s.CreateFollow(context.Background(), 1, 99)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteFollowMissingIsNotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM follows WHERE user_id = $1 AND author_id = $2")).
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteFollow(context.Background(), 1, 2)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetGroupBySlugMissing(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM groups WHERE slug = $1")).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "slug", "description"}))

	_, err := s.GetGroupBySlug(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReplaceSessionRunsInTransaction(t *testing.T) {
	s, mock := newMock(t)
	exp := time.Now().Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE user_id = $1")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WithArgs("sid", int64(5), exp).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.ReplaceSession(context.Background(), models.Session{ID: "sid", UserID: 5, ExpiresAt: exp})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
