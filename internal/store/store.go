// Package store declares the persistence contracts shared by the Postgres and
// in-memory backends.
package store

import (
	"context"
	"errors"

	"blog/internal/models"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")
)

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	GetUser(ctx context.Context, id int64) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// SessionStore persists login sessions.
type SessionStore interface {
	// ReplaceSession drops every session of s.UserID and stores s.
	ReplaceSession(ctx context.Context, s models.Session) error
	GetSession(ctx context.Context, id string) (models.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// GroupStore persists topic groups.
type GroupStore interface {
	CreateGroup(ctx context.Context, g models.Group) (models.Group, error)
	UpsertGroup(ctx context.Context, g models.Group) (models.Group, error)
	GetGroup(ctx context.Context, id int64) (models.Group, error)
	GetGroupBySlug(ctx context.Context, slug string) (models.Group, error)
	ListGroups(ctx context.Context) ([]models.Group, error)
	DeleteGroup(ctx context.Context, id int64) error
}

// PostFilter scopes a post listing. Zero fields do not filter.
type PostFilter struct {
	GroupID    int64
	AuthorID   int64
	FollowerID int64
}

// PostStore persists posts. Listings are ordered newest first.
type PostStore interface {
	CreatePost(ctx context.Context, p models.Post) (models.Post, error)
	UpdatePost(ctx context.Context, p models.Post) (models.Post, error)
	GetPost(ctx context.Context, id int64) (models.Post, error)
	DeletePost(ctx context.Context, id int64) error
	CountPosts(ctx context.Context, f PostFilter) (int, error)
	ListPosts(ctx context.Context, f PostFilter, limit, offset int) ([]models.Post, error)
}

// CommentStore persists comments. Listings are ordered oldest first.
type CommentStore interface {
	CreateComment(ctx context.Context, c models.Comment) (models.Comment, error)
	ListComments(ctx context.Context, postID int64) ([]models.Comment, error)
}

// FollowStore persists follow edges. CreateFollow returns ErrConflict when
// the edge already exists and DeleteFollow returns ErrNotFound when it does
// not.
type FollowStore interface {
	CreateFollow(ctx context.Context, userID, authorID int64) error
	DeleteFollow(ctx context.Context, userID, authorID int64) error
	FollowExists(ctx context.Context, userID, authorID int64) (bool, error)
	CountFollowers(ctx context.Context, authorID int64) (int, error)
	CountFollowing(ctx context.Context, userID int64) (int, error)
}

// Store is the full set of contracts a backend provides.
type Store interface {
	UserStore
	SessionStore
	GroupStore
	PostStore
	CommentStore
	FollowStore
	Close() error
}
