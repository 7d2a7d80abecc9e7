package models

import "time"

type User struct {
	ID           int64     `db:"id"`
	Email        string    `db:"email"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

type Session struct {
	ID        string    `db:"id"`
	UserID    int64     `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

type Group struct {
	ID          int64  `db:"id"`
	Title       string `db:"title"`
	Slug        string `db:"slug"`
	Description string `db:"description"`
}

// Post is a post row joined with its author's username and, when the post
// belongs to a group, the group's slug and title.
type Post struct {
	ID         int64     `db:"id"`
	Text       string    `db:"text"`
	CreatedAt  time.Time `db:"created_at"`
	AuthorID   int64     `db:"author_id"`
	GroupID    *int64    `db:"group_id"`
	Image      string    `db:"image"`
	Author     string    `db:"author"`
	GroupSlug  *string   `db:"group_slug"`
	GroupTitle *string   `db:"group_title"`
}

// InGroup reports whether the post is attached to a group.
func (p Post) InGroup() bool { return p.GroupID != nil }

type Comment struct {
	ID        int64     `db:"id"`
	PostID    int64     `db:"post_id"`
	AuthorID  int64     `db:"author_id"`
	Text      string    `db:"text"`
	CreatedAt time.Time `db:"created_at"`
	Author    string    `db:"author"`
}

// Follow is a directed edge: UserID follows AuthorID.
type Follow struct {
	ID       int64 `db:"id"`
	UserID   int64 `db:"user_id"`
	AuthorID int64 `db:"author_id"`
}
