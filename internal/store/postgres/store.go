// Package postgres implements the store contracts on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"blog/internal/models"
	"blog/internal/store"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Store implements store.Store backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ store.Store = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error { return s.db.Close() }

// --- users ------------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO users (email, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, u.Email, u.Username, u.PasswordHash).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return models.User{}, mapErr(err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	return s.getUser(ctx, `WHERE username = $1`, username)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.getUser(ctx, `WHERE email = $1`, email)
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, `
		SELECT id, email, username, password_hash, created_at
		FROM users `+where, arg)
	if err != nil {
		return models.User{}, mapErr(err)
	}
	return u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return execOne(s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id))
}

// --- sessions ---------------------------------------------------------------

func (s *Store) ReplaceSession(ctx context.Context, sess models.Session) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, sess.UserID); err != nil {
		return fmt.Errorf("delete old sessions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, sess.ID, sess.UserID, sess.ExpiresAt); err != nil {
		return fmt.Errorf("insert session: %w", mapErr(err))
	}
	return tx.Commit()
}

func (s *Store) GetSession(ctx context.Context, id string) (models.Session, error) {
	var sess models.Session
	err := s.db.GetContext(ctx, &sess, `
		SELECT id, user_id, expires_at, created_at
		FROM sessions WHERE id = $1
	`, id)
	if err != nil {
		return models.Session{}, mapErr(err)
	}
	return sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// --- groups -----------------------------------------------------------------

func (s *Store) CreateGroup(ctx context.Context, g models.Group) (models.Group, error) {
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO groups (title, slug, description)
		VALUES ($1, $2, $3)
		RETURNING id
	`, g.Title, g.Slug, g.Description).Scan(&g.ID)
	if err != nil {
		return models.Group{}, mapErr(err)
	}
	return g, nil
}

func (s *Store) UpsertGroup(ctx context.Context, g models.Group) (models.Group, error) {
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO groups (title, slug, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO UPDATE
		   SET title = EXCLUDED.title, description = EXCLUDED.description
		RETURNING id
	`, g.Title, g.Slug, g.Description).Scan(&g.ID)
	if err != nil {
		return models.Group{}, mapErr(err)
	}
	return g, nil
}

func (s *Store) GetGroup(ctx context.Context, id int64) (models.Group, error) {
	var g models.Group
	if err := s.db.GetContext(ctx, &g, `SELECT id, title, slug, description FROM groups WHERE id = $1`, id); err != nil {
		return models.Group{}, mapErr(err)
	}
	return g, nil
}

func (s *Store) GetGroupBySlug(ctx context.Context, slug string) (models.Group, error) {
	var g models.Group
	if err := s.db.GetContext(ctx, &g, `SELECT id, title, slug, description FROM groups WHERE slug = $1`, slug); err != nil {
		return models.Group{}, mapErr(err)
	}
	return g, nil
}

func (s *Store) ListGroups(ctx context.Context) ([]models.Group, error) {
	var gs []models.Group
	if err := s.db.SelectContext(ctx, &gs, `SELECT id, title, slug, description FROM groups ORDER BY title`); err != nil {
		return nil, err
	}
	return gs, nil
}

func (s *Store) DeleteGroup(ctx context.Context, id int64) error {
	return execOne(s.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id))
}

// --- posts ------------------------------------------------------------------

const selectPosts = `
SELECT p.id, p.text, p.created_at, p.author_id, p.group_id, p.image,
       u.username AS author, g.slug AS group_slug, g.title AS group_title
  FROM posts p
  JOIN users u ON u.id = p.author_id
  LEFT JOIN groups g ON g.id = p.group_id
`

func (s *Store) CreatePost(ctx context.Context, p models.Post) (models.Post, error) {
	var id int64
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO posts (text, author_id, group_id, image)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, p.Text, p.AuthorID, p.GroupID, p.Image).Scan(&id)
	if err != nil {
		return models.Post{}, mapErr(err)
	}
	return s.GetPost(ctx, id)
}

// UpdatePost rewrites the mutable columns. created_at and author_id never change.
func (s *Store) UpdatePost(ctx context.Context, p models.Post) (models.Post, error) {
	err := execOne(s.db.ExecContext(ctx, `
		UPDATE posts
		   SET text = $2, group_id = $3, image = $4
		 WHERE id = $1
	`, p.ID, p.Text, p.GroupID, p.Image))
	if err != nil {
		return models.Post{}, err
	}
	return s.GetPost(ctx, p.ID)
}

func (s *Store) GetPost(ctx context.Context, id int64) (models.Post, error) {
	var p models.Post
	if err := s.db.GetContext(ctx, &p, selectPosts+` WHERE p.id = $1`, id); err != nil {
		return models.Post{}, mapErr(err)
	}
	return p, nil
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	return execOne(s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id))
}

func (s *Store) CountPosts(ctx context.Context, f store.PostFilter) (int, error) {
	where, args := postWhere(f)
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM posts p`+where, args...); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) ListPosts(ctx context.Context, f store.PostFilter, limit, offset int) ([]models.Post, error) {
	where, args := postWhere(f)
	nextArg := func() string { return fmt.Sprintf("$%d", len(args)+1) }

	var sb strings.Builder
	sb.WriteString(selectPosts)
	sb.WriteString(where)
	sb.WriteString("\n ORDER BY p.created_at DESC, p.id DESC\n LIMIT " + nextArg())
	args = append(args, limit)
	sb.WriteString(" OFFSET " + nextArg())
	args = append(args, offset)

	posts := []models.Post{}
	if err := s.db.SelectContext(ctx, &posts, sb.String(), args...); err != nil {
		return nil, err
	}
	return posts, nil
}

// postWhere builds the WHERE clause shared by CountPosts and ListPosts.
func postWhere(f store.PostFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	nextArg := func() string { return fmt.Sprintf("$%d", len(args)+1) }

	if f.GroupID != 0 {
		conds = append(conds, "p.group_id = "+nextArg())
		args = append(args, f.GroupID)
	}
	if f.AuthorID != 0 {
		conds = append(conds, "p.author_id = "+nextArg())
		args = append(args, f.AuthorID)
	}
	if f.FollowerID != 0 {
		conds = append(conds, "p.author_id IN (SELECT author_id FROM follows WHERE user_id = "+nextArg()+")")
		args = append(args, f.FollowerID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "\n WHERE " + strings.Join(conds, " AND "), args
}

// --- comments ---------------------------------------------------------------

func (s *Store) CreateComment(ctx context.Context, c models.Comment) (models.Comment, error) {
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO comments (post_id, author_id, text)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, c.PostID, c.AuthorID, c.Text).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return models.Comment{}, mapErr(err)
	}
	return c, nil
}

func (s *Store) ListComments(ctx context.Context, postID int64) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := s.db.SelectContext(ctx, &comments, `
		SELECT c.id, c.post_id, c.author_id, c.text, c.created_at, u.username AS author
		  FROM comments c
		  JOIN users u ON u.id = c.author_id
		 WHERE c.post_id = $1
		 ORDER BY c.created_at ASC, c.id ASC
	`, postID)
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// --- follows ----------------------------------------------------------------

func (s *Store) CreateFollow(ctx context.Context, userID, authorID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO follows (user_id, author_id) VALUES ($1, $2)
	`, userID, authorID)
	return mapErr(err)
}

func (s *Store) DeleteFollow(ctx context.Context, userID, authorID int64) error {
	return execOne(s.db.ExecContext(ctx, `
		DELETE FROM follows WHERE user_id = $1 AND author_id = $2
	`, userID, authorID))
}

func (s *Store) FollowExists(ctx context.Context, userID, authorID int64) (bool, error) {
	var ok bool
	err := s.db.GetContext(ctx, &ok, `
		SELECT EXISTS (SELECT 1 FROM follows WHERE user_id = $1 AND author_id = $2)
	`, userID, authorID)
	return ok, err
}

func (s *Store) CountFollowers(ctx context.Context, authorID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM follows WHERE author_id = $1`, authorID)
	return n, err
}

func (s *Store) CountFollowing(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM follows WHERE user_id = $1`, userID)
	return n, err
}

// --- helpers ----------------------------------------------------------------

// mapErr translates driver errors into store sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.ConstraintName)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", store.ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}

// execOne reports ErrNotFound when a statement touched no rows.
func execOne(res sql.Result, err error) error {
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}
