// Package memory is an in-process implementation of the store contracts. It
// is safe for concurrent use and mirrors the Postgres constraints; it backs
// the tests and DATABASE_URL=memory:// local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"blog/internal/models"
	"blog/internal/store"
)

type followKey struct{ user, author int64 }

type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	nextID   int64
	users    map[int64]models.User
	sessions map[string]models.Session
	groups   map[int64]models.Group
	posts    map[int64]models.Post
	comments map[int64]models.Comment
	follows  map[followKey]int64
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		now:      func() time.Time { return time.Now().UTC() },
		nextID:   1,
		users:    make(map[int64]models.User),
		sessions: make(map[string]models.Session),
		groups:   make(map[int64]models.Group),
		posts:    make(map[int64]models.Post),
		comments: make(map[int64]models.Comment),
		follows:  make(map[followKey]int64),
	}
}

// WithClock replaces the clock used to stamp created_at values.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

func (s *Store) Close() error { return nil }

func (s *Store) nextIDLocked() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// --- users ------------------------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == u.Email {
			return models.User{}, fmt.Errorf("%w: users_email_key", store.ErrConflict)
		}
		if existing.Username == u.Username {
			return models.User{}, fmt.Errorf("%w: users_username_key", store.ErrConflict)
		}
	}
	u.ID = s.nextIDLocked()
	u.CreatedAt = s.now()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (models.User, error) {
	return s.findUser(func(u models.User) bool { return u.Username == username })
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	return s.findUser(func(u models.User) bool { return u.Email == email })
}

func (s *Store) findUser(match func(models.User) bool) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if match(u) {
			return u, nil
		}
	}
	return models.User{}, store.ErrNotFound
}

// DeleteUser removes the user with their posts, comments, follow edges and
// sessions.
func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, id)
	for pid, p := range s.posts {
		if p.AuthorID == id {
			s.deletePostLocked(pid)
		}
	}
	for cid, c := range s.comments {
		if c.AuthorID == id {
			delete(s.comments, cid)
		}
	}
	for k := range s.follows {
		if k.user == id || k.author == id {
			delete(s.follows, k)
		}
	}
	for sid, sess := range s.sessions {
		if sess.UserID == id {
			delete(s.sessions, sid)
		}
	}
	return nil
}

// --- sessions ---------------------------------------------------------------

func (s *Store) ReplaceSession(_ context.Context, sess models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[sess.UserID]; !ok {
		return fmt.Errorf("insert session: %w", store.ErrNotFound)
	}
	for sid, old := range s.sessions {
		if old.UserID == sess.UserID {
			delete(s.sessions, sid)
		}
	}
	sess.CreatedAt = s.now()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *Store) GetSession(_ context.Context, id string) (models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return models.Session{}, store.ErrNotFound
	}
	return sess, nil
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// --- groups -----------------------------------------------------------------

func (s *Store) CreateGroup(_ context.Context, g models.Group) (models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groupBySlugLocked(g.Slug); ok {
		return models.Group{}, fmt.Errorf("%w: groups_slug_key", store.ErrConflict)
	}
	g.ID = s.nextIDLocked()
	s.groups[g.ID] = g
	return g, nil
}

func (s *Store) UpsertGroup(_ context.Context, g models.Group) (models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.groupBySlugLocked(g.Slug); ok {
		g.ID = existing.ID
	} else {
		g.ID = s.nextIDLocked()
	}
	s.groups[g.ID] = g
	return g, nil
}

func (s *Store) GetGroup(_ context.Context, id int64) (models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return models.Group{}, store.ErrNotFound
	}
	return g, nil
}

func (s *Store) GetGroupBySlug(_ context.Context, slug string) (models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groupBySlugLocked(slug)
	if !ok {
		return models.Group{}, store.ErrNotFound
	}
	return g, nil
}

func (s *Store) groupBySlugLocked(slug string) (models.Group, bool) {
	for _, g := range s.groups {
		if g.Slug == slug {
			return g, true
		}
	}
	return models.Group{}, false
}

func (s *Store) ListGroups(_ context.Context) ([]models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// DeleteGroup removes the group and detaches its posts.
func (s *Store) DeleteGroup(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.groups, id)
	for pid, p := range s.posts {
		if p.GroupID != nil && *p.GroupID == id {
			p.GroupID = nil
			s.posts[pid] = p
		}
	}
	return nil
}

// --- posts ------------------------------------------------------------------

func (s *Store) CreatePost(_ context.Context, p models.Post) (models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkPostRefsLocked(p); err != nil {
		return models.Post{}, err
	}
	p.ID = s.nextIDLocked()
	p.CreatedAt = s.now()
	p.GroupID = copyID(p.GroupID)
	s.posts[p.ID] = p
	return s.materializeLocked(p), nil
}

func (s *Store) UpdatePost(_ context.Context, p models.Post) (models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.posts[p.ID]
	if !ok {
		return models.Post{}, store.ErrNotFound
	}
	p.AuthorID = existing.AuthorID
	if err := s.checkPostRefsLocked(p); err != nil {
		return models.Post{}, err
	}
	existing.Text = p.Text
	existing.GroupID = copyID(p.GroupID)
	existing.Image = p.Image
	s.posts[p.ID] = existing
	return s.materializeLocked(existing), nil
}

func (s *Store) checkPostRefsLocked(p models.Post) error {
	if p.Text == "" {
		return fmt.Errorf("post text is empty")
	}
	if _, ok := s.users[p.AuthorID]; !ok {
		return fmt.Errorf("%w: posts_author_id_fkey", store.ErrNotFound)
	}
	if p.GroupID != nil {
		if _, ok := s.groups[*p.GroupID]; !ok {
			return fmt.Errorf("%w: posts_group_id_fkey", store.ErrNotFound)
		}
	}
	return nil
}

func (s *Store) GetPost(_ context.Context, id int64) (models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return models.Post{}, store.ErrNotFound
	}
	return s.materializeLocked(p), nil
}

func (s *Store) DeletePost(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return store.ErrNotFound
	}
	s.deletePostLocked(id)
	return nil
}

func (s *Store) deletePostLocked(id int64) {
	delete(s.posts, id)
	for cid, c := range s.comments {
		if c.PostID == id {
			delete(s.comments, cid)
		}
	}
}

func (s *Store) CountPosts(_ context.Context, f store.PostFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.filterLocked(f)), nil
}

func (s *Store) ListPosts(_ context.Context, f store.PostFilter, limit, offset int) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.filterLocked(f)
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	out := []models.Post{}
	if offset < 0 || offset >= len(matched) || limit <= 0 {
		return out, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	for _, p := range matched[offset:end] {
		out = append(out, s.materializeLocked(p))
	}
	return out, nil
}

func (s *Store) filterLocked(f store.PostFilter) []models.Post {
	var out []models.Post
	for _, p := range s.posts {
		if f.GroupID != 0 && (p.GroupID == nil || *p.GroupID != f.GroupID) {
			continue
		}
		if f.AuthorID != 0 && p.AuthorID != f.AuthorID {
			continue
		}
		if f.FollowerID != 0 {
			if _, ok := s.follows[followKey{f.FollowerID, p.AuthorID}]; !ok {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// materializeLocked fills the joined author and group columns.
func (s *Store) materializeLocked(p models.Post) models.Post {
	p.Author = s.users[p.AuthorID].Username
	p.GroupSlug, p.GroupTitle = nil, nil
	p.GroupID = copyID(p.GroupID)
	if p.GroupID != nil {
		if g, ok := s.groups[*p.GroupID]; ok {
			slug, title := g.Slug, g.Title
			p.GroupSlug, p.GroupTitle = &slug, &title
		}
	}
	return p
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// --- comments ---------------------------------------------------------------

func (s *Store) CreateComment(_ context.Context, c models.Comment) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[c.PostID]; !ok {
		return models.Comment{}, fmt.Errorf("%w: comments_post_id_fkey", store.ErrNotFound)
	}
	if _, ok := s.users[c.AuthorID]; !ok {
		return models.Comment{}, fmt.Errorf("%w: comments_author_id_fkey", store.ErrNotFound)
	}
	c.ID = s.nextIDLocked()
	c.CreatedAt = s.now()
	s.comments[c.ID] = c
	return c, nil
}

func (s *Store) ListComments(_ context.Context, postID int64) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Comment{}
	for _, c := range s.comments {
		if c.PostID == postID {
			c.Author = s.users[c.AuthorID].Username
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// --- follows ----------------------------------------------------------------

func (s *Store) CreateFollow(_ context.Context, userID, authorID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return fmt.Errorf("%w: follows_user_id_fkey", store.ErrNotFound)
	}
	if _, ok := s.users[authorID]; !ok {
		return fmt.Errorf("%w: follows_author_id_fkey", store.ErrNotFound)
	}
	if userID == authorID {
		return fmt.Errorf("follows_no_self_follow: user %d", userID)
	}
	k := followKey{userID, authorID}
	if _, ok := s.follows[k]; ok {
		return fmt.Errorf("%w: follows_already_following", store.ErrConflict)
	}
	s.follows[k] = s.nextIDLocked()
	return nil
}

func (s *Store) DeleteFollow(_ context.Context, userID, authorID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := followKey{userID, authorID}
	if _, ok := s.follows[k]; !ok {
		return store.ErrNotFound
	}
	delete(s.follows, k)
	return nil
}

func (s *Store) FollowExists(_ context.Context, userID, authorID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.follows[followKey{userID, authorID}]
	return ok, nil
}

func (s *Store) CountFollowers(_ context.Context, authorID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for k := range s.follows {
		if k.author == authorID {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountFollowing(_ context.Context, userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for k := range s.follows {
		if k.user == userID {
			n++
		}
	}
	return n, nil
}
