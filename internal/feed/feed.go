// Package feed composes the paginated post listings: the home feed, a
// group's feed, an author's feed and the feed of followed authors.
package feed

import (
	"context"
	"errors"
	"fmt"

	"blog/internal/models"
	"blog/internal/store"
)

// ErrUnauthenticated is returned by Following for an anonymous reader.
var ErrUnauthenticated = errors.New("authentication required")

// Store is the subset of the store contracts the feeds read from.
type Store interface {
	CountPosts(ctx context.Context, f store.PostFilter) (int, error)
	ListPosts(ctx context.Context, f store.PostFilter, limit, offset int) ([]models.Post, error)
	GetGroupBySlug(ctx context.Context, slug string) (models.Group, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
}

type Service struct {
	store Store
	limit int
}

// NewService returns a feed service serving pages of limit posts.
func NewService(s Store, limit int) *Service {
	if limit <= 0 {
		limit = 10
	}
	return &Service{store: s, limit: limit}
}

func (s *Service) Limit() int { return s.limit }

// Home lists every post, newest first.
func (s *Service) Home(ctx context.Context, page int) (Page, error) {
	return s.list(ctx, store.PostFilter{}, page)
}

// Group lists the posts of the group identified by slug. It fails with
// store.ErrNotFound when no group has that slug.
func (s *Service) Group(ctx context.Context, slug string, page int) (models.Group, Page, error) {
	g, err := s.store.GetGroupBySlug(ctx, slug)
	if err != nil {
		return models.Group{}, Page{}, fmt.Errorf("group %q: %w", slug, err)
	}
	p, err := s.list(ctx, store.PostFilter{GroupID: g.ID}, page)
	return g, p, err
}

// Author lists the posts written by username. It fails with
// store.ErrNotFound when no such user exists.
func (s *Service) Author(ctx context.Context, username string, page int) (models.User, Page, error) {
	u, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return models.User{}, Page{}, fmt.Errorf("author %q: %w", username, err)
	}
	p, err := s.list(ctx, store.PostFilter{AuthorID: u.ID}, page)
	return u, p, err
}

// Following lists the posts of every author userID follows.
func (s *Service) Following(ctx context.Context, userID int64, page int) (Page, error) {
	if userID == 0 {
		return Page{}, ErrUnauthenticated
	}
	return s.list(ctx, store.PostFilter{FollowerID: userID}, page)
}

func (s *Service) list(ctx context.Context, f store.PostFilter, number int) (Page, error) {
	if number < 1 {
		number = 1
	}
	total, err := s.store.CountPosts(ctx, f)
	if err != nil {
		return Page{}, fmt.Errorf("count posts: %w", err)
	}
	p := newPage(number, s.limit, total)
	if !p.InRange() {
		return p, nil
	}
	posts, err := s.store.ListPosts(ctx, f, p.Size, p.offset())
	if err != nil {
		return Page{}, fmt.Errorf("list posts: %w", err)
	}
	p.Posts = posts
	return p, nil
}
