// Package follow manages directed follow edges between users.
package follow

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"blog/internal/metrics"
	"blog/internal/store"
)

// ErrUnauthenticated is returned when an anonymous user tries to follow.
var ErrUnauthenticated = errors.New("authentication required")

type Registry struct {
	store store.FollowStore
	log   logrus.FieldLogger
}

func NewRegistry(s store.FollowStore, log logrus.FieldLogger) *Registry {
	return &Registry{store: s, log: log}
}

// Follow makes follower follow followee. Following twice and following
// oneself are both no-ops. A duplicate edge reported by the store while two
// requests race is treated as success.
func (r *Registry) Follow(ctx context.Context, follower, followee int64) error {
	if follower == 0 {
		return ErrUnauthenticated
	}
	if follower == followee {
		return nil
	}
	err := r.store.CreateFollow(ctx, follower, followee)
	switch {
	case err == nil:
		metrics.RecordFollow("follow")
		r.log.WithFields(logrus.Fields{"user": follower, "author": followee}).Info("follow")
		return nil
	case errors.Is(err, store.ErrConflict):
		return nil
	default:
		return fmt.Errorf("follow %d -> %d: %w", follower, followee, err)
	}
}

// Unfollow removes the edge. It returns store.ErrNotFound when follower is
// not following followee, so a repeated unfollow fails.
func (r *Registry) Unfollow(ctx context.Context, follower, followee int64) error {
	if follower == 0 {
		return ErrUnauthenticated
	}
	if err := r.store.DeleteFollow(ctx, follower, followee); err != nil {
		return fmt.Errorf("unfollow %d -> %d: %w", follower, followee, err)
	}
	metrics.RecordFollow("unfollow")
	r.log.WithFields(logrus.Fields{"user": follower, "author": followee}).Info("unfollow")
	return nil
}

// IsFollowing is false for an anonymous follower.
func (r *Registry) IsFollowing(ctx context.Context, follower, followee int64) (bool, error) {
	if follower == 0 {
		return false, nil
	}
	return r.store.FollowExists(ctx, follower, followee)
}

func (r *Registry) FollowerCount(ctx context.Context, author int64) (int, error) {
	return r.store.CountFollowers(ctx, author)
}

func (r *Registry) FollowingCount(ctx context.Context, user int64) (int, error) {
	return r.store.CountFollowing(ctx, user)
}
