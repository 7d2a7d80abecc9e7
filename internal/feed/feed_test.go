package feed

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog/internal/models"
	"blog/internal/store"
	"blog/internal/store/memory"
)

const (
	limit = 10
	extra = 3
)

type fixture struct {
	store  *memory.Store
	author models.User
	reader models.User
	group  models.Group
	other  models.Group
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	var tick time.Duration
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := memory.New().WithClock(func() time.Time {
		tick += time.Second
		return base.Add(tick)
	})

	author, err := s.CreateUser(ctx, models.User{Email: "a@example.com", Username: "author"})
	require.NoError(t, err)
	reader, err := s.CreateUser(ctx, models.User{Email: "r@example.com", Username: "reader"})
	require.NoError(t, err)
	group, err := s.CreateGroup(ctx, models.Group{Title: "Group", Slug: "test_slug"})
	require.NoError(t, err)
	other, err := s.CreateGroup(ctx, models.Group{Title: "Other", Slug: "other_slug"})
	require.NoError(t, err)

	return fixture{store: s, author: author, reader: reader, group: group, other: other}
}

func (f fixture) post(t *testing.T, text string, group *models.Group) models.Post {
	t.Helper()
	p := models.Post{Text: text, AuthorID: f.author.ID}
	if group != nil {
		p.GroupID = &group.ID
	}
	created, err := f.store.CreatePost(context.Background(), p)
	require.NoError(t, err)
	return created
}

func TestPaginationAcrossAllFeeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < limit+extra; i++ {
		f.post(t, fmt.Sprintf("post %d", i), &f.group)
	}
	require.NoError(t, f.store.CreateFollow(ctx, f.reader.ID, f.author.ID))

	svc := NewService(f.store, limit)
	feeds := map[string]func(page int) (Page, error){
		"home": func(page int) (Page, error) { return svc.Home(ctx, page) },
		"group": func(page int) (Page, error) {
			_, p, err := svc.Group(ctx, f.group.Slug, page)
			return p, err
		},
		"author": func(page int) (Page, error) {
			_, p, err := svc.Author(ctx, f.author.Username, page)
			return p, err
		},
		"following": func(page int) (Page, error) { return svc.Following(ctx, f.reader.ID, page) },
	}

	for name, list := range feeds {
		t.Run(name, func(t *testing.T) {
			first, err := list(1)
			require.NoError(t, err)
			assert.Len(t, first.Posts, limit)
			assert.True(t, first.HasNext())
			assert.Equal(t, 2, first.NumPages)

			second, err := list(2)
			require.NoError(t, err)
			assert.Len(t, second.Posts, extra)
			assert.False(t, second.HasNext())
			assert.True(t, second.HasPrev())

			beyond, err := list(7)
			require.NoError(t, err)
			assert.Empty(t, beyond.Posts)
		})
	}
}

func TestGroupFeedOnlyContainsGroupPostsNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	older := f.post(t, "older", &f.group)
	f.post(t, "elsewhere", &f.other)
	f.post(t, "no group", nil)
	newer := f.post(t, "newer", &f.group)

	svc := NewService(f.store, limit)
	g, page, err := svc.Group(ctx, f.group.Slug, 1)
	require.NoError(t, err)
	assert.Equal(t, f.group.ID, g.ID)
	require.Len(t, page.Posts, 2)
	assert.Equal(t, newer.ID, page.Posts[0].ID)
	assert.Equal(t, older.ID, page.Posts[1].ID)
	for _, p := range page.Posts {
		require.NotNil(t, p.GroupSlug)
		assert.Equal(t, f.group.Slug, *p.GroupSlug)
	}
}

func TestPostAppearsOnlyInItsGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.post(t, "mine", &f.group)
	svc := NewService(f.store, limit)

	_, inGroup, err := svc.Group(ctx, f.group.Slug, 1)
	require.NoError(t, err)
	assert.Contains(t, ids(inGroup), p.ID)

	_, inOther, err := svc.Group(ctx, f.other.Slug, 1)
	require.NoError(t, err)
	assert.NotContains(t, ids(inOther), p.ID)
}

func TestUnknownGroupAndAuthorAreNotFound(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.store, limit)

	_, _, err := svc.Group(context.Background(), "missing", 1)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, _, err = svc.Author(context.Background(), "nobody", 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFollowingFeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.post(t, "hello", nil)
	svc := NewService(f.store, limit)

	empty, err := svc.Following(ctx, f.reader.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, empty.Posts)

	require.NoError(t, f.store.CreateFollow(ctx, f.reader.ID, f.author.ID))
	page, err := svc.Following(ctx, f.reader.ID, 1)
	require.NoError(t, err)
	assert.Len(t, page.Posts, 1)

	_, err = svc.Following(ctx, 0, 1)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestParsePage(t *testing.T) {
	cases := map[string]int{"": 1, "abc": 1, "0": 1, "-3": 1, "1": 1, "2": 2, " 4 ": 4}
	for raw, want := range cases {
		assert.Equal(t, want, ParsePage(raw), "raw=%q", raw)
	}
}

func TestEmptyFeedHasOnePage(t *testing.T) {
	f := newFixture(t)
	page, err := NewService(f.store, limit).Home(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, page.NumPages)
	assert.Empty(t, page.Posts)
	assert.False(t, page.HasNext())
	assert.False(t, page.HasPrev())
}

func ids(p Page) []int64 {
	out := make([]int64, 0, len(p.Posts))
	for _, post := range p.Posts {
		out = append(out, post.ID)
	}
	return out
}

// offsetStore records the offsets ListPosts is asked for.
type offsetStore struct {
	Store
	total   int
	offsets []int
}

func (s *offsetStore) CountPosts(context.Context, store.PostFilter) (int, error) { return s.total, nil }

func (s *offsetStore) ListPosts(_ context.Context, _ store.PostFilter, _, offset int) ([]models.Post, error) {
	s.offsets = append(s.offsets, offset)
	return []models.Post{}, nil
}

func TestHugePageNumberIsOutOfRange(t *testing.T) {
	s := &offsetStore{total: limit + extra}
	svc := NewService(s, limit)

	for _, n := range []int{922337203685477582, math.MaxInt} {
		page, err := svc.Home(context.Background(), n)
		require.NoError(t, err)
		assert.False(t, page.InRange())
		assert.Empty(t, page.Posts)
	}
	assert.Empty(t, s.offsets)

	_, err := svc.Home(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []int{limit}, s.offsets)

	assert.Equal(t, 922337203685477582, ParsePage("922337203685477582"))
}
