package httpx

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gorilla/mux"

	"blog/internal/auth"
	"blog/internal/cache"
	"blog/internal/feed"
	"blog/internal/store"
)

// indexKey names the cached home feed fragment for one page.
func indexKey(page int) string { return fmt.Sprintf("index_page:%d", page) }

// handleIndex serves the home feed. The feed fragment is cached for the
// configured TTL, so new posts show up only after it expires or the cache
// is cleared.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.reqCtx(r)
	defer cancel()

	n := feed.ParsePage(r.URL.Query().Get("page"))
	frag, err := cache.Fetch(ctx, s.cache, s.log, indexKey(n), func() ([]byte, error) {
		p, err := s.feed.Home(ctx, n)
		if err != nil {
			return nil, err
		}
		return s.render.Execute("index", "feed", p)
	})
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	data := s.newPage(ctx, "Latest posts")
	data.FeedHTML = template.HTML(frag)
	s.renderPage(w, r, http.StatusOK, "index", data)
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.reqCtx(r)
	defer cancel()

	g, p, err := s.feed.Group(ctx, mux.Vars(r)["slug"], feed.ParsePage(r.URL.Query().Get("page")))
	if errors.Is(err, store.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	data := s.newPage(ctx, g.Title)
	data.Group = g
	data.Page = p
	s.renderPage(w, r, http.StatusOK, "group", data)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.reqCtx(r)
	defer cancel()

	author, p, err := s.feed.Author(ctx, mux.Vars(r)["username"], feed.ParsePage(r.URL.Query().Get("page")))
	if errors.Is(err, store.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	data := s.newPage(ctx, "Profile of "+author.Username)
	data.Author = author
	data.Page = p
	data.PostsCount = p.Total
	if data.FollowerCount, err = s.follows.FollowerCount(ctx, author.ID); err != nil {
		s.serverError(w, r, err)
		return
	}
	if data.FollowingCount, err = s.follows.FollowingCount(ctx, author.ID); err != nil {
		s.serverError(w, r, err)
		return
	}
	uid, _ := auth.UserIDFrom(ctx)
	if data.Following, err = s.follows.IsFollowing(ctx, uid, author.ID); err != nil {
		s.serverError(w, r, err)
		return
	}
	s.renderPage(w, r, http.StatusOK, "profile", data)
}

// handleFollowIndex lists posts by the authors the viewer follows.
func (s *Server) handleFollowIndex(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.reqCtx(r)
	defer cancel()

	uid, _ := auth.UserIDFrom(ctx)
	p, err := s.feed.Following(ctx, uid, feed.ParsePage(r.URL.Query().Get("page")))
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	data := s.newPage(ctx, "Following")
	data.Page = p
	s.renderPage(w, r, http.StatusOK, "follow", data)
}
