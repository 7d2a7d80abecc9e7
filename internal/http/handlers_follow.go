package httpx

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"blog/internal/auth"
	"blog/internal/store"
)

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.reqCtx(r)
	defer cancel()

	author, err := s.Store.GetUserByUsername(ctx, mux.Vars(r)["username"])
	if errors.Is(err, store.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	uid, _ := auth.UserIDFrom(ctx)
	if err := s.follows.Follow(ctx, uid, author.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.notFound(w, r)
			return
		}
		s.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/profile/"+author.Username+"/", http.StatusSeeOther)
}

// handleUnfollow answers 404 when the viewer was not following the author.
func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.reqCtx(r)
	defer cancel()

	author, err := s.Store.GetUserByUsername(ctx, mux.Vars(r)["username"])
	if errors.Is(err, store.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	uid, _ := auth.UserIDFrom(ctx)
	if err := s.follows.Unfollow(ctx, uid, author.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.notFound(w, r)
			return
		}
		s.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/profile/"+author.Username+"/", http.StatusSeeOther)
}
