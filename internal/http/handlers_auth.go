package httpx

import (
	"errors"
	"net/http"
	"time"

	"blog/internal/auth"
)

func (s *Server) setSessionCookie(w http.ResponseWriter, sid string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sid,
		Path:     "/",
		Expires:  time.Now().Add(s.auth.Lifetime()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	data := s.newPage(r.Context(), "Log in")
	if r.Method == http.MethodGet {
		data.Next = r.URL.Query().Get("next")
		s.renderPage(w, r, http.StatusOK, "login", data)
		return
	}
	ctx, cancel := s.reqCtx(r)
	defer cancel()

	username := r.PostFormValue("username")
	data.Next = r.PostFormValue("next")
	data.LoginName = username

	sid, _, err := s.auth.Login(ctx, username, r.PostFormValue("password"))
	if errors.Is(err, auth.ErrInvalidLogin) {
		data.Flash = "Wrong username or password."
		s.renderPage(w, r, http.StatusOK, "login", data)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.setSessionCookie(w, sid)
	http.Redirect(w, r, safeNext(data.Next), http.StatusSeeOther)
}

// handleSignup creates the account and signs the new user in.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	data := s.newPage(r.Context(), "Sign up")
	if r.Method == http.MethodGet {
		s.renderPage(w, r, http.StatusOK, "signup", data)
		return
	}
	ctx, cancel := s.reqCtx(r)
	defer cancel()

	username, password := r.PostFormValue("username"), r.PostFormValue("password")
	_, err := s.auth.Register(ctx, r.PostFormValue("email"), username, password)
	switch {
	case errors.Is(err, auth.ErrEmailTaken), errors.Is(err, auth.ErrUsernameTaken),
		errors.Is(err, auth.ErrMissingFields), errors.Is(err, auth.ErrShortPassword):
		data.Flash = err.Error()
		s.renderPage(w, r, http.StatusOK, "signup", data)
		return
	case err != nil:
		s.serverError(w, r, err)
		return
	}

	sid, _, err := s.auth.Login(ctx, username, password)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.setSessionCookie(w, sid)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		if err := s.auth.Logout(r.Context(), c.Value); err != nil {
			s.log.WithError(err).Warn("logout")
		}
	}
	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
