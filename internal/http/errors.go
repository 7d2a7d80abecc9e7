package httpx

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	data := s.newPage(r.Context(), "Page not found")
	if err := s.render.Render(w, http.StatusNotFound, "404", data); err != nil {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	}
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).WithError(err).Error("server error")
	data := pageData{Title: "Server error"}
	if rerr := s.render.Render(w, http.StatusInternalServerError, "500", data); rerr != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// renderPage writes page or falls back to the error page.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	if err := s.render.Render(w, status, page, data); err != nil {
		s.serverError(w, r, err)
	}
}
