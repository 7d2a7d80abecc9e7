package httpx

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"blog/internal/app"
	"blog/internal/auth"
	"blog/internal/cache"
	"blog/internal/feed"
	"blog/internal/follow"
	"blog/internal/metrics"
	"blog/internal/models"
	"blog/internal/store"
	"blog/internal/util"
)

type Server struct {
	Store  store.Store
	Cfg    app.Config
	Router *mux.Router

	auth    *auth.Service
	feed    *feed.Service
	follows *follow.Registry
	cache   cache.Cache
	render  *util.Renderer
	log     logrus.FieldLogger
	limiter *RateLimiter
	handler http.Handler
}

func NewServer(st store.Store, c cache.Cache, cfg app.Config, log logrus.FieldLogger) (*Server, error) {
	r, err := util.NewRenderer()
	if err != nil {
		return nil, err
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 3 * time.Second
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = 5 << 20
	}
	s := &Server{
		Store:   st,
		Cfg:     cfg,
		Router:  mux.NewRouter(),
		auth:    auth.NewService(st, cfg.SessionLifetime(), log),
		feed:    feed.NewService(st, cfg.PageLimit),
		follows: follow.NewRegistry(st, log),
		cache:   c,
		render:  r,
		log:     log,
		limiter: NewRateLimiter(cfg.LoginRatePerSec, cfg.LoginBurst),
	}
	s.routes()

	var h http.Handler = s.Router
	h = WithTimeout(h, 5*cfg.RequestTimeout)
	h = WithAccessLog(log, h)
	s.handler = metrics.InstrumentHandler(h)
	return s, nil
}

func (s *Server) routes() {
	m := s.Router
	m.Use(s.withSession)
	m.NotFoundHandler = s.withSession(http.HandlerFunc(s.notFound))

	media := http.FileServer(http.Dir(s.Cfg.MediaDir))
	m.PathPrefix("/media/").Handler(http.StripPrefix("/media/", media)).Methods(http.MethodGet)
	m.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	// feeds
	m.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	m.HandleFunc("/group/{slug}/", s.handleGroup).Methods(http.MethodGet)
	m.HandleFunc("/profile/{username}/", s.handleProfile).Methods(http.MethodGet)
	m.Handle("/follow/", s.requireAuth(http.HandlerFunc(s.handleFollowIndex))).Methods(http.MethodGet)

	// posts
	m.HandleFunc("/posts/{id:[0-9]+}/", s.handlePostDetail).Methods(http.MethodGet)
	m.Handle("/create/", s.requireAuth(http.HandlerFunc(s.handlePostCreate))).Methods(http.MethodGet, http.MethodPost)
	m.Handle("/posts/{id:[0-9]+}/edit/", s.requireAuth(http.HandlerFunc(s.handlePostEdit))).Methods(http.MethodGet, http.MethodPost)
	m.Handle("/posts/{id:[0-9]+}/delete/", s.requireAuth(http.HandlerFunc(s.handlePostDelete))).Methods(http.MethodPost)
	m.Handle("/posts/{id:[0-9]+}/comment/", s.requireAuth(http.HandlerFunc(s.handleCommentCreate))).Methods(http.MethodPost)

	// follows
	m.Handle("/profile/{username}/follow/", s.requireAuth(http.HandlerFunc(s.handleFollow))).Methods(http.MethodGet, http.MethodPost)
	m.Handle("/profile/{username}/unfollow/", s.requireAuth(http.HandlerFunc(s.handleUnfollow))).Methods(http.MethodGet, http.MethodPost)

	// auth
	m.Handle("/auth/login/", s.limiter.Handler(http.HandlerFunc(s.handleLogin))).Methods(http.MethodGet, http.MethodPost)
	m.Handle("/auth/signup/", s.limiter.Handler(http.HandlerFunc(s.handleSignup))).Methods(http.MethodGet, http.MethodPost)
	m.HandleFunc("/auth/logout/", s.handleLogout).Methods(http.MethodGet, http.MethodPost)

	// static pages
	m.HandleFunc("/about/author/", s.staticPage("about_author", "About the author")).Methods(http.MethodGet)
	m.HandleFunc("/about/tech/", s.staticPage("about_tech", "Technology")).Methods(http.MethodGet)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.handler.ServeHTTP(w, r) }

// ClearCache drops every cached page fragment.
func (s *Server) ClearCache(ctx context.Context) error { return s.cache.Clear(ctx) }

type pageData struct {
	Title     string
	Viewer    *models.User
	Flash     string
	Next      string
	LoginName string

	FeedHTML template.HTML
	Page     feed.Page

	Group          models.Group
	Author         models.User
	PostsCount     int
	FollowerCount  int
	FollowingCount int
	Following      bool

	Post     models.Post
	Comments []models.Comment

	Groups []models.Group
	Form   postForm
	IsEdit bool
}

// newPage fills the layout fields shared by every page.
func (s *Server) newPage(ctx context.Context, title string) pageData {
	return pageData{Title: title, Viewer: s.viewer(ctx)}
}

// viewer loads the signed-in user, or nil for anonymous requests.
func (s *Server) viewer(ctx context.Context) *models.User {
	uid, ok := auth.UserIDFrom(ctx)
	if !ok {
		return nil
	}
	u, err := s.Store.GetUser(ctx, uid)
	if err != nil {
		return nil
	}
	return &u
}

// reqCtx bounds the store work of one request.
func (s *Server) reqCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.Cfg.RequestTimeout)
}

func (s *Server) staticPage(page, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderPage(w, r, http.StatusOK, page, s.newPage(r.Context(), title))
	}
}
