// Package auth registers users and manages their login sessions.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"blog/internal/models"
	"blog/internal/store"
)

var (
	ErrEmailTaken    = errors.New("email already taken")
	ErrUsernameTaken = errors.New("username already taken")
	ErrInvalidLogin  = errors.New("invalid username or password")
	ErrNoSession     = errors.New("session not found")
	ErrMissingFields = errors.New("username, email and password are required")
	ErrShortPassword = errors.New("password must be at least 6 characters")
)

// ----------------------------
// Context helpers (middleware and handlers)
// ----------------------------

type ctxKeyUserID struct{}

func WithUserID(ctx context.Context, uid int64) context.Context {
	return context.WithValue(ctx, ctxKeyUserID{}, uid)
}

func UserIDFrom(ctx context.Context) (int64, bool) {
	v := ctx.Value(ctxKeyUserID{})
	if v == nil {
		return 0, false
	}
	id, _ := v.(int64)
	return id, id != 0
}

// Store is what authentication needs from persistence.
type Store interface {
	store.UserStore
	store.SessionStore
}

type Service struct {
	store    Store
	lifetime time.Duration
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewService(s Store, lifetime time.Duration, log logrus.FieldLogger) *Service {
	return &Service{store: s, lifetime: lifetime, log: log, now: time.Now}
}

func (s *Service) Lifetime() time.Duration { return s.lifetime }

// ----------------------------
// Register
// ----------------------------

func (s *Service) Register(ctx context.Context, email, username, password string) (models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)

	if email == "" || username == "" || password == "" {
		return models.User{}, ErrMissingFields
	}
	if len(password) < 6 {
		return models.User{}, ErrShortPassword
	}

	// Check duplicates first for a clear error.
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return models.User{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return models.User{}, err
	}
	if _, err := s.store.GetUserByUsername(ctx, username); err == nil {
		return models.User{}, ErrUsernameTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return models.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	u, err := s.store.CreateUser(ctx, models.User{Email: email, Username: username, PasswordHash: string(hash)})
	// A concurrent signup can still win the UNIQUE race.
	if errors.Is(err, store.ErrConflict) {
		if strings.Contains(err.Error(), "email") {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, ErrUsernameTaken
	}
	return u, err
}

// ----------------------------
// Login (uuid session with expiry)
// ----------------------------

// Login checks the credentials and opens a session, dropping older sessions
// of the same user. It returns the session id and the user id.
func (s *Service) Login(ctx context.Context, username, password string) (string, int64, error) {
	username = strings.TrimSpace(username)

	u, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		s.log.WithField("username", username).Info("auth.Login: no such user")
		return "", 0, ErrInvalidLogin
	}
	if err != nil {
		s.log.WithError(err).Error("auth.Login: query user")
		return "", 0, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.log.WithField("username", username).Info("auth.Login: bad password")
		return "", 0, ErrInvalidLogin
	}

	sid := uuid.New().String()
	sess := models.Session{ID: sid, UserID: u.ID, ExpiresAt: s.now().Add(s.lifetime)}
	if err := s.store.ReplaceSession(ctx, sess); err != nil {
		s.log.WithError(err).Error("auth.Login: store session")
		return "", 0, err
	}

	s.log.WithFields(logrus.Fields{"username": username, "uid": u.ID}).Info("auth.Login: OK")
	return sid, u.ID, nil
}

func (s *Service) Logout(ctx context.Context, sid string) error {
	return s.store.DeleteSession(ctx, sid)
}

// UserFromSession resolves a session cookie value to a user id. Expired and
// unknown sessions yield ErrNoSession.
func (s *Service) UserFromSession(ctx context.Context, sid string) (int64, error) {
	sess, err := s.store.GetSession(ctx, sid)
	if errors.Is(err, store.ErrNotFound) {
		return 0, ErrNoSession
	}
	if err != nil {
		return 0, err
	}
	if !sess.ExpiresAt.After(s.now()) {
		return 0, ErrNoSession
	}
	return sess.UserID, nil
}
