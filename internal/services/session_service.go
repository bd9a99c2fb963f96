package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expensetracker/internal/log"
	"expensetracker/internal/session"
	"expensetracker/internal/storage"
)

var (
	ErrNotLoggedIn    = errors.New("not logged in")
	ErrSessionExpired = errors.New("session expired, log in again")
)

// AuthBackend is the part of the backend API that issues tokens.
type AuthBackend interface {
	Login(ctx context.Context, username, password string) (session.Session, error)
	Refresh(ctx context.Context, s session.Session) (session.Session, error)
}

// SessionStore persists sessions by profile name.
type SessionStore interface {
	SaveSession(ctx context.Context, profile string, s session.Session) error
	LoadSession(ctx context.Context, profile string) (session.Session, error)
	DeleteSession(ctx context.Context, profile string) error
}

// SessionService keeps a locally stored session usable.
type SessionService struct {
	auth   AuthBackend
	store  SessionStore
	window time.Duration
	logger *log.Logger
	now    func() time.Time
}

func NewSessionService(auth AuthBackend, store SessionStore, window time.Duration, logger *log.Logger) *SessionService {
	if logger == nil {
		logger = log.Discard()
	}
	if window <= 0 {
		window = session.DefaultRefreshWindow
	}
	return &SessionService{
		auth:   auth,
		store:  store,
		window: window,
		logger: logger.WithComponent(log.ComponentSession),
		now:    time.Now,
	}
}

// Login authenticates and stores the session under profile.
func (s *SessionService) Login(ctx context.Context, profile, username, password string) (session.Session, error) {
	sess, err := s.auth.Login(ctx, username, password)
	if err != nil {
		return session.Session{}, err
	}
	if err := s.store.SaveSession(ctx, profile, sess); err != nil {
		return session.Session{}, err
	}
	s.logger.InfoContext(ctx, "Logged in",
		log.FieldOperation, log.OpLogin,
		log.FieldUserID, sess.UserID,
		"profile", profile)
	return sess, nil
}

func (s *SessionService) Logout(ctx context.Context, profile string) error {
	return s.store.DeleteSession(ctx, profile)
}

// Current returns the stored session of profile, refreshing its access
// token first when it is about to expire.
func (s *SessionService) Current(ctx context.Context, profile string) (session.Session, error) {
	sess, err := s.store.LoadSession(ctx, profile)
	if errors.Is(err, storage.ErrNotFound) {
		return session.Session{}, ErrNotLoggedIn
	}
	if err != nil {
		return session.Session{}, err
	}

	now := s.now()
	switch {
	case sess.NeedsRefresh(now, s.window):
	case sess.Expired(now) && sess.RefreshToken != "":
	case sess.Expired(now):
		return session.Session{}, ErrSessionExpired
	default:
		return sess, nil
	}

	refreshed, err := s.auth.Refresh(ctx, sess)
	if err != nil {
		if sess.Expired(now) {
			return session.Session{}, fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		// The current token still works for a while.
		s.logger.WarnContext(ctx, "Token refresh failed", log.FieldUserID, sess.UserID, log.FieldError, err)
		return sess, nil
	}
	if err := s.store.SaveSession(ctx, profile, refreshed); err != nil {
		return session.Session{}, err
	}
	s.logger.InfoContext(ctx, "Access token refreshed",
		log.FieldOperation, log.OpRefresh,
		log.FieldUserID, refreshed.UserID)
	return refreshed, nil
}
