// Package session carries the authenticated user's tokens explicitly through
// the call graph.
package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultRefreshWindow is how long before expiry an access token is renewed.
const DefaultRefreshWindow = 3 * time.Minute

var (
	ErrNoToken        = errors.New("no access token")
	ErrMalformedToken = errors.New("malformed access token")
)

// Session is one user's authentication state.
type Session struct {
	UserID       int64     `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	FCMToken     string    `json:"fcm_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

type claims struct {
	UserID *int64   `json:"user_id"`
	Exp    *float64 `json:"exp"`
}

// New builds a session from a freshly issued token pair. User ID and expiry
// are read from the access token's claims when present.
func New(accessToken, refreshToken string) (Session, error) {
	s := Session{AccessToken: accessToken, RefreshToken: refreshToken}
	if err := s.readClaims(); err != nil {
		return Session{}, err
	}
	return s, nil
}

// FromBearer builds a session from an Authorization header value.
func FromBearer(header string) (Session, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return Session{}, ErrNoToken
	}
	return New(strings.TrimSpace(token), "")
}

func (s *Session) readClaims() error {
	c, err := decodeClaims(s.AccessToken)
	if err != nil {
		return err
	}
	if c.UserID != nil {
		s.UserID = *c.UserID
	}
	if c.Exp != nil {
		s.ExpiresAt = time.Unix(int64(*c.Exp), 0).UTC()
	}
	return nil
}

// TokenExpiry returns the exp claim of a JWT. The signature is not checked;
// the backend does that.
func TokenExpiry(token string) (time.Time, error) {
	c, err := decodeClaims(token)
	if err != nil {
		return time.Time{}, err
	}
	if c.Exp == nil {
		return time.Time{}, fmt.Errorf("%w: no exp claim", ErrMalformedToken)
	}
	return time.Unix(int64(*c.Exp), 0).UTC(), nil
}

func decodeClaims(token string) (claims, error) {
	if token == "" {
		return claims{}, ErrNoToken
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return claims{}, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedToken, len(parts))
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return claims{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	var c claims
	if err := json.Unmarshal(payload, &c); err != nil {
		return claims{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return c, nil
}

// LoggedIn reports whether the session holds an access token.
func (s Session) LoggedIn() bool {
	return s.AccessToken != ""
}

// Expired reports whether the access token is past its expiry. Tokens
// without an expiry never expire client side.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// NeedsRefresh reports whether the access token expires within window but
// has not expired yet.
func (s Session) NeedsRefresh(now time.Time, window time.Duration) bool {
	if s.ExpiresAt.IsZero() || s.RefreshToken == "" {
		return false
	}
	left := s.ExpiresAt.Sub(now)
	return left > 0 && left < window
}

// WithAccessToken returns a copy carrying a renewed access token.
func (s Session) WithAccessToken(token string) Session {
	s.AccessToken = token
	s.ExpiresAt = time.Time{}
	// An opaque token keeps the previous identity and no expiry.
	_ = s.readClaims()
	return s
}

// Token implements oauth2.TokenSource.
func (s Session) Token() (*oauth2.Token, error) {
	if !s.LoggedIn() {
		return nil, ErrNoToken
	}
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: s.RefreshToken,
		Expiry:       s.ExpiresAt,
	}, nil
}

type contextKey struct{}

// NewContext returns ctx carrying s.
func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}
