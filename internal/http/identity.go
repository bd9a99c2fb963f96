package http

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"expensetracker/internal/api"
	"expensetracker/internal/session"
)

var (
	errIdentityMismatch = errors.New("token does not belong to the claimed user")
	errNoIdentity       = errors.New("identity verification is not configured")
)

// Identity answers for the bearer token against the backend. The backend
// checks the signature, so a successful call proves the claims.
type Identity interface {
	UserProfile(ctx context.Context, s session.Session, userID int64) (api.UserProfile, error)
}

// verifyIdentity returns the user id the backend vouches for. Verified tokens
// are cached under their hash for IdentityCacheTTL.
func (s *Server) verifyIdentity(ctx context.Context, sess session.Session) (int64, error) {
	if s.deps.Identity == nil {
		return 0, errNoIdentity
	}
	return s.identities.GetOrLoad(ctx, tokenKey(sess.AccessToken), func(ctx context.Context) (int64, error) {
		p, err := s.deps.Identity.UserProfile(ctx, sess, sess.UserID)
		switch {
		case errors.Is(err, api.ErrNotFound):
			return 0, fmt.Errorf("%w: user %d", errIdentityMismatch, sess.UserID)
		case err != nil:
			return 0, err
		case p.ID != sess.UserID:
			return 0, fmt.Errorf("%w: claimed %d, backend says %d", errIdentityMismatch, sess.UserID, p.ID)
		}
		return p.ID, nil
	})
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
