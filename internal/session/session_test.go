package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeJWT(t *testing.T, claims map[string]any) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body, err := json.Marshal(claims)
	require.NoError(t, err)
	return header + "." + base64.RawURLEncoding.EncodeToString(body) + ".signature"
}

func TestNewReadsClaims(t *testing.T) {
	exp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	token := makeJWT(t, map[string]any{"user_id": 17, "exp": exp.Unix()})

	s, err := New(token, "refresh")
	require.NoError(t, err)
	assert.Equal(t, int64(17), s.UserID)
	assert.True(t, s.ExpiresAt.Equal(exp))
	assert.True(t, s.LoggedIn())
}

func TestFromBearer(t *testing.T) {
	token := makeJWT(t, map[string]any{"user_id": 3})

	s, err := FromBearer("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.UserID)
	assert.Equal(t, token, s.AccessToken)
	assert.True(t, s.ExpiresAt.IsZero())

	for _, bad := range []string{"", "Bearer", "Bearer   ", "Basic abc", token} {
		_, err := FromBearer(bad)
		assert.ErrorIs(t, err, ErrNoToken, "header %q", bad)
	}

	_, err = FromBearer("Bearer not-a-jwt")
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Unix(1735689600, 0).UTC()
	got, err := TokenExpiry(makeJWT(t, map[string]any{"exp": exp.Unix()}))
	require.NoError(t, err)
	assert.True(t, got.Equal(exp))

	_, err = TokenExpiry(makeJWT(t, map[string]any{"user_id": 1}))
	assert.ErrorIs(t, err, ErrMalformedToken)

	_, err = TokenExpiry("a.%%%.c")
	assert.ErrorIs(t, err, ErrMalformedToken)

	_, err = TokenExpiry("")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestNeedsRefresh(t *testing.T) {
	exp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := Session{AccessToken: "x", RefreshToken: "r", ExpiresAt: exp}

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"well before expiry", exp.Add(-10 * time.Minute), false},
		{"inside window", exp.Add(-2 * time.Minute), true},
		{"one second left", exp.Add(-time.Second), true},
		{"exactly expired", exp, false},
		{"already expired", exp.Add(time.Minute), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, s.NeedsRefresh(tc.now, DefaultRefreshWindow))
		})
	}

	s.RefreshToken = ""
	assert.False(t, s.NeedsRefresh(exp.Add(-time.Minute), DefaultRefreshWindow))
	assert.False(t, Session{AccessToken: "x", RefreshToken: "r"}.NeedsRefresh(exp, DefaultRefreshWindow))
}

func TestExpired(t *testing.T) {
	exp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := Session{AccessToken: "x", ExpiresAt: exp}
	assert.False(t, s.Expired(exp.Add(-time.Second)))
	assert.True(t, s.Expired(exp))
	assert.False(t, Session{AccessToken: "x"}.Expired(exp))
}

func TestWithAccessToken(t *testing.T) {
	exp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := Session{UserID: 5, AccessToken: "old", RefreshToken: "r", ExpiresAt: exp}

	renewed := s.WithAccessToken(makeJWT(t, map[string]any{"user_id": 5, "exp": exp.Add(time.Hour).Unix()}))
	assert.True(t, renewed.ExpiresAt.Equal(exp.Add(time.Hour)))
	assert.Equal(t, "r", renewed.RefreshToken)
	assert.Equal(t, "old", s.AccessToken)

	opaque := s.WithAccessToken("opaque")
	assert.Equal(t, int64(5), opaque.UserID)
	assert.True(t, opaque.ExpiresAt.IsZero())
}

func TestTokenSourceAndContext(t *testing.T) {
	_, err := Session{}.Token()
	assert.ErrorIs(t, err, ErrNoToken)

	s := Session{UserID: 1, AccessToken: "abc"}
	tok, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.Type())

	ctx := NewContext(context.Background(), s)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, s, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}
