package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"expensetracker/internal/session"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
}

// ProfileUpdate replaces the session user's names.
type ProfileUpdate struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Username  string `json:"username"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type UserProfile struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
}

// Health calls the backend health check.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, request{method: http.MethodGet, path: "/healthcheck"}, &out)
	return out, err
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, username, password string) (session.Session, error) {
	var out tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   LoginRequest{Username: username, Password: password},
	}, &out)
	if err != nil {
		return session.Session{}, fmt.Errorf("login: %w", err)
	}
	if out.AccessToken == "" {
		return session.Session{}, fmt.Errorf("login: %w", session.ErrNoToken)
	}
	return session.New(out.AccessToken, out.RefreshToken)
}

// Register creates a new account. It does not log in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	if err := c.do(ctx, request{method: http.MethodPost, path: "/auth/register", body: req}, nil); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// Refresh renews the access token of s using its refresh token.
func (c *Client) Refresh(ctx context.Context, s session.Session) (session.Session, error) {
	if s.RefreshToken == "" {
		return s, fmt.Errorf("refresh: %w", session.ErrNoToken)
	}
	var out tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/refresh",
		body:   map[string]string{"refresh_token": s.RefreshToken},
	}, &out)
	if err != nil {
		return s, fmt.Errorf("refresh: %w", err)
	}
	if out.AccessToken == "" {
		return s, fmt.Errorf("refresh: %w", session.ErrNoToken)
	}
	return s.WithAccessToken(out.AccessToken), nil
}

// UserProfile fetches a user's profile.
func (c *Client) UserProfile(ctx context.Context, s session.Session, userID int64) (UserProfile, error) {
	var out UserProfile
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/user/profile/" + strconv.FormatInt(userID, 10),
		sess:   &s,
	}, &out)
	return out, err
}

// UpdateProfile changes the names of the session's user.
func (c *Client) UpdateProfile(ctx context.Context, s session.Session, req ProfileUpdate) error {
	if err := c.do(ctx, request{method: http.MethodPut, path: "/user/profile", body: req, sess: &s}, nil); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}
