package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/session"
)

func testJWT(userID int64, exp time.Time) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	body, _ := json.Marshal(map[string]any{"user_id": userID, "exp": exp.Unix()})
	return header + "." + base64.RawURLEncoding.EncodeToString(body) + ".sig"
}

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithBackoff(time.Millisecond, 2*time.Millisecond)}, opts...)
	c, err := New(srv.URL, opts...)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("/api")
	assert.Error(t, err)
}

func TestLoginBuildsSession(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	access := testJWT(12, exp)

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Empty(t, r.Header.Get("Authorization"))
		var body LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ada", body.Username)
		writeJSON(w, map[string]string{"access_token": access, "refresh_token": "refresh-1"})
	}))

	s, err := c.Login(context.Background(), "ada", "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(12), s.UserID)
	assert.Equal(t, "refresh-1", s.RefreshToken)
	assert.True(t, s.ExpiresAt.Equal(exp.UTC()))
}

func TestRequestsCarryBearerToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		writeJSON(w, []core.Category{{ID: 1, Name: "Housing", Color: "#fff"}})
	}))

	cats, err := c.Categories(context.Background(), session.Session{AccessToken: "tok-1"})
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Housing", cats[0].Name)
}

func TestGetRetriesOnServerError(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "try later", http.StatusBadGateway)
			return
		}
		writeJSON(w, HealthResponse{Status: "ok"})
	}), WithMaxRetries(2))

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGetGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}), WithMaxRetries(1))

	_, err := c.Health(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetries)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestPostIsNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}), WithMaxRetries(3))

	err := c.Upvote(context.Background(), session.Session{AccessToken: "t"}, 5)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMaxRetries)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestStatusErrorSentinels(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/goals/":
			http.Error(w, `{"detail":"Not authenticated"}`, http.StatusUnauthorized)
		default:
			http.Error(w, `{"detail":"Deal not found."}`, http.StatusNotFound)
		}
	}))

	_, err := c.Goals(context.Background(), session.Session{AccessToken: "expired"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.Deal(context.Background(), session.Session{AccessToken: "t"}, 404)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "Deal not found.")
}

func TestVoteEndpoints(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
	}))
	s := session.Session{AccessToken: "t"}
	ctx := context.Background()

	require.NoError(t, c.Upvote(ctx, s, 1))
	require.NoError(t, c.Downvote(ctx, s, 2))
	require.NoError(t, c.CancelVote(ctx, s, 3))
	require.NoError(t, c.Vote(ctx, s, core.ActionUpvote, 4))
	assert.Error(t, c.Vote(ctx, s, core.VoteAction("boost"), 5))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/deals/upvote/1", "/deals/downvote/2", "/deals/cancel_vote/3", "/deals/upvote/4"}, paths)
}

func TestDealsListSendsFilter(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/deals/list", r.URL.Path)
		var f DealFilter
		require.NoError(t, json.NewDecoder(r.Body).Decode(&f))
		require.NotNil(t, f.Location)
		assert.Equal(t, 5.0, f.Location.Distance)
		writeJSON(w, []map[string]any{
			{"id": 1, "name": "Coffee", "upvotes": 2, "downvotes": 1, "user_vote": -1},
		})
	}))

	deals, err := c.Deals(context.Background(), session.Session{AccessToken: "t"}, DealFilter{Location: &Location{Longitude: 1, Latitude: 2, Distance: 5}})
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, core.VoteDown, deals[0].UserVote)
}

func TestGoalsAcceptsBothShapes(t *testing.T) {
	var wrapped atomic.Bool
	wrapped.Store(true)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		goal := map[string]any{"id": 1, "goal_type": "amount", "limit": 30, "amount": 280, "period": 30, "on_track": true}
		if wrapped.Load() {
			writeJSON(w, map[string]any{"goals": []any{goal}, "stats": map[string]int{"completed": 1}})
			return
		}
		writeJSON(w, []any{goal})
	}))
	s := session.Session{AccessToken: "t"}

	resp, err := c.Goals(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, resp.Goals, 1)
	require.NotNil(t, resp.Stats)
	assert.Equal(t, 1, resp.Stats.Completed)
	assert.Equal(t, 280.0, resp.Goals[0].AmountSpent)

	wrapped.Store(false)
	resp, err = c.Goals(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, resp.Goals, 1)
	assert.Nil(t, resp.Stats)
}

func TestSpendingSummaryQuery(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2025-03-01T00:00:00", r.URL.Query().Get("start_date"))
		assert.Equal(t, "2025-03-31T23:59:59", r.URL.Query().Get("end_date"))
		writeJSON(w, map[string]any{
			"total_spend":        100.5,
			"category_breakdown": []map[string]any{{"category_name": "Food", "total_amount": 100.5, "percentage": 100, "color": nil}},
		})
	}))

	start, end := core.MonthRange(2025, time.March, time.UTC)
	sum, err := c.SpendingSummary(context.Background(), session.Session{AccessToken: "t"}, start, end)
	require.NoError(t, err)
	assert.Equal(t, 100.5, sum.TotalSpend)
	require.Len(t, sum.CategoryBreakdown, 1)
	assert.Nil(t, sum.CategoryBreakdown[0].Color)
}

func TestRefresh(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "refresh-1", body["refresh_token"])
		writeJSON(w, map[string]string{"access_token": testJWT(3, exp)})
	}))

	s, err := c.Refresh(context.Background(), session.Session{UserID: 3, AccessToken: "old", RefreshToken: "refresh-1"})
	require.NoError(t, err)
	assert.True(t, s.ExpiresAt.Equal(exp.UTC()))
	assert.Equal(t, "refresh-1", s.RefreshToken)

	_, err = c.Refresh(context.Background(), session.Session{AccessToken: "old"})
	assert.ErrorIs(t, err, session.ErrNoToken)
}
