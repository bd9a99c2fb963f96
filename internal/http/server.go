// Package http is the backend-for-frontend: it serves derived, display-ready
// JSON over the remote expense tracker API.
package http

import (
	"context"
	"net/http"
	"time"

	"expensetracker/internal/api"
	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/services"
	"expensetracker/internal/session"
	"expensetracker/internal/storage"
)

const (
	maxBodyBytes       = 1 << 20
	defaultIdentityTTL = 5 * time.Minute
)

type Dashboards interface {
	Load(ctx context.Context, sess session.Session, year int, month time.Month) (core.Dashboard, error)
}

type Deals interface {
	List(ctx context.Context, sess session.Session, filter api.DealFilter) ([]core.Deal, error)
	VoteByID(ctx context.Context, sess session.Session, id int64, dir core.Direction) (core.Deal, error)
}

type Goals interface {
	List(ctx context.Context, sess session.Session) (services.GoalList, error)
	Create(ctx context.Context, sess session.Session, req api.CreateGoalRequest) (core.Goal, error)
	Update(ctx context.Context, sess session.Session, id int64, req api.UpdateGoalRequest) (core.Goal, error)
	Delete(ctx context.Context, sess session.Session, id int64) error
}

type Notifications interface {
	ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]storage.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id int64) error
}

type HealthChecker interface {
	Health(ctx context.Context) (api.HealthResponse, error)
}

// Deps are the collaborators behind the routes. Notifications may be nil,
// in which case the notification routes answer 503. Without Identity every
// authenticated route answers 503.
type Deps struct {
	Dashboards    Dashboards
	Deals         Deals
	Goals         Goals
	Notifications Notifications
	Health        HealthChecker
	Identity      Identity
}

// Options tune the middleware stack.
type Options struct {
	RateLimitPerMinute int
	DashboardCacheTTL  time.Duration
	DashboardCacheSize int
	IdentityCacheTTL   time.Duration
	Logger             *log.Logger
}

type Server struct {
	http.Server
	deps     Deps
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector

	// nil when DashboardCacheTTL is zero
	dashboards cache.Cache[core.Dashboard]
	identities cache.Cache[int64]
	caches     *cache.Manager
	now        func() time.Time
}

// NewServer wires the routes and middleware. Call Shutdown to release the
// background sweeps.
func NewServer(addr string, deps Deps, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		deps:     deps,
		logger:   logger,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: security.NewDetector(),
		caches:   cache.NewManager(logger),
		now:      time.Now,
	}
	identityTTL := opts.IdentityCacheTTL
	if identityTTL <= 0 {
		identityTTL = defaultIdentityTTL
	}
	identities := cache.NewLRUCache[int64](1024, identityTTL)
	s.identities = identities
	s.caches.Register(identities)

	if opts.DashboardCacheTTL > 0 {
		size := opts.DashboardCacheSize
		if size <= 0 {
			size = 256
		}
		lru := cache.NewLRUCache[core.Dashboard](size, opts.DashboardCacheTTL)
		s.dashboards = lru
		s.caches.Register(lru)
	}
	s.caches.StartCleanup(time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /dashboard", s.authed(s.handleDashboard))
	mux.HandleFunc("GET /summary/chart.png", s.authed(s.handleChart))

	mux.HandleFunc("GET /deals", s.authed(s.handleListDeals))
	mux.HandleFunc("POST /deals/{id}/{direction}", s.authed(s.handleVote))

	mux.HandleFunc("GET /goals", s.authed(s.handleListGoals))
	mux.HandleFunc("POST /goals", s.authed(s.handleCreateGoal))
	mux.HandleFunc("PUT /goals/{id}", s.authed(s.handleUpdateGoal))
	mux.HandleFunc("DELETE /goals/{id}", s.authed(s.handleDeleteGoal))

	mux.HandleFunc("GET /notifications", s.authed(s.handleListNotifications))
	mux.HandleFunc("POST /notifications/{id}/read", s.authed(s.handleMarkRead))

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ClientIP, ratelimit.Mutating, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded", log.FieldClientIP, s.detector.ClientIP(r))
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	})(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.requestLogging(h)
	h = s.requestID(h)
	h = log.Middleware(logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown drains connections and stops the limiter and cache sweeps.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	s.caches.Stop()
	return s.Server.Shutdown(ctx)
}

func dashboardKey(userID int64, year int, month time.Month) string {
	return dashboardPrefix(userID) + time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

func dashboardPrefix(userID int64) string {
	return "dashboard:" + itoa(userID) + ":"
}

// invalidateDashboards drops every cached month of a user after a goal change.
func (s *Server) invalidateDashboards(userID int64) {
	if s.dashboards == nil {
		return
	}
	s.dashboards.DeletePrefix(dashboardPrefix(userID))
}
