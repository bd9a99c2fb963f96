package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/session"
)

// WatcherConfig holds configuration for the goal watcher
type WatcherConfig struct {
	// Profile is the stored session the watcher acts for.
	Profile string

	// RefreshInterval is how often the session expiry is checked (default: 30s)
	RefreshInterval time.Duration

	// CheckInterval is how often goals are re-classified (default: 15m)
	CheckInterval time.Duration
}

// DefaultWatcherConfig returns sensible defaults
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		Profile:         "default",
		RefreshInterval: 30 * time.Second,
		CheckInterval:   15 * time.Minute,
	}
}

// SessionSource yields a usable session for a profile.
type SessionSource interface {
	Current(ctx context.Context, profile string) (session.Session, error)
}

// DashboardLoader derives a month's dashboard.
type DashboardLoader interface {
	Load(ctx context.Context, sess session.Session, year int, month time.Month) (core.Dashboard, error)
}

// GoalWatcher keeps a stored session fresh and periodically loads the
// current dashboard so finished goals get announced.
type GoalWatcher struct {
	sessions  SessionSource
	dashboard DashboardLoader
	config    WatcherConfig
	logger    *log.Logger
	now       func() time.Time

	// Lifecycle management
	mu        sync.Mutex
	running   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	lastStats core.GoalStats
}

func NewGoalWatcher(sessions SessionSource, dashboard DashboardLoader, config WatcherConfig, logger *log.Logger) *GoalWatcher {
	if logger == nil {
		logger = log.Discard()
	}
	def := DefaultWatcherConfig()
	if config.Profile == "" {
		config.Profile = def.Profile
	}
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = def.RefreshInterval
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = def.CheckInterval
	}
	return &GoalWatcher{
		sessions:  sessions,
		dashboard: dashboard,
		config:    config,
		logger:    logger.WithComponent(log.ComponentWorker),
		now:       time.Now,
	}
}

// Start begins the watch loop. Returns an error if already running.
func (w *GoalWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("goal watcher is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(ctx)

	w.logger.InfoContext(ctx, "Goal watcher started",
		"profile", w.config.Profile,
		"refresh_interval", w.config.RefreshInterval,
		"check_interval", w.config.CheckInterval)
	return nil
}

// Stop stops the watcher and waits for the loop to exit.
func (w *GoalWatcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		w.logger.InfoContext(ctx, "Goal watcher stopped gracefully")
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Goal watcher stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return nil
}

func (w *GoalWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// LastStats returns the goal tallies of the most recent successful check.
func (w *GoalWatcher) LastStats() core.GoalStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastStats
}

func (w *GoalWatcher) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	refreshTicker := time.NewTicker(w.config.RefreshInterval)
	defer refreshTicker.Stop()

	checkTicker := time.NewTicker(w.config.CheckInterval)
	defer checkTicker.Stop()

	w.check(ctx)

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-refreshTicker.C:
			w.refresh(ctx)
		case <-checkTicker.C:
			w.check(ctx)
		}
	}
}

// refresh lets the session source renew the token when it is close to expiry.
func (w *GoalWatcher) refresh(ctx context.Context) {
	if _, err := w.sessions.Current(ctx, w.config.Profile); err != nil {
		w.logSessionError(ctx, err)
	}
}

func (w *GoalWatcher) check(ctx context.Context) {
	sess, err := w.sessions.Current(ctx, w.config.Profile)
	if err != nil {
		w.logSessionError(ctx, err)
		return
	}

	now := w.now()
	d, err := w.dashboard.Load(ctx, sess, now.Year(), now.Month())
	if err != nil {
		w.logger.ErrorContext(ctx, "Goal check failed",
			log.FieldUserID, sess.UserID,
			log.FieldError, err)
		return
	}

	w.mu.Lock()
	w.lastStats = d.Stats
	w.mu.Unlock()

	w.logger.DebugContext(ctx, "Goals checked",
		log.FieldUserID, sess.UserID,
		"completed", d.Stats.Completed,
		"in_progress", d.Stats.InProgress,
		"failed", d.Stats.Failed)
}

func (w *GoalWatcher) logSessionError(ctx context.Context, err error) {
	if errors.Is(err, ErrNotLoggedIn) || errors.Is(err, ErrSessionExpired) {
		w.logger.WarnContext(ctx, "No usable session, skipping", "profile", w.config.Profile, log.FieldError, err)
		return
	}
	w.logger.ErrorContext(ctx, "Session check failed", "profile", w.config.Profile, log.FieldError, err)
}
