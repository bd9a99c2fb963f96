package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/amqp"
	"expensetracker/internal/api"
	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/session"
)

// windowLayout is how dashboard window bounds are rendered.
const windowLayout = "2006-01-02T15:04:05"

// DashboardBackend is the part of the backend API the dashboard needs.
type DashboardBackend interface {
	SpendingSummary(ctx context.Context, s session.Session, start, end time.Time) (core.SpendingSummary, error)
	Categories(ctx context.Context, s session.Session) ([]core.Category, error)
	Goals(ctx context.Context, s session.Session) (api.GoalsResponse, error)
	Level(ctx context.Context, s session.Session) (core.Level, error)
}

// DashboardService assembles the derived monthly dashboard.
type DashboardService struct {
	backend    DashboardBackend
	publisher  amqp.Publisher
	categories cache.Cache[[]core.Category]
	logger     *log.Logger
	loc        *time.Location
	now        func() time.Time
}

// NewDashboardService builds the service. categories may be nil to disable
// category caching.
func NewDashboardService(backend DashboardBackend, publisher amqp.Publisher, categories cache.Cache[[]core.Category], logger *log.Logger) *DashboardService {
	if logger == nil {
		logger = log.Discard()
	}
	return &DashboardService{
		backend:    backend,
		publisher:  publisher,
		categories: categories,
		logger:     logger.WithComponent(log.ComponentDashboard),
		loc:        time.Local,
		now:        time.Now,
	}
}

func categoryKey(userID int64) string {
	return "categories:" + strconv.FormatInt(userID, 10)
}

// Load fetches the month's raw data in parallel and derives the dashboard.
// The level is optional: when it cannot be fetched the dashboard is still
// returned without it.
func (s *DashboardService) Load(ctx context.Context, sess session.Session, year int, month time.Month) (core.Dashboard, error) {
	start, end := core.MonthRange(year, month, s.loc)

	var (
		summary    core.SpendingSummary
		categories []core.Category
		goals      api.GoalsResponse
		level      *core.Level
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = s.backend.SpendingSummary(gctx, sess, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = s.loadCategories(gctx, sess)
		return err
	})
	g.Go(func() error {
		var err error
		goals, err = s.backend.Goals(gctx, sess)
		return err
	})
	g.Go(func() error {
		l, err := s.backend.Level(gctx, sess)
		if err != nil {
			s.logger.WarnContext(ctx, "Level unavailable", log.FieldUserID, sess.UserID, log.FieldError, err)
			return nil
		}
		level = &l
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.Dashboard{}, fmt.Errorf("load dashboard %d-%02d: %w", year, month, err)
	}

	d, err := core.BuildDashboard(summary, categories, goals.Goals, level,
		start.Format(windowLayout), end.Format(windowLayout), s.now())
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("build dashboard %d-%02d: %w", year, month, err)
	}

	if goals.Stats != nil && *goals.Stats != d.Stats {
		s.logger.DebugContext(ctx, "Backend goal stats differ from derived ones",
			"backend", *goals.Stats, "derived", d.Stats)
	}

	s.logger.DebugContext(ctx, "Dashboard built",
		log.FieldUserID, sess.UserID,
		log.FieldYear, year,
		log.FieldMonth, int(month),
		"goals", len(d.Goals))
	s.publishOutcomes(ctx, sess, d.Goals)
	return d, nil
}

func (s *DashboardService) loadCategories(ctx context.Context, sess session.Session) ([]core.Category, error) {
	if s.categories == nil {
		return s.backend.Categories(ctx, sess)
	}
	return s.categories.GetOrLoad(ctx, categoryKey(sess.UserID), func(ctx context.Context) ([]core.Category, error) {
		return s.backend.Categories(ctx, sess)
	})
}

// InvalidateCategories drops the cached categories of userID.
func (s *DashboardService) InvalidateCategories(userID int64) {
	if s.categories != nil {
		s.categories.Delete(categoryKey(userID))
	}
}

// publishOutcomes announces every finished goal. Consumers deduplicate, so
// repeated loads of the same month are harmless.
func (s *DashboardService) publishOutcomes(ctx context.Context, sess session.Session, goals []core.GoalView) {
	if s.publisher == nil {
		return
	}
	for _, gv := range goals {
		state := gv.Classification.State
		if state != core.StateCompleted && state != core.StateFailed {
			continue
		}
		err := s.publisher.PublishGoalOutcome(ctx, amqp.GoalOutcomeMessage{
			UserID:        sess.UserID,
			GoalID:        gv.Goal.ID,
			State:         state,
			MainText:      gv.Classification.MainText,
			SecondaryText: gv.Classification.SecondaryText,
			RewardXP:      gv.Classification.RewardXP,
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish goal outcome",
				log.FieldGoalID, gv.Goal.ID,
				log.FieldGoalState, state,
				log.FieldError, err)
		}
	}
}
