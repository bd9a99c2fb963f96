package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"expensetracker/internal/api"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/session"
)

// GoalBackend is the part of the backend API the goal service needs.
type GoalBackend interface {
	Goals(ctx context.Context, s session.Session) (api.GoalsResponse, error)
	Categories(ctx context.Context, s session.Session) ([]core.Category, error)
	CreateGoal(ctx context.Context, s session.Session, req api.CreateGoalRequest) (core.Goal, error)
	UpdateGoal(ctx context.Context, s session.Session, id int64, req api.UpdateGoalRequest) (core.Goal, error)
	DeleteGoal(ctx context.Context, s session.Session, id int64) error
}

// GoalList is the classified goal list with its tallies.
type GoalList struct {
	Goals []core.GoalView `json:"goals"`
	Stats core.GoalStats  `json:"stats"`
}

type GoalService struct {
	backend GoalBackend
	logger  *log.Logger
	now     func() time.Time
}

func NewGoalService(backend GoalBackend, logger *log.Logger) *GoalService {
	if logger == nil {
		logger = log.Discard()
	}
	return &GoalService{
		backend: backend,
		logger:  logger.WithComponent(log.ComponentGoals),
		now:     time.Now,
	}
}

// List returns every goal of the user classified at the current time.
func (s *GoalService) List(ctx context.Context, sess session.Session) (GoalList, error) {
	resp, err := s.backend.Goals(ctx, sess)
	if err != nil {
		return GoalList{}, err
	}
	categories, err := s.backend.Categories(ctx, sess)
	if err != nil {
		return GoalList{}, err
	}

	now := s.now()
	out := GoalList{Goals: make([]core.GoalView, 0, len(resp.Goals))}
	states := make([]core.GoalState, 0, len(resp.Goals))
	for _, g := range core.ResolveCategoryNames(resp.Goals, categories) {
		c, err := core.Classify(g, now)
		if err != nil {
			s.logger.WarnContext(ctx, "Goal cannot be classified",
				log.FieldOperation, log.OpClassify,
				log.FieldGoalID, g.ID,
				log.FieldError, err)
			return GoalList{}, err
		}
		out.Goals = append(out.Goals, core.GoalView{Goal: g, Classification: c})
		states = append(states, c.State)
	}
	out.Stats = core.Tally(states)
	return out, nil
}

// Create validates req and creates the goal.
func (s *GoalService) Create(ctx context.Context, sess session.Session, req api.CreateGoalRequest) (core.Goal, error) {
	if err := validateCreate(req); err != nil {
		return core.Goal{}, err
	}
	g, err := s.backend.CreateGoal(ctx, sess, req)
	if err != nil {
		return core.Goal{}, err
	}
	s.logger.InfoContext(ctx, "Goal created",
		log.FieldOperation, log.OpCreate,
		log.FieldGoalID, g.ID,
		log.FieldUserID, sess.UserID)
	return g, nil
}

// Update validates req and updates goal id.
func (s *GoalService) Update(ctx context.Context, sess session.Session, id int64, req api.UpdateGoalRequest) (core.Goal, error) {
	if err := validateUpdate(req); err != nil {
		return core.Goal{}, err
	}
	g, err := s.backend.UpdateGoal(ctx, sess, id, req)
	if err != nil {
		return core.Goal{}, err
	}
	s.logger.InfoContext(ctx, "Goal updated",
		log.FieldOperation, log.OpUpdate,
		log.FieldGoalID, id,
		log.FieldUserID, sess.UserID)
	return g, nil
}

func (s *GoalService) Delete(ctx context.Context, sess session.Session, id int64) error {
	if err := s.backend.DeleteGoal(ctx, sess, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Goal deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldGoalID, id,
		log.FieldUserID, sess.UserID)
	return nil
}

// ValidationErrors collects every problem found in a goal request.
type ValidationErrors []error

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, err := range v {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (v ValidationErrors) Unwrap() []error {
	return v
}

func validateCreate(req api.CreateGoalRequest) error {
	var errs ValidationErrors
	g := core.Goal{GoalType: req.GoalType, Limit: req.Limit, Period: req.Period}
	if err := g.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := core.ParseGoalTime(req.StartDate); err != nil {
		errs = append(errs, fmt.Errorf("start date: %w", err))
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateUpdate(req api.UpdateGoalRequest) error {
	var errs ValidationErrors
	// Period is fixed once a goal exists.
	g := core.Goal{GoalType: req.GoalType, Limit: req.Limit, Period: 30}
	if err := g.Validate(); err != nil {
		errs = append(errs, err)
	}
	start, startErr := core.ParseGoalTime(req.StartDate)
	if startErr != nil {
		errs = append(errs, fmt.Errorf("start date: %w", startErr))
	}
	end, endErr := core.ParseGoalTime(req.EndDate)
	if endErr != nil {
		errs = append(errs, fmt.Errorf("end date: %w", endErr))
	}
	if startErr == nil && endErr == nil && !end.After(start) {
		errs = append(errs, fmt.Errorf("%w: end date must be after start date", core.ErrInvalidDate))
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// IsValidationError reports whether err came from goal request validation.
func IsValidationError(err error) bool {
	var v ValidationErrors
	return errors.As(err, &v)
}
