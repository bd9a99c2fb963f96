package services

import (
	"context"
	"sync"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/api"
	"expensetracker/internal/core"
	"expensetracker/internal/session"
	"expensetracker/internal/storage"
)

type fakeBackend struct {
	mu sync.Mutex

	deals      []core.Deal
	voteErr    error
	votes      []string
	summary    core.SpendingSummary
	summaryErr error
	categories []core.Category
	catCalls   int
	goals      api.GoalsResponse
	level      *core.Level
	created    []api.CreateGoalRequest
	updated    map[int64]api.UpdateGoalRequest
	deleted    []int64

	start, end time.Time
}

func (f *fakeBackend) Deals(ctx context.Context, s session.Session, filter api.DealFilter) ([]core.Deal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.Deal(nil), f.deals...), nil
}

func (f *fakeBackend) Vote(ctx context.Context, s session.Session, action core.VoteAction, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.voteErr != nil {
		return f.voteErr
	}
	f.votes = append(f.votes, string(action))
	return nil
}

func (f *fakeBackend) SpendingSummary(ctx context.Context, s session.Session, start, end time.Time) (core.SpendingSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.start, f.end = start, end
	return f.summary, f.summaryErr
}

func (f *fakeBackend) Categories(ctx context.Context, s session.Session) ([]core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catCalls++
	return f.categories, nil
}

func (f *fakeBackend) Goals(ctx context.Context, s session.Session) (api.GoalsResponse, error) {
	return f.goals, nil
}

func (f *fakeBackend) Level(ctx context.Context, s session.Session) (core.Level, error) {
	if f.level == nil {
		return core.Level{}, &api.StatusError{StatusCode: 404}
	}
	return *f.level, nil
}

func (f *fakeBackend) CreateGoal(ctx context.Context, s session.Session, req api.CreateGoalRequest) (core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	return core.Goal{ID: int64(len(f.created)), GoalType: req.GoalType, Limit: req.Limit, Period: req.Period}, nil
}

func (f *fakeBackend) UpdateGoal(ctx context.Context, s session.Session, id int64, req api.UpdateGoalRequest) (core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updated == nil {
		f.updated = map[int64]api.UpdateGoalRequest{}
	}
	f.updated[id] = req
	return core.Goal{ID: id, GoalType: req.GoalType, Limit: req.Limit}, nil
}

func (f *fakeBackend) DeleteGoal(ctx context.Context, s session.Session, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

type fakePublisher struct {
	mu       sync.Mutex
	err      error
	outcomes []amqp.GoalOutcomeMessage
	votes    []amqp.DealVoteMessage
}

func (p *fakePublisher) PublishGoalOutcome(ctx context.Context, msg amqp.GoalOutcomeMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes = append(p.outcomes, msg)
	return p.err
}

func (p *fakePublisher) PublishDealVote(ctx context.Context, msg amqp.DealVoteMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.votes = append(p.votes, msg)
	return p.err
}

type fakeAuth struct {
	loginSession session.Session
	refreshed    session.Session
	refreshErr   error
	refreshCalls int
}

func (a *fakeAuth) Login(ctx context.Context, username, password string) (session.Session, error) {
	return a.loginSession, nil
}

func (a *fakeAuth) Refresh(ctx context.Context, s session.Session) (session.Session, error) {
	a.refreshCalls++
	return a.refreshed, a.refreshErr
}

type memoryStore struct {
	sessions map[string]session.Session
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: map[string]session.Session{}}
}

func (m *memoryStore) SaveSession(ctx context.Context, profile string, s session.Session) error {
	m.sessions[profile] = s
	return nil
}

func (m *memoryStore) LoadSession(ctx context.Context, profile string) (session.Session, error) {
	s, ok := m.sessions[profile]
	if !ok {
		return session.Session{}, storage.ErrNotFound
	}
	return s, nil
}

func (m *memoryStore) DeleteSession(ctx context.Context, profile string) error {
	delete(m.sessions, profile)
	return nil
}
