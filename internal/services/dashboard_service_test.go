package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/amqp"
	"expensetracker/internal/api"
	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/session"
)

func int64Ptr(v int64) *int64 { return &v }

func dashboardBackend() *fakeBackend {
	return &fakeBackend{
		summary: core.SpendingSummary{
			TotalSpend: 1280.5,
			CategoryBreakdown: []core.CategoryBreakdown{
				{CategoryName: "Housing", TotalAmount: 1000, Percentage: 78},
				{CategoryName: "Food", TotalAmount: 280.5, Percentage: 22},
			},
		},
		categories: []core.Category{{ID: 1, Name: "Housing"}},
		goals: api.GoalsResponse{Goals: []core.Goal{
			{ID: 10, CategoryID: int64Ptr(1), GoalType: core.GoalTypeAmount, Limit: 30, AmountSpent: 280, Period: 30, OnTrack: true,
				StartDate: "2025-02-01T00:00:00", EndDate: "2025-03-01T00:00:00"},
			{ID: 11, CategoryID: int64Ptr(7), GoalType: core.GoalTypeAmount, Limit: 50, AmountSpent: 60, Period: 7, OnTrack: false,
				StartDate: "2025-02-20T00:00:00", EndDate: "2025-02-27T00:00:00"},
			{ID: 12, CategoryID: int64Ptr(1), GoalType: core.GoalTypePercentage, Limit: 10, AmountSpent: 4, Period: 30, OnTrack: true,
				StartDate: "2025-03-01T00:00:00", EndDate: "2025-04-01T00:00:00"},
		}},
		level: &core.Level{Level: 3, CurrentXP: 40, TotalXPForNextLevel: 100},
	}
}

func newTestDashboard(backend *fakeBackend, pub *fakePublisher, c cache.Cache[[]core.Category]) *DashboardService {
	var publisher amqp.Publisher
	if pub != nil {
		publisher = pub
	}
	svc := NewDashboardService(backend, publisher, c, nil)
	svc.loc = time.UTC
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestDashboardService_Load(t *testing.T) {
	backend := dashboardBackend()
	pub := &fakePublisher{}
	svc := newTestDashboard(backend, pub, nil)

	d, err := svc.Load(context.Background(), session.Session{UserID: 5}, 2025, time.March)
	require.NoError(t, err)

	assert.Equal(t, "2025-03-01T00:00:00", d.Start)
	assert.Equal(t, "2025-03-31T23:59:59", d.End)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), backend.start)
	assert.Equal(t, "$1,280.50", d.TotalSpendText)

	for _, b := range d.CategoryBreakdown {
		require.NotNil(t, b.Color)
		assert.Contains(t, core.DefaultPalette, *b.Color)
	}

	require.Len(t, d.Goals, 3)
	assert.Equal(t, core.StateCompleted, d.Goals[0].Classification.State)
	assert.Equal(t, "Spend less than $30.00 on Housing", d.Goals[0].Classification.MainText)
	assert.Equal(t, core.StateFailed, d.Goals[1].Classification.State)
	assert.Equal(t, core.DeletedCategoryName, d.Goals[1].Goal.CategoryName)
	assert.Equal(t, core.StateInProgress, d.Goals[2].Classification.State)
	assert.Equal(t, core.GoalStats{Completed: 1, InProgress: 1, Failed: 1}, d.Stats)

	require.NotNil(t, d.Level)
	assert.Equal(t, 3, d.Level.Level)

	require.Len(t, pub.outcomes, 2)
	assert.Equal(t, int64(5), pub.outcomes[0].UserID)
	assert.Equal(t, int64(10), pub.outcomes[0].GoalID)
	assert.Equal(t, core.StateCompleted, pub.outcomes[0].State)
	assert.Equal(t, int64(11), pub.outcomes[1].GoalID)
	assert.Equal(t, 5, pub.outcomes[1].RewardXP)
}

func TestDashboardService_LevelIsOptional(t *testing.T) {
	backend := dashboardBackend()
	backend.level = nil
	svc := newTestDashboard(backend, nil, nil)

	d, err := svc.Load(context.Background(), session.Session{}, 2025, time.March)
	require.NoError(t, err)
	assert.Nil(t, d.Level)
}

func TestDashboardService_SummaryFailureFailsLoad(t *testing.T) {
	backend := dashboardBackend()
	backend.summaryErr = errors.New("backend down")
	svc := newTestDashboard(backend, nil, nil)

	_, err := svc.Load(context.Background(), session.Session{}, 2025, time.March)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2025-03")
}

func TestDashboardService_BadGoalDateFailsLoad(t *testing.T) {
	backend := dashboardBackend()
	backend.goals.Goals[0].EndDate = "soon"
	svc := newTestDashboard(backend, nil, nil)

	_, err := svc.Load(context.Background(), session.Session{}, 2025, time.March)
	assert.ErrorIs(t, err, core.ErrInvalidDate)
}

func TestDashboardService_CachesCategoriesPerUser(t *testing.T) {
	backend := dashboardBackend()
	lru := cache.NewLRUCache[[]core.Category](10, time.Minute)
	svc := newTestDashboard(backend, nil, lru)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Load(ctx, session.Session{UserID: 1}, 2025, time.March)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, backend.catCalls)

	_, err := svc.Load(ctx, session.Session{UserID: 2}, 2025, time.March)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.catCalls)

	svc.InvalidateCategories(1)
	_, err = svc.Load(ctx, session.Session{UserID: 1}, 2025, time.March)
	require.NoError(t, err)
	assert.Equal(t, 3, backend.catCalls)
}
