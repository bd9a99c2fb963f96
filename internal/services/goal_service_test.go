package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/api"
	"expensetracker/internal/core"
	"expensetracker/internal/session"
)

func TestGoalService_List(t *testing.T) {
	backend := dashboardBackend()
	svc := NewGoalService(backend, nil)
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC) }

	list, err := svc.List(context.Background(), session.Session{})
	require.NoError(t, err)
	require.Len(t, list.Goals, 3)
	assert.Equal(t, "Housing", list.Goals[0].Goal.CategoryName)
	assert.Equal(t, core.GoalStats{Completed: 1, InProgress: 1, Failed: 1}, list.Stats)
	assert.Equal(t, "4.00% less spent than last set month so far", list.Goals[2].Classification.SecondaryText)
}

func TestGoalService_Create(t *testing.T) {
	tests := []struct {
		name    string
		req     api.CreateGoalRequest
		wantErr error
	}{
		{
			name: "valid weekly amount goal",
			req:  api.CreateGoalRequest{GoalType: core.GoalTypeAmount, Limit: 30, Period: 7, StartDate: "2025-03-01T00:00:00"},
		},
		{
			name:    "unknown type",
			req:     api.CreateGoalRequest{GoalType: "ratio", Limit: 30, Period: 7, StartDate: "2025-03-01"},
			wantErr: core.ErrInvalidGoalType,
		},
		{
			name:    "percentage above 100",
			req:     api.CreateGoalRequest{GoalType: core.GoalTypePercentage, Limit: 120, Period: 30, StartDate: "2025-03-01"},
			wantErr: core.ErrInvalidLimit,
		},
		{
			name:    "odd period",
			req:     api.CreateGoalRequest{GoalType: core.GoalTypeAmount, Limit: 10, Period: 14, StartDate: "2025-03-01"},
			wantErr: core.ErrInvalidPeriod,
		},
		{
			name:    "missing start date",
			req:     api.CreateGoalRequest{GoalType: core.GoalTypeAmount, Limit: 10, Period: 30},
			wantErr: core.ErrInvalidDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{}
			svc := NewGoalService(backend, nil)

			g, err := svc.Create(context.Background(), session.Session{}, tt.req)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, IsValidationError(err))
				assert.Empty(t, backend.created)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(1), g.ID)
			assert.Len(t, backend.created, 1)
		})
	}
}

func TestGoalService_CreateReportsEveryProblem(t *testing.T) {
	svc := NewGoalService(&fakeBackend{}, nil)

	_, err := svc.Create(context.Background(), session.Session{}, api.CreateGoalRequest{GoalType: "x", Period: 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidGoalType)
	assert.ErrorIs(t, err, core.ErrInvalidDate)
}

func TestGoalService_Update(t *testing.T) {
	backend := &fakeBackend{}
	svc := NewGoalService(backend, nil)
	ctx := context.Background()

	_, err := svc.Update(ctx, session.Session{}, 4, api.UpdateGoalRequest{
		GoalType: core.GoalTypeAmount, Limit: 40, StartDate: "2025-03-01", EndDate: "2025-03-31",
	})
	require.NoError(t, err)
	assert.Equal(t, 40.0, backend.updated[4].Limit)

	_, err = svc.Update(ctx, session.Session{}, 4, api.UpdateGoalRequest{
		GoalType: core.GoalTypeAmount, Limit: 40, StartDate: "2025-03-31", EndDate: "2025-03-01",
	})
	assert.ErrorIs(t, err, core.ErrInvalidDate)
}

func TestGoalService_Delete(t *testing.T) {
	backend := &fakeBackend{}
	svc := NewGoalService(backend, nil)

	require.NoError(t, svc.Delete(context.Background(), session.Session{}, 8))
	assert.Equal(t, []int64{8}, backend.deleted)
}
