package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "worker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func envelope(t *testing.T, eventType amqp.EventType, payload any) *amqp.Envelope {
	t.Helper()
	env, err := amqp.NewEnvelope(eventType, payload)
	require.NoError(t, err)
	return env
}

func TestNotificationText(t *testing.T) {
	assert.Equal(t, "Goal completed: Spend less than $30.00 on Housing",
		NotificationTitle(core.StateCompleted, "Spend less than $30.00 on Housing"))
	assert.Equal(t, "Goal failed: Spend less than $50.00 on Food",
		NotificationTitle(core.StateFailed, "Spend less than $50.00 on Food"))
	assert.Equal(t, "Goal failed", NotificationTitle(core.StateFailed, ""))

	assert.Equal(t, "$280.00 amount spent in set month (+20 xp)", NotificationBody(amqp.GoalOutcomeMessage{
		State: core.StateCompleted, SecondaryText: "$280.00 amount spent in set month", RewardXP: 20,
	}))
	assert.Equal(t, "$60.00 amount spent in set week", NotificationBody(amqp.GoalOutcomeMessage{
		State: core.StateFailed, SecondaryText: "$60.00 amount spent in set week", RewardXP: 5,
	}))
}

func TestHandleGoalOutcomeStoresOnce(t *testing.T) {
	repo := newRepo(t)
	w := NewEventWorker(repo, nil)
	ctx := context.Background()
	msg := amqp.GoalOutcomeMessage{UserID: 1, GoalID: 10, State: core.StateCompleted, MainText: "Spend less than $30.00 on Housing", RewardXP: 20}

	require.NoError(t, w.HandleGoalOutcome(ctx, envelope(t, amqp.EventGoalOutcome, msg), msg))
	// The dashboard publishes the same outcome on every load.
	require.NoError(t, w.HandleGoalOutcome(ctx, envelope(t, amqp.EventGoalOutcome, msg), msg))

	list, err := repo.ListNotifications(ctx, 1, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Goal completed: Spend less than $30.00 on Housing", list[0].Title)
	assert.Equal(t, core.StateCompleted, list[0].State)
}

func TestHandleDealVoteDeduplicatesRedelivery(t *testing.T) {
	repo := newRepo(t)
	w := NewEventWorker(repo, nil)
	ctx := context.Background()
	msg := amqp.DealVoteMessage{UserID: 2, DealID: 5, Action: core.ActionUpvote, Vote: core.VoteUp, Upvotes: 3}
	env := envelope(t, amqp.EventDealVote, msg)

	require.NoError(t, w.HandleDealVote(ctx, env, msg))
	require.NoError(t, w.HandleDealVote(ctx, env, msg))

	votes, err := repo.ListVotes(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, env.ID, votes[0].MessageID)
	assert.WithinDuration(t, env.Timestamp, votes[0].VotedAt, time.Millisecond)
}

type failingStore struct{}

func (failingStore) AddNotification(ctx context.Context, n storage.Notification) (bool, error) {
	return false, errors.New("database is locked")
}

func (failingStore) RecordVote(ctx context.Context, v storage.VoteRecord) (bool, error) {
	return false, errors.New("database is locked")
}

func TestStoreErrorsAreReturned(t *testing.T) {
	w := NewEventWorker(failingStore{}, nil)
	h := w.Handlers()
	ctx := context.Background()

	goal := amqp.GoalOutcomeMessage{GoalID: 1, State: core.StateFailed}
	assert.Error(t, h.GoalOutcome(ctx, envelope(t, amqp.EventGoalOutcome, goal), goal))

	vote := amqp.DealVoteMessage{DealID: 1, Action: core.ActionDownvote, Vote: core.VoteDown}
	assert.Error(t, h.DealVote(ctx, envelope(t, amqp.EventDealVote, vote), vote))
}
