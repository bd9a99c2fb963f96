package worker

import (
	"context"
	"fmt"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/storage"
)

// EventStore is where consumed events end up.
type EventStore interface {
	AddNotification(ctx context.Context, n storage.Notification) (bool, error)
	RecordVote(ctx context.Context, v storage.VoteRecord) (bool, error)
}

// EventWorker turns queue events into local records: goal outcomes become
// notifications and deal votes are appended to the vote log.
type EventWorker struct {
	store  EventStore
	logger *log.Logger
}

func NewEventWorker(store EventStore, logger *log.Logger) *EventWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &EventWorker{
		store:  store,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// Handlers wires the worker into amqp.Client.Consume.
func (w *EventWorker) Handlers() amqp.Handlers {
	return amqp.Handlers{
		GoalOutcome: w.HandleGoalOutcome,
		DealVote:    w.HandleDealVote,
	}
}

// NotificationTitle is the headline of a goal outcome notification.
func NotificationTitle(state core.GoalState, mainText string) string {
	prefix := "Goal failed"
	if state == core.StateCompleted {
		prefix = "Goal completed"
	}
	if mainText == "" {
		return prefix
	}
	return prefix + ": " + mainText
}

// NotificationBody describes the result and, for met goals, the reward.
func NotificationBody(msg amqp.GoalOutcomeMessage) string {
	if msg.State == core.StateCompleted && msg.RewardXP > 0 {
		return fmt.Sprintf("%s (+%d xp)", msg.SecondaryText, msg.RewardXP)
	}
	return msg.SecondaryText
}

// HandleGoalOutcome stores a notification for a finished goal. Outcomes that
// were already stored are acknowledged without a new row.
func (w *EventWorker) HandleGoalOutcome(ctx context.Context, env *amqp.Envelope, msg amqp.GoalOutcomeMessage) error {
	created, err := w.store.AddNotification(ctx, storage.Notification{
		UserID:    msg.UserID,
		GoalID:    msg.GoalID,
		State:     msg.State,
		Title:     NotificationTitle(msg.State, msg.MainText),
		Body:      NotificationBody(msg),
		CreatedAt: env.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("store goal outcome: %w", err)
	}

	if created {
		w.logger.InfoContext(ctx, "Goal outcome stored",
			log.FieldMessageID, env.ID,
			log.FieldUserID, msg.UserID,
			log.FieldGoalID, msg.GoalID,
			log.FieldGoalState, msg.State)
	} else {
		w.logger.DebugContext(ctx, "Goal outcome already stored",
			log.FieldMessageID, env.ID,
			log.FieldGoalID, msg.GoalID)
	}
	return nil
}

// HandleDealVote appends the vote to the log, keyed by message ID so a
// redelivered message is stored once.
func (w *EventWorker) HandleDealVote(ctx context.Context, env *amqp.Envelope, msg amqp.DealVoteMessage) error {
	created, err := w.store.RecordVote(ctx, storage.VoteRecord{
		MessageID: env.ID,
		UserID:    msg.UserID,
		DealID:    msg.DealID,
		Action:    msg.Action,
		Vote:      msg.Vote,
		Upvotes:   msg.Upvotes,
		Downvotes: msg.Downvotes,
		VotedAt:   env.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("record deal vote: %w", err)
	}

	if created {
		w.logger.InfoContext(ctx, "Deal vote recorded", log.NewFields().
			WithVote(msg.DealID, int(msg.Vote), string(msg.Action)).
			ToSlice()...)
	}
	return nil
}
