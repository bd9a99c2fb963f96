package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/core"
)

// EventType names the payload carried by an Envelope.
type EventType string

const (
	EventGoalOutcome EventType = "goal_outcome"
	EventDealVote    EventType = "deal_vote"
)

var ErrInvalidMessage = errors.New("invalid message")

// Envelope wraps every event published on the queue.
type Envelope struct {
	Type      EventType       `json:"type"`
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload and stamps it with a fresh message ID.
func NewEnvelope(eventType EventType, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Envelope{
		Type:      eventType,
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	}, nil
}

// ToJSON converts the envelope to JSON bytes
func (e *Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EnvelopeFromJSON parses an envelope and checks its header fields.
func EnvelopeFromJSON(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrInvalidMessage)
	}
	if env.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidMessage)
	}
	return &env, nil
}

// Decode unmarshals the payload into v.
func (e *Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidMessage)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return nil
}

// GoalOutcomeMessage announces that a goal finished, either met or missed.
type GoalOutcomeMessage struct {
	UserID        int64          `json:"user_id"`
	GoalID        int64          `json:"goal_id"`
	State         core.GoalState `json:"state"`
	MainText      string         `json:"main_text"`
	SecondaryText string         `json:"secondary_text"`
	RewardXP      int            `json:"reward_xp"`
}

func (m GoalOutcomeMessage) Validate() error {
	if m.GoalID <= 0 {
		return fmt.Errorf("%w: goal id must be positive", ErrInvalidMessage)
	}
	if m.State != core.StateCompleted && m.State != core.StateFailed {
		return fmt.Errorf("%w: goal state %q is not final", ErrInvalidMessage, m.State)
	}
	return nil
}

// DealVoteMessage records a vote after it was applied, with the resulting counters.
type DealVoteMessage struct {
	UserID    int64           `json:"user_id"`
	DealID    int64           `json:"deal_id"`
	Action    core.VoteAction `json:"action"`
	Vote      core.Vote       `json:"vote"`
	Upvotes   int             `json:"upvotes"`
	Downvotes int             `json:"downvotes"`
}

func (m DealVoteMessage) Validate() error {
	if m.DealID <= 0 {
		return fmt.Errorf("%w: deal id must be positive", ErrInvalidMessage)
	}
	switch m.Action {
	case core.ActionUpvote, core.ActionDownvote, core.ActionCancelVote:
	default:
		return fmt.Errorf("%w: unknown vote action %q", ErrInvalidMessage, m.Action)
	}
	if m.Vote < core.VoteDown || m.Vote > core.VoteUp {
		return fmt.Errorf("%w: vote %d out of range", ErrInvalidMessage, m.Vote)
	}
	if m.Upvotes < 0 || m.Downvotes < 0 {
		return fmt.Errorf("%w: negative counters", ErrInvalidMessage)
	}
	return nil
}
