package services

import (
	"context"
	"errors"
	"fmt"

	"expensetracker/internal/amqp"
	"expensetracker/internal/api"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/session"
)

// ErrVoteFailed wraps backend failures of a vote. The local list is left
// untouched when it is returned.
var ErrVoteFailed = errors.New("vote failed")

// DealBackend is the part of the backend API the deal service needs.
type DealBackend interface {
	Deals(ctx context.Context, s session.Session, filter api.DealFilter) ([]core.Deal, error)
	Vote(ctx context.Context, s session.Session, action core.VoteAction, id int64) error
}

// DealService lists deals and reconciles votes with the backend.
type DealService struct {
	backend   DealBackend
	publisher amqp.Publisher
	logger    *log.Logger
}

func NewDealService(backend DealBackend, publisher amqp.Publisher, logger *log.Logger) *DealService {
	if logger == nil {
		logger = log.Discard()
	}
	return &DealService{
		backend:   backend,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentDeals),
	}
}

// List returns the deals matching filter, highest score first.
func (s *DealService) List(ctx context.Context, sess session.Session, filter api.DealFilter) ([]core.Deal, error) {
	deals, err := s.backend.Deals(ctx, sess, filter)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	return core.SortDealsByScore(deals), nil
}

// Vote toggles the caller's vote on deal id within deals. The backend call
// happens first and the updated copy is only returned once it succeeded.
func (s *DealService) Vote(ctx context.Context, sess session.Session, deals []core.Deal, id int64, dir core.Direction) ([]core.Deal, error) {
	updated, err := core.ApplyVote(deals, id, dir)
	if err != nil {
		return deals, err
	}

	var current core.Vote
	for _, d := range deals {
		if d.ID == id {
			current = d.UserVote
			break
		}
	}
	action := core.RemoteVoteAction(current, dir)

	if err := s.backend.Vote(ctx, sess, action, id); err != nil {
		s.logger.ErrorContext(ctx, "Vote rejected by backend",
			log.FieldDealID, id,
			log.FieldAction, action,
			log.FieldError, err)
		return deals, fmt.Errorf("%w: %w", ErrVoteFailed, err)
	}

	voted := findDeal(updated, id)
	s.logger.InfoContext(ctx, "Vote applied", log.NewFields().
		WithOperation(log.OpVote).
		WithVote(id, int(voted.UserVote), string(action)).
		ToSlice()...)

	// The vote is already applied; a lost event only affects the vote log.
	if err := s.publishVote(ctx, sess, voted, action); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish deal vote",
			log.FieldDealID, id,
			log.FieldError, err)
	}
	return updated, nil
}

// VoteByID fetches the current listing, votes on deal id and returns the
// deal as it looks after the vote.
func (s *DealService) VoteByID(ctx context.Context, sess session.Session, id int64, dir core.Direction) (core.Deal, error) {
	deals, err := s.backend.Deals(ctx, sess, api.DealFilter{})
	if err != nil {
		return core.Deal{}, fmt.Errorf("list deals: %w", err)
	}
	updated, err := s.Vote(ctx, sess, deals, id, dir)
	if err != nil {
		return core.Deal{}, err
	}
	return findDeal(updated, id), nil
}

func (s *DealService) publishVote(ctx context.Context, sess session.Session, d core.Deal, action core.VoteAction) error {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not available, skipping deal vote event")
		return nil
	}
	return s.publisher.PublishDealVote(ctx, amqp.DealVoteMessage{
		UserID:    sess.UserID,
		DealID:    d.ID,
		Action:    action,
		Vote:      d.UserVote,
		Upvotes:   d.Upvotes,
		Downvotes: d.Downvotes,
	})
}

func findDeal(deals []core.Deal, id int64) core.Deal {
	for _, d := range deals {
		if d.ID == id {
			return d
		}
	}
	return core.Deal{}
}
