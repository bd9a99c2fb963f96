package core

import (
	"fmt"
	"sort"
	"strings"
)

// Vote is the caller's vote on a deal.
type Vote int

const (
	VoteDown Vote = -1
	VoteNone Vote = 0
	VoteUp   Vote = 1
)

// Direction is the button the user pressed.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// VoteAction names the backend call a vote toggle requires.
type VoteAction string

const (
	ActionUpvote     VoteAction = "upvote"
	ActionDownvote   VoteAction = "downvote"
	ActionCancelVote VoteAction = "cancel_vote"
)

// ParseDirection accepts "up"/"upvote" and "down"/"downvote".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "upvote":
		return Up, nil
	case "down", "downvote":
		return Down, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

func (d Direction) valid() bool {
	return d == Up || d == Down
}

// normalize folds out-of-range values received from the backend onto the
// three legal states.
func (v Vote) normalize() Vote {
	switch {
	case v > 0:
		return VoteUp
	case v < 0:
		return VoteDown
	}
	return VoteNone
}

// NextVote returns the vote that results from pressing dir while holding
// current. Pressing the held direction again cancels it.
func NextVote(current Vote, dir Direction) Vote {
	current = current.normalize()
	switch dir {
	case Up:
		if current == VoteUp {
			return VoteNone
		}
		return VoteUp
	case Down:
		if current == VoteDown {
			return VoteNone
		}
		return VoteDown
	}
	return current
}

// RemoteVoteAction returns the backend call matching the NextVote transition.
func RemoteVoteAction(current Vote, dir Direction) VoteAction {
	switch NextVote(current, dir) {
	case VoteUp:
		return ActionUpvote
	case VoteDown:
		return ActionDownvote
	}
	return ActionCancelVote
}

// Score ranks deals in listings.
func (d Deal) Score() int {
	return d.Upvotes - d.Downvotes
}

// withVote moves the counters in lockstep with the vote transition.
func (d Deal) withVote(dir Direction) Deal {
	from := d.UserVote.normalize()
	to := NextVote(from, dir)

	if from == VoteUp {
		d.Upvotes = decrement(d.Upvotes)
	}
	if from == VoteDown {
		d.Downvotes = decrement(d.Downvotes)
	}
	if to == VoteUp {
		d.Upvotes++
	}
	if to == VoteDown {
		d.Downvotes++
	}
	d.UserVote = to
	return d
}

func decrement(n int) int {
	if n <= 0 {
		return 0
	}
	return n - 1
}

// ApplyVote returns a copy of items with the vote of the deal identified by
// targetID toggled in direction dir. The input slice is never modified.
//
//	current  dir   new  up  down
//	   0     up     1   +1    0
//	   1     up     0   -1    0
//	  -1     up     1   +1   -1
//	   0     down  -1    0   +1
//	  -1     down   0    0   -1
//	   1     down  -1   -1   +1
func ApplyVote(items []Deal, targetID int64, dir Direction) ([]Deal, error) {
	for i := range items {
		if items[i].ID == targetID {
			return ApplyVoteAt(items, i, dir)
		}
	}
	return nil, fmt.Errorf("deal %d: %w", targetID, ErrNotFound)
}

// ApplyVoteAt is ApplyVote for callers that track positions rather than IDs.
func ApplyVoteAt(items []Deal, index int, dir Direction) ([]Deal, error) {
	if !dir.valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDirection, dir)
	}
	if index < 0 || index >= len(items) {
		return nil, fmt.Errorf("index %d: %w", index, ErrNotFound)
	}
	out := make([]Deal, len(items))
	copy(out, items)
	out[index] = out[index].withVote(dir)
	return out, nil
}

// SortDealsByScore returns a copy of deals ordered by score, highest first.
// Ties keep their backend order.
func SortDealsByScore(deals []Deal) []Deal {
	out := make([]Deal, len(deals))
	copy(out, deals)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score() > out[j].Score()
	})
	return out
}
