package core

import (
	"errors"
	"testing"
)

func deals() []Deal {
	return []Deal{
		{ID: 1, Name: "Coffee", Upvotes: 3, Downvotes: 1, UserVote: VoteNone},
		{ID: 2, Name: "Bagel", Upvotes: 5, Downvotes: 0, UserVote: VoteUp},
		{ID: 3, Name: "Milk", Upvotes: 0, Downvotes: 2, UserVote: VoteDown},
	}
}

func TestApplyVoteTable(t *testing.T) {
	cases := []struct {
		name      string
		current   Vote
		dir       Direction
		want      Vote
		upDelta   int
		downDelta int
	}{
		{"none up", VoteNone, Up, VoteUp, 1, 0},
		{"up up", VoteUp, Up, VoteNone, -1, 0},
		{"down up", VoteDown, Up, VoteUp, 1, -1},
		{"none down", VoteNone, Down, VoteDown, 0, 1},
		{"down down", VoteDown, Down, VoteNone, 0, -1},
		{"up down", VoteUp, Down, VoteDown, -1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := []Deal{{ID: 7, Upvotes: 4, Downvotes: 4, UserVote: tc.current}}
			out, err := ApplyVote(in, 7, tc.dir)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := out[0]
			if got.UserVote != tc.want {
				t.Errorf("vote = %d, want %d", got.UserVote, tc.want)
			}
			if got.Upvotes != 4+tc.upDelta || got.Downvotes != 4+tc.downDelta {
				t.Errorf("counters = %d/%d, want %d/%d", got.Upvotes, got.Downvotes, 4+tc.upDelta, 4+tc.downDelta)
			}
		})
	}
}

func TestApplyVoteDoesNotMutateInput(t *testing.T) {
	in := deals()
	out, err := ApplyVote(in, 1, Up)
	if err != nil {
		t.Fatal(err)
	}
	if in[0].UserVote != VoteNone || in[0].Upvotes != 3 {
		t.Fatalf("input mutated: %+v", in[0])
	}
	if out[0].UserVote != VoteUp || out[0].Upvotes != 4 {
		t.Fatalf("unexpected result: %+v", out[0])
	}
	if out[1] != in[1] || out[2] != in[2] {
		t.Fatalf("other deals changed")
	}
}

// Pressing the same direction twice restores the deal only when the user had
// no vote or already held that direction.
func TestApplyVoteSameDirectionTwiceIsIdentity(t *testing.T) {
	for _, dir := range []Direction{Up, Down} {
		for _, d := range deals() {
			held := VoteUp
			if dir == Down {
				held = VoteDown
			}
			if d.UserVote != VoteNone && d.UserVote != held {
				continue
			}
			in := deals()
			once, err := ApplyVote(in, d.ID, dir)
			if err != nil {
				t.Fatal(err)
			}
			twice, err := ApplyVote(once, d.ID, dir)
			if err != nil {
				t.Fatal(err)
			}
			for i := range in {
				if twice[i] != in[i] {
					t.Errorf("%s twice on deal %d: got %+v, want %+v", dir, d.ID, twice[i], in[i])
				}
			}
		}
	}
}

func TestApplyVoteOppositeStartPressedTwiceClears(t *testing.T) {
	cases := []struct {
		name    string
		current Vote
		dir     Direction
		up      int
		down    int
	}{
		{"down then up up", VoteDown, Up, 4, 3},
		{"up then down down", VoteUp, Down, 3, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := []Deal{{ID: 5, Upvotes: 4, Downvotes: 4, UserVote: tc.current}}
			once, err := ApplyVote(in, 5, tc.dir)
			if err != nil {
				t.Fatal(err)
			}
			twice, err := ApplyVote(once, 5, tc.dir)
			if err != nil {
				t.Fatal(err)
			}
			got := twice[0]
			if got.UserVote != VoteNone || got.Upvotes != tc.up || got.Downvotes != tc.down {
				t.Errorf("got %+v, want none %d/%d", got, tc.up, tc.down)
			}
		})
	}
}

func TestApplyVoteUpThenDownFromNone(t *testing.T) {
	in := []Deal{{ID: 9, Upvotes: 10, Downvotes: 2}}
	afterUp, err := ApplyVote(in, 9, Up)
	if err != nil {
		t.Fatal(err)
	}
	afterDown, err := ApplyVote(afterUp, 9, Down)
	if err != nil {
		t.Fatal(err)
	}
	got := afterDown[0]
	if got.UserVote != VoteDown || got.Upvotes != 10 || got.Downvotes != 3 {
		t.Fatalf("got %+v", got)
	}
}

func TestApplyVoteNotFound(t *testing.T) {
	if _, err := ApplyVote(deals(), 42, Up); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := ApplyVote(nil, 1, Down); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty list, got %v", err)
	}
	for _, idx := range []int{-1, 3, 100} {
		if _, err := ApplyVoteAt(deals(), idx, Up); !errors.Is(err, ErrNotFound) {
			t.Errorf("index %d: expected ErrNotFound, got %v", idx, err)
		}
	}
}

func TestApplyVoteInvalidDirection(t *testing.T) {
	if _, err := ApplyVote(deals(), 1, Direction("sideways")); !errors.Is(err, ErrInvalidDirection) {
		t.Fatalf("expected ErrInvalidDirection, got %v", err)
	}
}

func TestApplyVoteCountersNeverNegative(t *testing.T) {
	// The backend claims an upvote but reports no upvotes.
	in := []Deal{{ID: 1, Upvotes: 0, Downvotes: 0, UserVote: VoteUp}}
	out, err := ApplyVote(in, 1, Down)
	if err != nil {
		t.Fatal(err)
	}
	if out[0].Upvotes != 0 || out[0].Downvotes != 1 || out[0].UserVote != VoteDown {
		t.Fatalf("got %+v", out[0])
	}
}

func TestNextVoteNormalizesUnknownValues(t *testing.T) {
	if got := NextVote(Vote(5), Up); got != VoteNone {
		t.Errorf("NextVote(5, up) = %d", got)
	}
	if got := NextVote(Vote(-3), Up); got != VoteUp {
		t.Errorf("NextVote(-3, up) = %d", got)
	}
}

func TestRemoteVoteAction(t *testing.T) {
	cases := []struct {
		current Vote
		dir     Direction
		want    VoteAction
	}{
		{VoteNone, Up, ActionUpvote},
		{VoteUp, Up, ActionCancelVote},
		{VoteDown, Up, ActionUpvote},
		{VoteNone, Down, ActionDownvote},
		{VoteDown, Down, ActionCancelVote},
		{VoteUp, Down, ActionDownvote},
	}
	for _, tc := range cases {
		if got := RemoteVoteAction(tc.current, tc.dir); got != tc.want {
			t.Errorf("RemoteVoteAction(%d, %s) = %s, want %s", tc.current, tc.dir, got, tc.want)
		}
	}
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{"up": Up, "UPVOTE": Up, " down ": Down, "downvote": Down} {
		got, err := ParseDirection(in)
		if err != nil || got != want {
			t.Errorf("ParseDirection(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseDirection("left"); !errors.Is(err, ErrInvalidDirection) {
		t.Errorf("expected ErrInvalidDirection, got %v", err)
	}
}

func TestSortDealsByScore(t *testing.T) {
	in := []Deal{
		{ID: 1, Upvotes: 1, Downvotes: 1},
		{ID: 2, Upvotes: 5, Downvotes: 0},
		{ID: 3, Upvotes: 0, Downvotes: 4},
		{ID: 4, Upvotes: 2, Downvotes: 2},
	}
	out := SortDealsByScore(in)
	want := []int64{2, 1, 4, 3}
	for i, id := range want {
		if out[i].ID != id {
			t.Fatalf("position %d: got deal %d, want %d", i, out[i].ID, id)
		}
	}
	if in[0].ID != 1 || in[1].ID != 2 {
		t.Fatalf("input reordered")
	}
}
