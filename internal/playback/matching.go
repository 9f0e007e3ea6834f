package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/experiment"
)

// Overlay feedback classes for a completed turn, derived from the score the
// backend returns for the pair.
const (
	FeedbackMemory        = "fbmemory"
	FeedbackLucky         = "fblucky"
	FeedbackNoMatch       = "fbnomatch"
	FeedbackMisremembered = "fbmisremembered"
)

// ScoreUnavailableMessage is the user-facing sentence shown when a turn
// cannot be scored. This is the one playback error that reaches the
// participant.
const ScoreUnavailableMessage = "We cannot continue the game right now. Please try again later."

// ErrScoreUnavailable means the backend could not score a turn.
var ErrScoreUnavailable = errors.New("turn score unavailable")

// TurnScorer posts one completed turn to the backend and returns its score.
// In production this is the runner's IntermediateScore.
type TurnScorer func(ctx context.Context, payload experiment.Fragment) (float64, error)

// MatchingPairs runs the card game board for one round. A turn is two
// flips; the pair is scored by the backend, the outcome applied when the
// in-between-turns overlay is dismissed, and the round result submitted
// exactly once when no active cards remain.
type MatchingPairs struct {
	scorer TurnScorer
	submit func(ctx context.Context) error
	now    func() time.Time

	mu        sync.Mutex
	sections  []experiment.Section
	first     int
	second    int
	inTurn    bool
	turnScore float64
	total     float64
	turns     int
	finished  bool
	submitted bool
}

// NewMatchingPairs builds a board from the round's sections. submit is
// called once when the board is exhausted.
func NewMatchingPairs(sections []experiment.Section, scorer TurnScorer, submit func(ctx context.Context) error) *MatchingPairs {
	board := make([]experiment.Section, len(sections))
	copy(board, sections)
	for i := range board {
		board[i].BoardPosition = i
	}
	return &MatchingPairs{
		scorer:   scorer,
		submit:   submit,
		now:      time.Now,
		sections: board,
		first:    NoIndex,
		second:   NoIndex,
	}
}

// Flip turns the card at index face up. The second flip of a turn posts the
// pair for scoring and opens the overlay; input is blocked until EndTurn.
// Flips on turned, inactive, or blocked cards are ignored.
func (g *MatchingPairs) Flip(ctx context.Context, index int) error {
	g.mu.Lock()
	if g.finished || g.inTurn || index < 0 || index >= len(g.sections) {
		g.mu.Unlock()
		return nil
	}
	card := &g.sections[index]
	if card.Turned || card.Inactive || card.NoEvents {
		g.mu.Unlock()
		return nil
	}
	card.Turned = true
	card.Timestamp = g.now().UnixMilli()

	if g.first == NoIndex {
		g.first = index
		g.mu.Unlock()
		return nil
	}

	g.second = index
	for i := range g.sections {
		g.sections[i].NoEvents = true
	}
	payload := experiment.Fragment{
		"first_card":  g.sections[g.first],
		"second_card": g.sections[g.second],
	}
	g.mu.Unlock()

	score, err := g.scorer(ctx, payload)
	if err != nil {
		return fmt.Errorf("%w (%v)", ErrScoreUnavailable, err)
	}

	g.mu.Lock()
	g.turnScore = score
	g.turns++
	g.inTurn = true
	class := feedbackClass(score)
	g.sections[g.first].MatchClass = class
	g.sections[g.second].MatchClass = class
	g.mu.Unlock()
	return nil
}

func feedbackClass(score float64) string {
	switch {
	case score > 10:
		return FeedbackMemory
	case score > 0:
		return FeedbackLucky
	case score < 0:
		return FeedbackMisremembered
	default:
		return FeedbackNoMatch
	}
}

// EndTurn dismisses the overlay and applies the turn outcome: a matched
// pair goes inactive, an unmatched pair turns back, and the turn score is
// added to the running total. Exhausting the board submits the round.
func (g *MatchingPairs) EndTurn(ctx context.Context) error {
	g.mu.Lock()
	if !g.inTurn {
		g.mu.Unlock()
		return nil
	}

	a, b := &g.sections[g.first], &g.sections[g.second]
	if a.Group == b.Group {
		a.Inactive, b.Inactive = true, true
	}
	a.Turned, b.Turned = false, false
	a.Seen, b.Seen = true, true
	a.MatchClass, b.MatchClass = "", ""
	for i := range g.sections {
		g.sections[i].NoEvents = g.sections[i].Inactive
	}

	g.total += g.turnScore
	g.first, g.second = NoIndex, NoIndex
	g.inTurn = false

	g.finished = true
	for _, s := range g.sections {
		if !s.Inactive {
			g.finished = false
			break
		}
	}
	submitNow := g.finished && !g.submitted
	if submitNow {
		g.submitted = true
	}
	g.mu.Unlock()

	if submitNow && g.submit != nil {
		return g.submit(ctx)
	}
	return nil
}

// Board returns a copy of the current card states for rendering.
func (g *MatchingPairs) Board() []experiment.Section {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]experiment.Section, len(g.sections))
	copy(out, g.sections)
	return out
}

// InTurn reports whether the in-between-turns overlay is showing.
func (g *MatchingPairs) InTurn() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inTurn
}

// TurnScore returns the score of the turn currently on the overlay.
func (g *MatchingPairs) TurnScore() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.turnScore
}

// Total returns the running score, updated as overlays are dismissed.
func (g *MatchingPairs) Total() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.total
}

// Turns returns the number of scored turns so far.
func (g *MatchingPairs) Turns() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.turns
}

// Finished reports whether every card is inactive.
func (g *MatchingPairs) Finished() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.finished
}
