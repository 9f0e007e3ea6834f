package playback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/experiment"
)

func pairBoard() []experiment.Section {
	return []experiment.Section{
		{ID: 1, URL: "a1.mp3", Group: "A"},
		{ID: 2, URL: "b1.mp3", Group: "B"},
		{ID: 3, URL: "a2.mp3", Group: "A"},
		{ID: 4, URL: "b2.mp3", Group: "B"},
	}
}

type turnRecorder struct {
	payloads []experiment.Fragment
	scores   []float64
	err      error
	submits  int
}

func (r *turnRecorder) score(_ context.Context, payload experiment.Fragment) (float64, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.payloads = append(r.payloads, payload)
	return r.scores[len(r.payloads)-1], nil
}

func (r *turnRecorder) submit(context.Context) error {
	r.submits++
	return nil
}

func TestMatchingPairsFullGame(t *testing.T) {
	rec := &turnRecorder{scores: []float64{20, 20}}
	g := NewMatchingPairs(pairBoard(), rec.score, rec.submit)
	ctx := context.Background()

	// First turn: the two "A" cards.
	require.NoError(t, g.Flip(ctx, 0))
	assert.False(t, g.InTurn(), "one flip is not a turn")
	require.NoError(t, g.Flip(ctx, 2))

	require.Len(t, rec.payloads, 1)
	first, ok := rec.payloads[0]["first_card"].(experiment.Section)
	require.True(t, ok)
	second, ok := rec.payloads[0]["second_card"].(experiment.Section)
	require.True(t, ok)
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 3, second.ID)

	assert.True(t, g.InTurn())
	assert.Equal(t, 20.0, g.TurnScore())
	assert.Equal(t, 0.0, g.Total(), "score lands when the overlay is dismissed")

	require.NoError(t, g.EndTurn(ctx))
	board := g.Board()
	assert.True(t, board[0].Inactive)
	assert.True(t, board[2].Inactive)
	assert.Equal(t, 20.0, g.Total())
	assert.False(t, g.Finished())
	assert.Equal(t, 0, rec.submits)

	// Second turn exhausts the board.
	require.NoError(t, g.Flip(ctx, 1))
	require.NoError(t, g.Flip(ctx, 3))
	require.NoError(t, g.EndTurn(ctx))

	assert.True(t, g.Finished())
	assert.Equal(t, 40.0, g.Total())
	assert.Equal(t, 2, g.Turns())
	assert.Equal(t, 1, rec.submits, "round result submitted exactly once")

	require.NoError(t, g.EndTurn(ctx))
	assert.Equal(t, 1, rec.submits)
}

func TestMatchingPairsNoMatchTurnsBack(t *testing.T) {
	rec := &turnRecorder{scores: []float64{0}}
	g := NewMatchingPairs(pairBoard(), rec.score, rec.submit)
	ctx := context.Background()

	require.NoError(t, g.Flip(ctx, 0))
	require.NoError(t, g.Flip(ctx, 1))
	require.NoError(t, g.EndTurn(ctx))

	board := g.Board()
	assert.False(t, board[0].Inactive)
	assert.False(t, board[1].Inactive)
	assert.False(t, board[0].Turned)
	assert.True(t, board[0].Seen)
	assert.True(t, board[1].Seen)
	assert.Equal(t, 0.0, g.Total())
	assert.False(t, g.Finished())
}

func TestMatchingPairsBlocksInputDuringOverlay(t *testing.T) {
	rec := &turnRecorder{scores: []float64{20}}
	g := NewMatchingPairs(pairBoard(), rec.score, rec.submit)
	ctx := context.Background()

	require.NoError(t, g.Flip(ctx, 0))
	require.NoError(t, g.Flip(ctx, 2))
	require.True(t, g.InTurn())

	require.NoError(t, g.Flip(ctx, 1))
	assert.Len(t, rec.payloads, 1, "flips during the overlay are ignored")
	assert.False(t, g.Board()[1].Turned)
}

func TestMatchingPairsIgnoresRepeatAndInactiveFlips(t *testing.T) {
	rec := &turnRecorder{scores: []float64{20, 20}}
	g := NewMatchingPairs(pairBoard(), rec.score, rec.submit)
	ctx := context.Background()

	require.NoError(t, g.Flip(ctx, 0))
	require.NoError(t, g.Flip(ctx, 0))
	assert.Empty(t, rec.payloads, "flipping the same card twice is not a turn")

	require.NoError(t, g.Flip(ctx, 2))
	require.NoError(t, g.EndTurn(ctx))

	require.NoError(t, g.Flip(ctx, 0))
	assert.Empty(t, rec.payloads[1:], "inactive cards take no flips")
}

func TestMatchingPairsScoreFailureSurfacesMessage(t *testing.T) {
	rec := &turnRecorder{err: errors.New("boom")}
	g := NewMatchingPairs(pairBoard(), rec.score, rec.submit)
	ctx := context.Background()

	require.NoError(t, g.Flip(ctx, 0))
	err := g.Flip(ctx, 2)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrScoreUnavailable)
	assert.Equal(t, 0, rec.submits)
}

func TestFeedbackClass(t *testing.T) {
	assert.Equal(t, FeedbackMemory, feedbackClass(20))
	assert.Equal(t, FeedbackLucky, feedbackClass(10))
	assert.Equal(t, FeedbackNoMatch, feedbackClass(0))
	assert.Equal(t, FeedbackMisremembered, feedbackClass(-10))
}
