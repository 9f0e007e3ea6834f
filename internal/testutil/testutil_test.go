package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/experiment"
)

func TestFixtureActionsDecode(t *testing.T) {
	explainer := ExplainerAction(t)
	data, err := explainer.Explainer()
	require.NoError(t, err)
	assert.Equal(t, "Listen carefully to each fragment.", data.Instruction)
	assert.Len(t, data.Steps, 2)

	trial := TrialAction(t)
	td, err := trial.Trial()
	require.NoError(t, err)
	require.NotNil(t, td.Playback)
	assert.Equal(t, experiment.PlayerButton, td.Playback.View)
	assert.Len(t, td.Playback.Sections, 2)
	require.Len(t, td.Feedback, 1)
	assert.Equal(t, "same_melody", td.Feedback[0].Key)

	pairs := MatchingPairsAction(t)
	pd, err := pairs.Trial()
	require.NoError(t, err)
	assert.Equal(t, experiment.PlayerMatchingPairs, pd.Playback.View)
	assert.Equal(t, experiment.MethodNoAudio, pd.Playback.PlayMethod)
}

func TestScriptedBackendServesBatchesInOrder(t *testing.T) {
	b := NewScriptedBackend(SampleScript(t)...)
	ctx := context.Background()

	start, err := b.CreateSession(ctx, "slug", "")
	require.NoError(t, err)
	require.Len(t, start.NextRound, 3)
	assert.Equal(t, experiment.ViewExplainer, start.NextRound[0].View)

	batch, err := b.SubmitResult(ctx, start.Session.ID, experiment.Fragment{"a": 1}, 0)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, experiment.ViewScore, batch[0].View)

	more, err := b.NextRound(ctx, start.Session.ID)
	require.NoError(t, err)
	assert.Empty(t, more, "script exhausted")
	assert.Equal(t, 1, b.NextCalls)
}

func TestScriptedBackendRecordsCalls(t *testing.T) {
	b := NewScriptedBackend()
	b.Score = 20
	ctx := context.Background()

	score, err := b.IntermediateScore(ctx, 42, experiment.Fragment{"first_card": 0})
	require.NoError(t, err)
	assert.Equal(t, 20.0, score)
	require.Len(t, b.ScorePosts, 1)

	require.NoError(t, b.Finalize(ctx, 42))
	assert.Equal(t, 1, b.FinalizeHits)
}

func TestContextWithTestDeadline(t *testing.T) {
	ctx, cancel := ContextWithTestDeadline(t, time.Minute)
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.True(t, deadline.After(time.Now()))
}
