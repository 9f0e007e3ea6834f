package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/experiment"
)

// SampleSections returns two streamable stimulus sections. A new slice each
// time to prevent test interference.
func SampleSections() []experiment.Section {
	return []experiment.Section{
		{ID: 11, URL: "sections/11.mp3", Label: "A"},
		{ID: 12, URL: "sections/12.mp3", Label: "B"},
	}
}

// SamplePairSections returns a four-card matching pairs board with two
// groups laid out as [A, B, A, B].
func SamplePairSections() []experiment.Section {
	return []experiment.Section{
		{ID: 21, URL: "sections/21.mp3", Group: "A"},
		{ID: 22, URL: "sections/22.mp3", Group: "B"},
		{ID: 23, URL: "sections/23.mp3", Group: "A"},
		{ID: 24, URL: "sections/24.mp3", Group: "B"},
	}
}

// MustAction builds an Action from raw JSON, failing the test on bad input.
func MustAction(t *testing.T, raw string) experiment.Action {
	t.Helper()
	var a experiment.Action
	require.NoError(t, json.Unmarshal([]byte(raw), &a))
	return a
}

// ExplainerAction returns an EXPLAINER round with two steps.
func ExplainerAction(t *testing.T) experiment.Action {
	t.Helper()
	return MustAction(t, `{
		"view": "EXPLAINER",
		"instruction": "Listen carefully to each fragment.",
		"button_label": "Let's go!",
		"steps": [
			{"number": 1, "description": "Press play"},
			{"number": 2, "description": "Answer the question"}
		]
	}`)
}

// PreloadAction returns a PRELOAD round buffering two sections.
func PreloadAction(t *testing.T) experiment.Action {
	t.Helper()
	return MustAction(t, `{
		"view": "PRELOAD",
		"instruction": "Get ready!",
		"duration": 3,
		"play_method": "BUFFER",
		"sections": [
			{"id": 11, "url": "sections/11.mp3"},
			{"id": 12, "url": "sections/12.mp3"}
		]
	}`)
}

// TrialAction returns a TRIAL_VIEW round with a two-button playback grid
// and one yes/no question.
func TrialAction(t *testing.T) experiment.Action {
	t.Helper()
	return MustAction(t, `{
		"view": "TRIAL_VIEW",
		"title": "Round 1",
		"playback": {
			"view": "BUTTON",
			"play_method": "PLAY",
			"instruction": "Which fragment matches?",
			"sections": [
				{"id": 11, "url": "sections/11.mp3", "name": "A"},
				{"id": 12, "url": "sections/12.mp3", "name": "B"}
			]
		},
		"feedback_form": [
			{"key": "same_melody", "question": "Same melody?", "choices": ["Yes", "No"]}
		],
		"config": {"response_time": 15}
	}`)
}

// MatchingPairsAction returns a TRIAL_VIEW round hosting the card game on
// SamplePairSections.
func MatchingPairsAction(t *testing.T) experiment.Action {
	t.Helper()
	return MustAction(t, `{
		"view": "TRIAL_VIEW",
		"playback": {
			"view": "MATCHINGPAIRS",
			"play_method": "NOAUDIO",
			"sections": [
				{"id": 21, "url": "sections/21.mp3", "group": "A"},
				{"id": 22, "url": "sections/22.mp3", "group": "B"},
				{"id": 23, "url": "sections/23.mp3", "group": "A"},
				{"id": 24, "url": "sections/24.mp3", "group": "B"}
			]
		},
		"config": {}
	}`)
}

// ScoreAction returns a SCORE round.
func ScoreAction(t *testing.T) experiment.Action {
	t.Helper()
	return MustAction(t, `{
		"view": "SCORE",
		"score": 10,
		"score_message": "Well done!",
		"total_score": 30,
		"texts": {"next": "Next round"}
	}`)
}

// FinalAction returns a terminal FINAL round.
func FinalAction(t *testing.T) experiment.Action {
	t.Helper()
	return MustAction(t, `{
		"view": "FINAL",
		"final_text": "Thanks for playing!",
		"score": 30,
		"show_score": true
	}`)
}

// SampleScript returns batches for a complete run: the bootstrap batch and
// one follow-up batch per submitted result.
func SampleScript(t *testing.T) [][]experiment.Action {
	t.Helper()
	return [][]experiment.Action{
		{ExplainerAction(t), PreloadAction(t), TrialAction(t)},
		{ScoreAction(t), FinalAction(t)},
	}
}

// ScriptedBackend implements experiment.Backend over canned responses and
// records every call.
type ScriptedBackend struct {
	ParticipantData experiment.Participant
	SessionID       int
	// Batches are returned in order by CreateSession (first) and then by
	// NextRound and SubmitResult.
	Batches [][]experiment.Action
	// Score is returned by IntermediateScore.
	Score float64

	// Errors to inject, nil for success.
	ParticipantErr error
	SessionErr     error
	NextErr        error
	SubmitErr      error
	ScoreErr       error

	NextCalls    int
	Submitted    []experiment.Fragment
	SectionIDs   []int
	ScorePosts   []experiment.Fragment
	FinalizeHits int

	batchIdx int
}

// NewScriptedBackend returns a backend serving the given batches with a
// plausible participant and session.
func NewScriptedBackend(batches ...[]experiment.Action) *ScriptedBackend {
	return &ScriptedBackend{
		ParticipantData: experiment.Participant{ID: 1, Hash: "test-hash", CSRFToken: "test-token"},
		SessionID:       42,
		Batches:         batches,
	}
}

func (b *ScriptedBackend) nextBatch() []experiment.Action {
	if b.batchIdx >= len(b.Batches) {
		return nil
	}
	batch := b.Batches[b.batchIdx]
	b.batchIdx++
	return batch
}

// Participant implements experiment.Backend.
func (b *ScriptedBackend) Participant(_ context.Context, _ string) (*experiment.Participant, error) {
	if b.ParticipantErr != nil {
		return nil, b.ParticipantErr
	}
	p := b.ParticipantData
	return &p, nil
}

// CreateSession implements experiment.Backend.
func (b *ScriptedBackend) CreateSession(_ context.Context, _, _ string) (*experiment.SessionStart, error) {
	if b.SessionErr != nil {
		return nil, b.SessionErr
	}
	return &experiment.SessionStart{
		Session:   experiment.Session{ID: b.SessionID},
		NextRound: b.nextBatch(),
	}, nil
}

// NextRound implements experiment.Backend.
func (b *ScriptedBackend) NextRound(_ context.Context, _ int) ([]experiment.Action, error) {
	b.NextCalls++
	if b.NextErr != nil {
		return nil, b.NextErr
	}
	return b.nextBatch(), nil
}

// SubmitResult implements experiment.Backend.
func (b *ScriptedBackend) SubmitResult(_ context.Context, _ int, result experiment.Fragment, sectionID int) ([]experiment.Action, error) {
	if b.SubmitErr != nil {
		return nil, b.SubmitErr
	}
	b.Submitted = append(b.Submitted, result)
	b.SectionIDs = append(b.SectionIDs, sectionID)
	return b.nextBatch(), nil
}

// IntermediateScore implements experiment.Backend.
func (b *ScriptedBackend) IntermediateScore(_ context.Context, _ int, payload experiment.Fragment) (float64, error) {
	if b.ScoreErr != nil {
		return 0, b.ScoreErr
	}
	b.ScorePosts = append(b.ScorePosts, payload)
	return b.Score, nil
}

// Finalize implements experiment.Backend.
func (b *ScriptedBackend) Finalize(_ context.Context, _ int) error {
	b.FinalizeHits++
	return nil
}

var _ experiment.Backend = (*ScriptedBackend)(nil)

// MustMarshalJSON marshals a value to JSON, failing the test on error.
func MustMarshalJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	return data
}

// MustUnmarshalJSON unmarshals JSON data into v, failing the test on error.
func MustUnmarshalJSON(t *testing.T, data []byte, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(data, v))
}

// UniqueSlug creates a unique experiment slug for tests running in
// parallel against a shared dev server.
func UniqueSlug(t *testing.T, prefix string) string {
	t.Helper()
	return fmt.Sprintf("%s-%s", prefix, t.Name())
}
