package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/experiment"
)

// AssertCurrentView asserts that the runner's current action carries the
// expected view discriminant.
func AssertCurrentView(t *testing.T, r *experiment.Runner, expected experiment.View) {
	t.Helper()
	action, _ := r.Current()
	require.NotNil(t, action, "no current action")
	assert.Equal(t, expected, action.View, "current view mismatch")
}

// AssertRunnerActive asserts the runner is rendering a round.
func AssertRunnerActive(t *testing.T, r *experiment.Runner) {
	t.Helper()
	assert.Equal(t, experiment.StateActive, r.State(), "runner state mismatch")
}

// AssertRunnerFinished asserts the runner reached its terminal state.
func AssertRunnerFinished(t *testing.T, r *experiment.Runner) {
	t.Helper()
	assert.Equal(t, experiment.StateFinished, r.State(), "runner state mismatch")
}

// AssertRunnerFailed asserts the runner is in the error state with the
// user-facing message set.
func AssertRunnerFailed(t *testing.T, r *experiment.Runner) {
	t.Helper()
	assert.Equal(t, experiment.StateError, r.State(), "runner state mismatch")
	assert.Equal(t, experiment.ErrLoadFailed, r.ErrorMessage())
}

// AssertFragmentKey asserts a merged result carries key with the given value.
func AssertFragmentKey(t *testing.T, fragment experiment.Fragment, key string, expected any) {
	t.Helper()
	got, ok := fragment[key]
	require.True(t, ok, "fragment missing key %q", key)
	assert.Equal(t, expected, got, "fragment[%q] mismatch", key)
}
