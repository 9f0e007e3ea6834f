package experiment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/logging"
)

// State describes where the runner is in a session's lifecycle.
type State int

const (
	// StateLoading covers bootstrap: participant, session, first batch.
	StateLoading State = iota
	// StateActive means a round action is current and being rendered.
	StateActive
	// StateFinished is terminal: the FINAL action was dispatched.
	StateFinished
	// StateRedirected is terminal for the in-player state machine; the
	// caller performs the navigation.
	StateRedirected
	// StateError is terminal: a resource fetch failed and the participant
	// must restart the session.
	StateError
)

// String returns a human-readable description of the state.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateActive:
		return "active"
	case StateFinished:
		return "finished"
	case StateRedirected:
		return "redirected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrLoadFailed is the user-facing message for bootstrap failures. All
// resource errors surface as this one readable sentence; the recovery path
// is restarting the player.
const ErrLoadFailed = "We cannot continue the experiment right now. Please try again later."

// Runner drives the top-level sequence of round actions: it bootstraps the
// session, renders whichever action is current, consumes the locally cached
// continuation queue, and asks the backend for more when the queue runs dry.
type Runner struct {
	backend Backend

	slug       string
	playlistID string

	mu          sync.Mutex
	flushMu     sync.Mutex
	participant *Participant
	session     *Session
	queue       []Action
	current     *Action
	renderKey   string
	acc         Accumulator
	state       State
	errMsg      string
}

var runnerLog = logging.Component("experiment")

// NewRunner creates a runner for the given experiment slug.
func NewRunner(backend Backend, slug, playlistID string) *Runner {
	return &Runner{
		backend:    backend,
		slug:       slug,
		playlistID: playlistID,
		state:      StateLoading,
	}
}

// Start bootstraps the session: participant, session creation, first batch.
// Any failure lands in StateError with a single readable message.
func (r *Runner) Start(ctx context.Context, participantID string) error {
	participant, err := r.backend.Participant(ctx, participantID)
	if err != nil {
		return r.fail("fetch participant", err)
	}

	start, err := r.backend.CreateSession(ctx, r.slug, r.playlistID)
	if err != nil {
		return r.fail("create session", err)
	}

	r.mu.Lock()
	r.participant = participant
	r.session = &start.Session
	r.queue = append(r.queue, start.NextRound...)
	r.mu.Unlock()

	return r.Advance(ctx)
}

// Current returns the action being rendered and its render key. The key
// changes on every dispatch so views remount rather than diff; question
// flows derive it from the question identity instead, so re-renders of the
// same sub-question keep their state.
func (r *Runner) Current() (*Action, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.renderKey
}

// State returns the runner state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// ErrorMessage returns the user-facing message for StateError.
func (r *Runner) ErrorMessage() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errMsg
}

// Participant returns the bootstrapped participant, nil before Start.
func (r *Runner) Participant() *Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.participant
}

// Session returns the active session, nil before Start.
func (r *Runner) Session() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// QueueLen reports how many locally cached actions remain.
func (r *Runner) QueueLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Advance moves to the next round action. The locally cached queue is the
// fast path and costs no network; an empty queue asks the backend for a
// fresh batch. A backend that yields neither an error nor actions is a hard
// error: the runner never silently hangs.
func (r *Runner) Advance(ctx context.Context) error {
	r.mu.Lock()
	if len(r.queue) > 0 {
		next := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		r.dispatch(ctx, next)
		return nil
	}
	session := r.session
	r.mu.Unlock()

	if session == nil {
		return r.fail("advance", fmt.Errorf("no session"))
	}

	batch, err := r.backend.NextRound(ctx, session.ID)
	if err != nil {
		return r.fail("fetch next round", err)
	}
	if len(batch) == 0 {
		return r.fail("fetch next round", fmt.Errorf("empty batch"))
	}

	r.mu.Lock()
	r.queue = append(r.queue, batch[1:]...)
	r.mu.Unlock()
	r.dispatch(ctx, batch[0])
	return nil
}

// OnResult records a fragment produced by the current view and resolves the
// round boundary: with queued continuations (and no force) the runner
// advances locally and keeps the buffer; otherwise it merges, submits,
// clears and feeds any returned actions back into the queue.
//
// Submission failures are non-fatal here: the runner falls back to asking
// the backend for the next round directly. Overlapping flushes are
// serialized so results arrive at the server in production order.
func (r *Runner) OnResult(ctx context.Context, fragment Fragment, forceSubmit bool) error {
	r.mu.Lock()
	if len(r.queue) > 0 && !forceSubmit {
		// Intra-round continuation: no network, buffer persists.
		r.acc.Append(fragment)
		next := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		r.dispatch(ctx, next)
		return nil
	}
	session := r.session
	r.mu.Unlock()

	if session == nil {
		return r.fail("submit result", fmt.Errorf("no session"))
	}

	r.flushMu.Lock()
	r.mu.Lock()
	merged := r.acc.MergedWith(fragment)
	r.acc.Clear()
	r.mu.Unlock()

	sectionID, _ := sectionRef(merged)
	actions, err := r.backend.SubmitResult(ctx, session.ID, merged, sectionID)
	r.flushMu.Unlock()

	if err != nil || len(actions) == 0 {
		if err != nil {
			runnerLog.Warn().Err(err).Msg("result submission failed, requesting next round")
		}
		// Silent degrade: the participant continues even when the result
		// response was unusable.
		return r.Advance(ctx)
	}

	r.mu.Lock()
	r.queue = append(r.queue, actions[1:]...)
	r.mu.Unlock()
	r.dispatch(ctx, actions[0])
	return nil
}

// IntermediateScore posts a per-turn payload without closing the round.
// Used by the matching pairs game for immediate scoring.
func (r *Runner) IntermediateScore(ctx context.Context, payload Fragment) (float64, error) {
	r.mu.Lock()
	session := r.session
	r.mu.Unlock()
	if session == nil {
		return 0, fmt.Errorf("no session")
	}
	return r.backend.IntermediateScore(ctx, session.ID, payload)
}

// dispatch makes the action current and assigns its render key. An action
// carrying an embedded next_round queue has that queue spliced onto the
// front of the local queue, preserving authoring order.
func (r *Runner) dispatch(ctx context.Context, a Action) {
	r.mu.Lock()
	r.current = &a
	r.renderKey = renderKeyFor(a)
	if len(a.NextRound) > 0 {
		r.queue = append(append([]Action{}, a.NextRound...), r.queue...)
	}

	switch a.View {
	case ViewFinal:
		r.state = StateFinished
		session := r.session
		r.mu.Unlock()
		if session != nil {
			// Fire and forget; a failed finalize never blocks the screen.
			if err := r.backend.Finalize(ctx, session.ID); err != nil {
				runnerLog.Warn().Err(err).Msg("finalize failed")
			}
		}
		return
	case ViewRedirect:
		r.state = StateRedirected
	default:
		r.state = StateActive
		if !a.View.Known() {
			runnerLog.Warn().Str("view", string(a.View)).Msg("unknown view, rendering diagnostic")
		}
	}
	r.mu.Unlock()
}

// renderKeyFor returns a fresh key per dispatch, except for question flows
// where the key follows the question identity.
func renderKeyFor(a Action) string {
	if a.View == ViewTrial {
		if t, err := a.Trial(); err == nil && len(t.Feedback) > 0 && t.Feedback[0].Key != "" {
			return "question:" + t.Feedback[0].Key
		}
	}
	return uuid.NewString()
}

// fail records a terminal error state with the shared user-facing message.
func (r *Runner) fail(op string, err error) error {
	runnerLog.Error().Err(err).Str("op", op).Msg("runner entering error state")
	r.mu.Lock()
	r.state = StateError
	r.errMsg = ErrLoadFailed
	r.mu.Unlock()
	return fmt.Errorf("%s: %w", op, err)
}
