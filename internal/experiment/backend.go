package experiment

import "context"

// Participant is the server-issued identity a session belongs to. The CSRF
// token rides along on every mutating request.
type Participant struct {
	ID        int    `json:"id"`
	Hash      string `json:"hash"`
	CSRFToken string `json:"csrf_token"`
}

// Session identifies one run of an experiment by one participant.
type Session struct {
	ID int `json:"id"`
}

// SessionStart is the response to session creation. The backend may ship
// the first batch of round actions in the same response.
type SessionStart struct {
	Session   Session  `json:"session"`
	NextRound []Action `json:"next_round,omitempty"`
}

// Backend is the HTTP boundary the runner drives. The production
// implementation lives in internal/api; tests substitute a scripted fake.
type Backend interface {
	// Participant fetches (or creates) the participant. participantID may
	// be empty to let the backend mint a new one.
	Participant(ctx context.Context, participantID string) (*Participant, error)

	// CreateSession starts a session for the experiment slug.
	CreateSession(ctx context.Context, slug, playlistID string) (*SessionStart, error)

	// NextRound fetches a fresh batch of round actions.
	NextRound(ctx context.Context, sessionID int) ([]Action, error)

	// SubmitResult posts a merged round result. The returned batch may be
	// empty; callers fall back to NextRound.
	SubmitResult(ctx context.Context, sessionID int, result Fragment, sectionID int) ([]Action, error)

	// IntermediateScore posts a per-turn payload without ending the round.
	IntermediateScore(ctx context.Context, sessionID int, payload Fragment) (float64, error)

	// Finalize marks the session finished. Best effort.
	Finalize(ctx context.Context, sessionID int) error
}
