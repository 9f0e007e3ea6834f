// Package api implements the HTTP boundary to the experiment backend. The
// backend itself is an opaque service; this client only knows the handful
// of endpoints the player drives and the form-encoded request convention
// they share.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"resty.dev/v3"

	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/experiment"
	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/logging"
)

var log = logging.Component("api")

// Client talks to the experiment backend. It implements experiment.Backend.
//
// All mutating requests are form-encoded (never JSON bodies) and carry the
// CSRF token issued with the participant; payload values that are
// structured are JSON-serialized into a single form field.
type Client struct {
	http *resty.Client

	mu   sync.Mutex
	csrf string
}

// New creates a Client for the given backend base URL.
func New(baseURL string, timeout time.Duration) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)

	return &Client{http: rc}
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	return c.http.Close()
}

func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.csrf
}

// Participant fetches the participant, creating one server-side when
// participantID is empty. The CSRF token from the response is retained for
// every later mutating request.
func (c *Client) Participant(ctx context.Context, participantID string) (*experiment.Participant, error) {
	req := c.http.R().SetContext(ctx)
	if participantID != "" {
		req.SetQueryParam("participant_id", participantID)
	}

	res, err := req.Get("/participant/")
	if err != nil {
		return nil, fmt.Errorf("fetch participant: %w", err)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("fetch participant: status %d", res.StatusCode())
	}

	var p experiment.Participant
	if err := json.Unmarshal(res.Bytes(), &p); err != nil {
		return nil, fmt.Errorf("decode participant: %w", err)
	}

	c.mu.Lock()
	c.csrf = p.CSRFToken
	c.mu.Unlock()

	log.Debug().Int("participant", p.ID).Msg("participant loaded")
	return &p, nil
}

// CreateSession starts a session for the experiment slug.
func (c *Client) CreateSession(ctx context.Context, slug, playlistID string) (*experiment.SessionStart, error) {
	form := map[string]string{
		"experiment_id": slug,
		"csrf_token":    c.token(),
	}
	if playlistID != "" {
		form["playlist_id"] = playlistID
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		Post("/session/create/")
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("create session: status %d", res.StatusCode())
	}

	var start experiment.SessionStart
	if err := json.Unmarshal(res.Bytes(), &start); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	log.Debug().Int("session", start.Session.ID).Str("experiment", slug).Msg("session created")
	return &start, nil
}

// NextRound fetches a fresh batch of round actions for the session.
func (c *Client) NextRound(ctx context.Context, sessionID int) ([]experiment.Action, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/session/%d/next_round/", sessionID))
	if err != nil {
		return nil, fmt.Errorf("next round: %w", err)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("next round: status %d", res.StatusCode())
	}

	var body struct {
		NextRound []experiment.Action `json:"next_round"`
	}
	if err := json.Unmarshal(res.Bytes(), &body); err != nil {
		return nil, fmt.Errorf("decode next round: %w", err)
	}
	return body.NextRound, nil
}

// SubmitResult posts a merged round result. The result map is serialized
// into a single JSON form field per the backend convention. A non-2xx
// response or undecodable body returns an error so the runner can fall
// back to NextRound; it never panics the round.
func (c *Client) SubmitResult(ctx context.Context, sessionID int, result experiment.Fragment, sectionID int) ([]experiment.Action, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}

	form := map[string]string{
		"session_id": strconv.Itoa(sessionID),
		"json_data":  string(payload),
		"csrf_token": c.token(),
	}
	if sectionID != 0 {
		form["section_id"] = strconv.Itoa(sectionID)
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		Post("/result/score/")
	if err != nil {
		return nil, fmt.Errorf("submit result: %w", err)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("submit result: status %d", res.StatusCode())
	}

	var body struct {
		NextRound []experiment.Action `json:"next_round"`
	}
	if err := json.Unmarshal(res.Bytes(), &body); err != nil {
		return nil, fmt.Errorf("decode result response: %w", err)
	}
	return body.NextRound, nil
}

// IntermediateScore posts a per-turn payload and returns the awarded score.
// Used by the matching pairs game between turns, without ending the round.
func (c *Client) IntermediateScore(ctx context.Context, sessionID int, payload experiment.Fragment) (float64, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode intermediate payload: %w", err)
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"session_id": strconv.Itoa(sessionID),
			"json_data":  string(data),
			"csrf_token": c.token(),
		}).
		Post("/result/intermediate_score/")
	if err != nil {
		return 0, fmt.Errorf("intermediate score: %w", err)
	}
	if !res.IsSuccess() {
		return 0, fmt.Errorf("intermediate score: status %d", res.StatusCode())
	}

	var body struct {
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal(res.Bytes(), &body); err != nil {
		return 0, fmt.Errorf("decode intermediate score: %w", err)
	}
	return body.Score, nil
}

// Finalize marks the session finished. Best effort: callers log and ignore
// the error.
func (c *Client) Finalize(ctx context.Context, sessionID int) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{"csrf_token": c.token()}).
		Post(fmt.Sprintf("/session/%d/finalize/", sessionID))
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	if !res.IsSuccess() {
		return fmt.Errorf("finalize: status %d", res.StatusCode())
	}
	return nil
}

var _ experiment.Backend = (*Client)(nil)
