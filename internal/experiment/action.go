// Package experiment holds the data model and state machine for playing a
// server-driven experiment: round actions, sections, the result accumulator
// and the runner that walks a participant through a session.
package experiment

import (
	"encoding/json"
	"fmt"
)

// View discriminates what kind of screen a round action describes.
type View string

const (
	ViewLoading   View = "LOADING"
	ViewExplainer View = "EXPLAINER"
	ViewPreload   View = "PRELOAD"
	ViewTrial     View = "TRIAL_VIEW"
	ViewScore     View = "SCORE"
	ViewFinal     View = "FINAL"
	ViewPlaylist  View = "PLAYLIST"
	ViewRedirect  View = "REDIRECT"
	ViewInfo      View = "INFO"
)

// Known reports whether the view is one the player can render. Unknown
// views are kept as-is and rendered as a diagnostic, never dropped.
func (v View) Known() bool {
	switch v {
	case ViewLoading, ViewExplainer, ViewPreload, ViewTrial, ViewScore,
		ViewFinal, ViewPlaylist, ViewRedirect, ViewInfo:
		return true
	}
	return false
}

// Action is one server-specified screen plus its behavior contract.
//
// The payload stays raw until a view-specific accessor decodes it, so a
// malformed variant surfaces as an error at render time instead of failing
// the whole batch. NextRound is the locally cached queue of follow-up
// actions shipped in the same server response; consuming it costs no
// network round trip.
type Action struct {
	View      View            `json:"view"`
	Payload   json.RawMessage `json:"-"`
	NextRound []Action        `json:"next_round,omitempty"`
}

// UnmarshalJSON keeps the full object as the payload so accessors can
// decode view-specific fields lazily.
func (a *Action) UnmarshalJSON(data []byte) error {
	var head struct {
		View      View     `json:"view"`
		NextRound []Action `json:"next_round"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("failed to unmarshal action: %w", err)
	}
	a.View = head.View
	a.NextRound = head.NextRound
	a.Payload = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON re-emits the original payload when present so an action
// round-trips without losing view-specific fields.
func (a Action) MarshalJSON() ([]byte, error) {
	if len(a.Payload) > 0 {
		return a.Payload, nil
	}
	type wire struct {
		View      View     `json:"view"`
		NextRound []Action `json:"next_round,omitempty"`
	}
	return json.Marshal(wire{View: a.View, NextRound: a.NextRound})
}

// PlayerView selects the playback presentation inside a trial round.
type PlayerView string

const (
	PlayerPreload       PlayerView = "PRELOAD"
	PlayerAutoplay      PlayerView = "AUTOPLAY"
	PlayerButton        PlayerView = "BUTTON"
	PlayerMultiplayer   PlayerView = "MULTIPLAYER"
	PlayerImage         PlayerView = "IMAGE"
	PlayerMatchingPairs PlayerView = "MATCHINGPAIRS"
)

// PlayMethod selects the resource strategy for a round's sections.
type PlayMethod string

const (
	// MethodBuffer decodes sections up front and plays from memory.
	MethodBuffer PlayMethod = "BUFFER"
	// MethodStream opens sections lazily and plays while downloading.
	MethodStream PlayMethod = "PLAY"
	// MethodNoAudio is for purely visual rounds; nothing is decoded.
	MethodNoAudio PlayMethod = "NOAUDIO"
	// MethodExternal hands playback to an external widget; treated like
	// MethodStream for preloading purposes.
	MethodExternal PlayMethod = "EXTERNAL"
)

// PlaybackSpec is the declarative playback contract of a trial round.
type PlaybackSpec struct {
	View           PlayerView `json:"view"`
	PlayMethod     PlayMethod `json:"play_method"`
	Sections       []Section  `json:"sections"`
	Instruction    string     `json:"instruction,omitempty"`
	PreloadMessage string     `json:"preload_message,omitempty"`
	PlayOnce       bool       `json:"play_once,omitempty"`
	Mute           bool       `json:"mute,omitempty"`
	ResumePlay     bool       `json:"resume_play,omitempty"`
	ShowAnimation  bool       `json:"show_animation,omitempty"`
	// PlayFrom shifts the playhead start, in seconds.
	PlayFrom float64 `json:"play_from,omitempty"`
	// StopAudioAfter ends playback after this many seconds, 0 plays to the end.
	StopAudioAfter float64 `json:"stop_audio_after,omitempty"`
	// ScoreFeedbackDisplay controls the matching pairs overlay variant.
	ScoreFeedbackDisplay string `json:"score_feedback_display,omitempty"`
}

// ExplainerStep is one numbered instruction line on the explainer screen.
type ExplainerStep struct {
	Number      int    `json:"number,omitempty"`
	Description string `json:"description"`
}

// ExplainerData is the payload of an EXPLAINER action.
type ExplainerData struct {
	Instruction string          `json:"instruction"`
	ButtonLabel string          `json:"button_label"`
	Steps       []ExplainerStep `json:"steps,omitempty"`
	// Timer auto-advances the explainer after this many seconds when set.
	Timer float64 `json:"timer,omitempty"`
}

// PreloadData is the payload of a PRELOAD action.
type PreloadData struct {
	Instruction string     `json:"instruction,omitempty"`
	Duration    float64    `json:"duration,omitempty"`
	Sections    []Section  `json:"sections,omitempty"`
	PlayMethod  PlayMethod `json:"play_method,omitempty"`
}

// QuestionData is a single form question inside a trial round.
type QuestionData struct {
	Key      string   `json:"key"`
	Question string   `json:"question"`
	View     string   `json:"view,omitempty"`
	Choices  []string `json:"choices,omitempty"`
	Expected string   `json:"expected_response,omitempty"`
}

// TrialConfig tunes trial behavior.
type TrialConfig struct {
	ResponseTime  float64 `json:"response_time,omitempty"`
	AutoAdvance   bool    `json:"auto_advance,omitempty"`
	ListenFirst   bool    `json:"listen_first,omitempty"`
	BreakRoundOn  string  `json:"break_round_on,omitempty"`
	ContinueLabel string  `json:"continue_label,omitempty"`
}

// TrialData is the payload of a TRIAL_VIEW action.
type TrialData struct {
	Title    string         `json:"title,omitempty"`
	Playback *PlaybackSpec  `json:"playback,omitempty"`
	Feedback []QuestionData `json:"feedback_form,omitempty"`
	Config   TrialConfig    `json:"config"`
}

// ScoreData is the payload of a SCORE action.
type ScoreData struct {
	Score        float64 `json:"score"`
	ScoreMessage string  `json:"score_message,omitempty"`
	TotalScore   float64 `json:"total_score,omitempty"`
	Texts        struct {
		Score string `json:"score,omitempty"`
		Next  string `json:"next,omitempty"`
	} `json:"texts"`
}

// FinalData is the payload of a FINAL action.
type FinalData struct {
	FinalText   string  `json:"final_text,omitempty"`
	Rank        string  `json:"rank,omitempty"`
	Score       float64 `json:"score,omitempty"`
	ButtonLabel string  `json:"button,omitempty"`
	ShowScore   bool    `json:"show_score,omitempty"`
}

// PlaylistChoice is one selectable playlist on the PLAYLIST screen.
type PlaylistChoice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PlaylistData is the payload of a PLAYLIST action.
type PlaylistData struct {
	Instruction string           `json:"instruction,omitempty"`
	Playlists   []PlaylistChoice `json:"playlists"`
}

// RedirectData is the payload of a REDIRECT action.
type RedirectData struct {
	URL string `json:"url"`
}

// InfoData is the payload of an INFO action.
type InfoData struct {
	Heading     string `json:"heading,omitempty"`
	Body        string `json:"body"`
	ButtonLabel string `json:"button_label,omitempty"`
	ButtonLink  string `json:"button_link,omitempty"`
}

func (a Action) decode(want View, into any) error {
	if a.View != want {
		return fmt.Errorf("action is not %s: %s", want, a.View)
	}
	if err := json.Unmarshal(a.Payload, into); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", want, err)
	}
	return nil
}

// Explainer returns the explainer payload for EXPLAINER actions.
func (a Action) Explainer() (*ExplainerData, error) {
	var d ExplainerData
	if err := a.decode(ViewExplainer, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Preload returns the preload payload for PRELOAD actions.
func (a Action) Preload() (*PreloadData, error) {
	var d PreloadData
	if err := a.decode(ViewPreload, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Trial returns the trial payload for TRIAL_VIEW actions.
func (a Action) Trial() (*TrialData, error) {
	var d TrialData
	if err := a.decode(ViewTrial, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Score returns the score payload for SCORE actions.
func (a Action) Score() (*ScoreData, error) {
	var d ScoreData
	if err := a.decode(ViewScore, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Final returns the final payload for FINAL actions.
func (a Action) Final() (*FinalData, error) {
	var d FinalData
	if err := a.decode(ViewFinal, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Playlist returns the playlist payload for PLAYLIST actions.
func (a Action) Playlist() (*PlaylistData, error) {
	var d PlaylistData
	if err := a.decode(ViewPlaylist, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Redirect returns the redirect payload for REDIRECT actions.
func (a Action) Redirect() (*RedirectData, error) {
	var d RedirectData
	if err := a.decode(ViewRedirect, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Info returns the info payload for INFO actions.
func (a Action) Info() (*InfoData, error) {
	var d InfoData
	if err := a.decode(ViewInfo, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
