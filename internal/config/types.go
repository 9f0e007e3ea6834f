package config

import "time"

// API holds the backend connection settings.
type API struct {
	// BaseURL is the root of the experiment backend, e.g. "http://localhost:8000".
	BaseURL string `yaml:"base_url"`
	// Timeout bounds every request to the backend.
	Timeout time.Duration `yaml:"timeout"`
}

// Media holds stimulus resolution settings.
type Media struct {
	// RootURL is prepended to relative section URLs.
	RootURL string `yaml:"root_url"`
}

// Experiment selects which experiment a session is created for.
type Experiment struct {
	// Slug identifies the experiment on the backend.
	Slug string `yaml:"slug"`
	// PlaylistID optionally pins a playlist; empty lets the backend choose.
	PlaylistID string `yaml:"playlist_id"`
	// ParticipantID resumes an existing participant; empty creates a new one.
	ParticipantID string `yaml:"participant_id"`
}

// Playback tunes the audio path.
type Playback struct {
	// PreloadTimeout caps how long a stalled preload may wait before it
	// errors out instead of hanging the round.
	PreloadTimeout time.Duration `yaml:"preload_timeout"`
	// FadeDuration is the pause fade-out length.
	FadeDuration time.Duration `yaml:"fade_duration"`
	// BaseLatency is added to the measured output buffer latency when
	// compensating response-time capture.
	BaseLatency time.Duration `yaml:"base_latency"`
}

// Config represents the muscle.yaml player configuration file.
type Config struct {
	API        API        `yaml:"api"`
	Media      Media      `yaml:"media"`
	Experiment Experiment `yaml:"experiment"`
	Playback   Playback   `yaml:"playback"`
}
