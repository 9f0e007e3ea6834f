// Package store persists the local participant profile. It is how the
// terminal player keeps a returning participant's identity between runs:
// the first session stores the hash the backend handed out, later runs
// send it back so results accrue to the same participant.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// SessionRecord summarizes one completed run.
type SessionRecord struct {
	Slug       string    `yaml:"slug"`
	SessionID  int       `yaml:"session_id"`
	Score      float64   `yaml:"score,omitempty"`
	FinishedAt time.Time `yaml:"finished_at"`
}

// Profile is the locally stored participant identity and history.
type Profile struct {
	ParticipantID string          `yaml:"participant_id,omitempty"`
	Sessions      []SessionRecord `yaml:"sessions,omitempty"`
}

// Store reads and writes the profile under basePath/.muscle/.
type Store struct {
	basePath string
}

// NewStore creates a Store rooted at basePath.
func NewStore(basePath string) *Store {
	return &Store{basePath: basePath}
}

// DefaultStore roots the store in the user's home directory.
func DefaultStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate home directory: %w", err)
	}
	return NewStore(home), nil
}

func (s *Store) profilePath() string {
	return filepath.Join(s.basePath, ".muscle", "profile.yaml")
}

// Load reads the profile. A missing file yields an empty profile.
func (s *Store) Load() (*Profile, error) {
	data, err := os.ReadFile(s.profilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return &Profile{}, nil
		}
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	return &p, nil
}

// Save writes the profile, creating the .muscle directory as needed.
func (s *Store) Save(p *Profile) error {
	dir := filepath.Dir(s.profilePath())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err := os.WriteFile(s.profilePath(), data, 0o644); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

// RememberParticipant stores the participant hash if it changed.
func (s *Store) RememberParticipant(hash string) error {
	if hash == "" {
		return nil
	}
	p, err := s.Load()
	if err != nil {
		return err
	}
	if p.ParticipantID == hash {
		return nil
	}
	p.ParticipantID = hash
	return s.Save(p)
}

// RecordSession appends a completed session to the profile history.
func (s *Store) RecordSession(rec SessionRecord) error {
	p, err := s.Load()
	if err != nil {
		return err
	}
	p.Sessions = append(p.Sessions, rec)
	return s.Save(p)
}
