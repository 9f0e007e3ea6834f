package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingProfileIsEmpty(t *testing.T) {
	s := NewStore(t.TempDir())

	p, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, p.ParticipantID)
	assert.Empty(t, p.Sessions)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())
	want := &Profile{
		ParticipantID: "abc123",
		Sessions: []SessionRecord{
			{Slug: "beat_alignment", SessionID: 42, Score: 30, FinishedAt: time.Now().UTC().Truncate(time.Second)},
		},
	}

	require.NoError(t, s.Save(want))
	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRememberParticipantKeepsExisting(t *testing.T) {
	s := NewStore(t.TempDir())

	require.NoError(t, s.RememberParticipant("first"))
	require.NoError(t, s.RememberParticipant(""))

	p, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "first", p.ParticipantID)
}

func TestRecordSessionAppends(t *testing.T) {
	s := NewStore(t.TempDir())

	require.NoError(t, s.RecordSession(SessionRecord{Slug: "a", SessionID: 1}))
	require.NoError(t, s.RecordSession(SessionRecord{Slug: "b", SessionID: 2}))

	p, err := s.Load()
	require.NoError(t, err)
	require.Len(t, p.Sessions, 2)
	assert.Equal(t, "b", p.Sessions[1].Slug)
}

func TestLoadRejectsCorruptProfile(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".muscle"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".muscle", "profile.yaml"), []byte(":\tnot yaml"), 0o644))

	_, err := s.Load()
	assert.Error(t, err)
}
