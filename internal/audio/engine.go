// Package audio provides the playback engine for experiment stimuli. One
// engine instance owns the speaker for the whole process; the active round
// holds the only handle, so two rounds can never produce overlapping sound.
//
// Two playback paths exist, mirroring how rounds request their resources:
// a streamed path that decodes while downloading, and a buffered path that
// decodes sections fully up front and plays from memory. A round uses one
// path or the other, never both.
package audio

import (
	"context"
	"time"
)

// Engine is the playback contract the controller drives. The production
// implementation is BeepEngine; tests use audiotest.Fake.
type Engine interface {
	// Load stops current playback and assigns a new streamed source.
	// Loading the same source again while stopped is a no-op.
	Load(src string) error

	// Play starts streamed playback at the current position, cancelling
	// any pending fade-out. The gain is whatever SetVolume last set, so a
	// muted caller sets the volume before playing. done fires once when
	// the stream ends naturally (not on Stop).
	Play(done func())

	// PlayFrom is Play with an explicit playhead offset.
	PlayFrom(offset time.Duration, done func())

	// Pause fades the volume to silence and then stops.
	Pause()

	// Stop halts playback immediately with no fade. Idempotent; used on
	// round teardown.
	Stop()

	// SetVolume sets the linear gain, clamped to [0, 1].
	SetVolume(v float64)

	// Volume returns the current gain.
	Volume() float64

	// Position returns the playhead of the streamed source.
	Position() time.Duration

	// LoadUntilAvailable loads src and invokes onReady once enough data is
	// buffered to play through. If the source is already available the
	// callback runs synchronously. The returned cancel detaches the
	// pending callback; a round torn down mid-load never observes a late
	// onReady.
	LoadUntilAvailable(src string, onReady func()) (cancel func())

	// LoadBuffer decodes src fully into memory under key. Decoding is done
	// once per key; repeated loads are cheap.
	LoadBuffer(ctx context.Context, key, src string) error

	// HasBuffer reports whether key is already decoded.
	HasBuffer(key string) bool

	// PlayBuffer plays a previously loaded buffer from offset. done fires
	// once when the buffer ends naturally.
	PlayBuffer(key string, offset time.Duration, done func()) error

	// Latency reports the total output latency: the speaker buffer plus
	// the configured base device latency. Response-time capture delays its
	// start by this much so timers align with audible onset.
	Latency() time.Duration

	// CompatibleDevice reports whether the buffered path is usable on this
	// output device. When false, callers fall back to streamed playback.
	CompatibleDevice() bool
}

// clamp01 bounds a gain value to [0, 1].
func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
