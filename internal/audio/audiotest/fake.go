// Package audiotest provides a deterministic in-memory Engine for tests.
// Loads complete only when the test says so, and playback only ends when
// the test finishes it, so timing-sensitive behavior can be asserted
// without a sound device or real clocks.
package audiotest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/audio"
)

// Fake implements audio.Engine with manual control over every async edge.
type Fake struct {
	mu sync.Mutex

	// Configurable behavior.
	DeviceCompatible bool
	DeviceLatency    time.Duration
	BufferErr        error

	loaded    string
	playing   bool
	volume    float64
	buffers   map[string]bool
	gates     map[string]chan struct{}
	done      func()
	pending   map[string][]*pendingLoad
	playCalls []PlayCall

	Loads       []string
	BufferLoads []string
	Stops       int
	Pauses      int
}

// PlayCall records one playback request. Volume is the gain at the moment
// playback started, so tests can assert a mute landed before any sound.
type PlayCall struct {
	Source   string
	Buffer   string
	Offset   time.Duration
	Buffered bool
	Volume   float64
}

type pendingLoad struct {
	onReady  func()
	canceled bool
}

// NewFake returns a Fake with a compatible device and unit volume.
func NewFake() *Fake {
	return &Fake{
		DeviceCompatible: true,
		volume:           1,
		buffers:          make(map[string]bool),
		gates:            make(map[string]chan struct{}),
		pending:          make(map[string][]*pendingLoad),
	}
}

// Load implements audio.Engine.
func (f *Fake) Load(src string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = src
	f.Loads = append(f.Loads, src)
	return nil
}

// Play implements audio.Engine.
func (f *Fake) Play(done func()) {
	f.PlayFrom(-1, done)
}

// PlayFrom implements audio.Engine. The gain is left as set, matching the
// production engine's contract.
func (f *Fake) PlayFrom(offset time.Duration, done func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = true
	f.done = done
	f.playCalls = append(f.playCalls, PlayCall{Source: f.loaded, Offset: offset, Volume: f.volume})
}

// Pause implements audio.Engine. The fade is collapsed to an immediate stop.
func (f *Fake) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Pauses++
	f.playing = false
	f.done = nil
}

// Stop implements audio.Engine.
func (f *Fake) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Stops++
	f.playing = false
	f.done = nil
}

// SetVolume implements audio.Engine with the same clamping contract.
func (f *Fake) SetVolume(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = max(0, min(1, v))
}

// Volume implements audio.Engine.
func (f *Fake) Volume() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume
}

// Position implements audio.Engine.
func (f *Fake) Position() time.Duration { return 0 }

// LoadUntilAvailable implements audio.Engine. The callback fires when the
// test calls CompleteLoad for the same source.
func (f *Fake) LoadUntilAvailable(src string, onReady func()) (cancel func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &pendingLoad{onReady: onReady}
	f.pending[src] = append(f.pending[src], p)
	f.Loads = append(f.Loads, src)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		p.canceled = true
	}
}

// CompleteLoad fires the ready callbacks registered for src, skipping any
// that were cancelled.
func (f *Fake) CompleteLoad(src string) {
	f.mu.Lock()
	waiting := f.pending[src]
	delete(f.pending, src)
	f.loaded = src
	f.mu.Unlock()

	for _, p := range waiting {
		f.mu.Lock()
		canceled := p.canceled
		f.mu.Unlock()
		if !canceled && p.onReady != nil {
			p.onReady()
		}
	}
}

// BlockBuffer makes the next LoadBuffer for key wait until the returned
// release function is called, so tests can decide completion order.
func (f *Fake) BlockBuffer(key string) (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[key] = ch
	return func() { close(ch) }
}

// LoadBuffer implements audio.Engine.
func (f *Fake) LoadBuffer(ctx context.Context, key, src string) error {
	f.mu.Lock()
	gate := f.gates[key]
	delete(f.gates, key)
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.BufferErr != nil {
		return f.BufferErr
	}
	f.buffers[key] = true
	f.BufferLoads = append(f.BufferLoads, key)
	return nil
}

// HasBuffer implements audio.Engine.
func (f *Fake) HasBuffer(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buffers[key]
}

// PlayBuffer implements audio.Engine.
func (f *Fake) PlayBuffer(key string, offset time.Duration, done func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.buffers[key] {
		return fmt.Errorf("no buffer loaded for %q", key)
	}
	f.playing = true
	f.done = done
	f.playCalls = append(f.playCalls, PlayCall{Buffer: key, Offset: offset, Buffered: true, Volume: f.volume})
	return nil
}

// Latency implements audio.Engine.
func (f *Fake) Latency() time.Duration { return f.DeviceLatency }

// CompatibleDevice implements audio.Engine.
func (f *Fake) CompatibleDevice() bool { return f.DeviceCompatible }

// FinishPlayback simulates the current sound ending naturally, firing the
// armed done callback exactly once.
func (f *Fake) FinishPlayback() {
	f.mu.Lock()
	done := f.done
	f.done = nil
	f.playing = false
	f.mu.Unlock()
	if done != nil {
		done()
	}
}

// Playing reports whether a sound is currently armed.
func (f *Fake) Playing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

// LoadedSources returns a copy of every load request so far. Safe to poll
// while loads are in flight.
func (f *Fake) LoadedSources() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Loads))
	copy(out, f.Loads)
	return out
}

// PlayCalls returns a copy of every playback request so far.
func (f *Fake) PlayCalls() []PlayCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]PlayCall, len(f.playCalls))
	copy(out, f.playCalls)
	return out
}

var _ audio.Engine = (*Fake)(nil)
