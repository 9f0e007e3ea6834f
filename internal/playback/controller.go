package playback

import (
	"sync"
	"time"

	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/audio"
	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/experiment"
)

// NoIndex is the playing index when no section is playing.
const NoIndex = -1

// Scheduler runs fn after d and returns a cancel function. The default is
// time.AfterFunc; tests inject a manual clock.
type Scheduler func(d time.Duration, fn func()) (cancel func())

func afterFunc(d time.Duration, fn func()) (cancel func()) {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// Controller drives one round's playback: which section index is sounding,
// which indices have already played, and the started/finished callbacks the
// round's timing logic hangs off. A new round gets a new Controller.
type Controller struct {
	engine     audio.Engine
	spec       experiment.PlaybackSpec
	mediaRoot  string
	schedule   Scheduler
	resume     time.Duration
	onStarted  func(index int)
	onFinished func(index int)

	mu          sync.Mutex
	playing     int
	hasPlayed   map[int]bool
	cancelStart func()
	cancelCut   func()
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithMediaRoot resolves relative section URLs against root.
func WithMediaRoot(root string) ControllerOption {
	return func(c *Controller) { c.mediaRoot = root }
}

// WithScheduler replaces the timer used for latency compensation and the
// stop-audio-after cutoff.
func WithScheduler(s Scheduler) ControllerOption {
	return func(c *Controller) { c.schedule = s }
}

// WithResumeOffset sets the stored decision time applied as an extra
// playhead shift when the round asks to resume playback.
func WithResumeOffset(d time.Duration) ControllerOption {
	return func(c *Controller) { c.resume = d }
}

// OnStarted registers the callback fired once audible onset is expected,
// the play call delayed by the measured device latency.
func OnStarted(fn func(index int)) ControllerOption {
	return func(c *Controller) { c.onStarted = fn }
}

// OnFinished registers the callback fired when a section ends naturally.
func OnFinished(fn func(index int)) ControllerOption {
	return func(c *Controller) { c.onFinished = fn }
}

// NewController returns a Controller for one round's playback spec.
func NewController(engine audio.Engine, spec experiment.PlaybackSpec, opts ...ControllerOption) *Controller {
	c := &Controller{
		engine:    engine,
		spec:      spec,
		schedule:  afterFunc,
		playing:   NoIndex,
		hasPlayed: make(map[int]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PlaySection starts the section at index, stopping whatever was sounding
// before. Asking for the index that is already playing toggles it off with
// a fade-out. No-op for rounds without audio and for exhausted play-once
// indices.
func (c *Controller) PlaySection(index int) {
	if c.spec.PlayMethod == experiment.MethodNoAudio {
		return
	}
	if index < 0 || index >= len(c.spec.Sections) {
		return
	}

	c.mu.Lock()
	if index == c.playing {
		c.stopLocked()
		c.mu.Unlock()
		c.engine.Pause()
		return
	}
	if c.spec.PlayOnce && c.hasPlayed[index] {
		c.mu.Unlock()
		return
	}
	c.stopLocked()
	c.playing = index
	c.mu.Unlock()

	c.engine.Stop()

	offset := time.Duration(c.spec.PlayFrom * float64(time.Second))
	if c.spec.ResumePlay {
		offset += c.resume
	}

	section := c.spec.Sections[index]
	done := func() { c.finished(index) }

	// The gain must be settled before the first sample streams; a muted
	// round never emits audible output, not even one speaker buffer.
	if c.spec.Mute {
		c.engine.SetVolume(0)
	} else {
		c.engine.SetVolume(1)
	}

	buffered := false
	if c.spec.PlayMethod == experiment.MethodBuffer && c.engine.CompatibleDevice() {
		buffered = c.engine.PlayBuffer(section.URL, offset, done) == nil
	}
	if !buffered {
		if err := c.engine.Load(section.ResolveURL(c.mediaRoot)); err != nil {
			log.Warn().Err(err).Str("src", section.URL).Msg("section load failed")
		}
		c.engine.PlayFrom(offset, done)
	}

	c.mu.Lock()
	c.cancelStart = c.schedule(c.engine.Latency(), func() {
		if c.onStarted != nil {
			c.onStarted(index)
		}
	})
	if c.spec.StopAudioAfter > 0 {
		cut := time.Duration(c.spec.StopAudioAfter * float64(time.Second))
		c.cancelCut = c.schedule(cut, func() {
			c.mu.Lock()
			current := c.playing == index
			c.mu.Unlock()
			if current {
				c.engine.Stop()
				c.finished(index)
			}
		})
	}
	c.mu.Unlock()
}

func (c *Controller) finished(index int) {
	c.mu.Lock()
	c.hasPlayed[index] = true
	if c.playing == index {
		c.playing = NoIndex
	}
	fin := c.onFinished
	c.mu.Unlock()
	if fin != nil {
		fin(index)
	}
}

// stopLocked cancels pending timers and clears the playing index. Callers
// hold c.mu and stop the engine themselves.
func (c *Controller) stopLocked() {
	if c.cancelStart != nil {
		c.cancelStart()
		c.cancelStart = nil
	}
	if c.cancelCut != nil {
		c.cancelCut()
		c.cancelCut = nil
	}
	c.playing = NoIndex
}

// Stop halts playback and cancels pending callbacks. Used on round teardown.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.stopLocked()
	c.mu.Unlock()
	c.engine.Stop()
}

// PlayingIndex returns the index currently sounding, or NoIndex.
func (c *Controller) PlayingIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// HasPlayed reports whether the section at index has finished at least once
// this round.
func (c *Controller) HasPlayed(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasPlayed[index]
}

// Disabled reports whether the UI should render index as unplayable.
func (c *Controller) Disabled(index int) bool {
	if !c.spec.PlayOnce {
		return false
	}
	return c.HasPlayed(index)
}
