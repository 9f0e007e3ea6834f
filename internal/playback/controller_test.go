package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/audio/audiotest"
	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/experiment"
)

// manualClock implements Scheduler with test-controlled firing.
type manualClock struct {
	mu    sync.Mutex
	tasks []*clockTask
}

type clockTask struct {
	delay    time.Duration
	fn       func()
	canceled bool
}

func (m *manualClock) Schedule(d time.Duration, fn func()) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &clockTask{delay: d, fn: fn}
	m.tasks = append(m.tasks, t)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		t.canceled = true
	}
}

// Fire runs every scheduled task with delay <= d, in schedule order.
// Tasks with longer delays stay pending.
func (m *manualClock) Fire(d time.Duration) {
	m.mu.Lock()
	var due, rest []*clockTask
	for _, t := range m.tasks {
		if t.delay <= d {
			due = append(due, t)
		} else {
			rest = append(rest, t)
		}
	}
	m.tasks = rest
	m.mu.Unlock()

	for _, t := range due {
		m.mu.Lock()
		canceled := t.canceled
		m.mu.Unlock()
		if !canceled {
			t.fn()
		}
	}
}

func buttonSpec(urls ...string) experiment.PlaybackSpec {
	return experiment.PlaybackSpec{
		View:       experiment.PlayerButton,
		PlayMethod: experiment.MethodStream,
		Sections:   sections(urls...),
	}
}

func TestPlaySectionNoAudioIsNoop(t *testing.T) {
	engine := audiotest.NewFake()
	spec := buttonSpec("a.mp3")
	spec.PlayMethod = experiment.MethodNoAudio
	c := NewController(engine, spec)

	c.PlaySection(0)

	assert.Empty(t, engine.PlayCalls())
	assert.Equal(t, NoIndex, c.PlayingIndex())
}

func TestPlaySectionStartsStream(t *testing.T) {
	engine := audiotest.NewFake()
	c := NewController(engine, buttonSpec("a.mp3", "b.mp3"), WithMediaRoot("http://media.test"))

	c.PlaySection(1)

	calls := engine.PlayCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "http://media.test/b.mp3", calls[0].Source)
	assert.Equal(t, 1, c.PlayingIndex())
}

func TestPlaySectionSameIndexTogglesOff(t *testing.T) {
	engine := audiotest.NewFake()
	c := NewController(engine, buttonSpec("a.mp3"))

	c.PlaySection(0)
	require.Equal(t, 0, c.PlayingIndex())

	c.PlaySection(0)
	assert.Equal(t, NoIndex, c.PlayingIndex())
	assert.Equal(t, 1, engine.Pauses, "toggling off fades out instead of cutting")
	assert.Len(t, engine.PlayCalls(), 1, "toggle off does not restart")

	// Toggling off again stays off.
	c.PlaySection(0)
	assert.Len(t, engine.PlayCalls(), 2, "a stopped index can start again")
}

func TestPlaySectionStopsPreviousSound(t *testing.T) {
	engine := audiotest.NewFake()
	var finished []int
	c := NewController(engine, buttonSpec("a.mp3", "b.mp3"),
		OnFinished(func(i int) { finished = append(finished, i) }))

	c.PlaySection(0)
	c.PlaySection(1)

	assert.Equal(t, 1, c.PlayingIndex())
	assert.Len(t, engine.PlayCalls(), 2)
	engine.FinishPlayback()
	assert.Equal(t, []int{1}, finished, "the interrupted sound never reports finished")
}

func TestPlaySectionResumeShiftsPlayhead(t *testing.T) {
	engine := audiotest.NewFake()
	spec := buttonSpec("a.mp3")
	spec.PlayFrom = 1.5
	spec.ResumePlay = true
	c := NewController(engine, spec, WithResumeOffset(2*time.Second))

	c.PlaySection(0)

	calls := engine.PlayCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, 3500*time.Millisecond, calls[0].Offset)
}

func TestPlaySectionBufferedPath(t *testing.T) {
	engine := audiotest.NewFake()
	spec := buttonSpec("a.mp3")
	spec.PlayMethod = experiment.MethodBuffer
	require.NoError(t, engine.LoadBuffer(context.Background(), "a.mp3", "a.mp3"))
	c := NewController(engine, spec)

	c.PlaySection(0)

	calls := engine.PlayCalls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Buffered)
	assert.Equal(t, "a.mp3", calls[0].Buffer)
}

func TestPlaySectionBufferFallsBackOnIncompatibleDevice(t *testing.T) {
	engine := audiotest.NewFake()
	engine.DeviceCompatible = false
	spec := buttonSpec("a.mp3")
	spec.PlayMethod = experiment.MethodBuffer
	require.NoError(t, engine.LoadBuffer(context.Background(), "a.mp3", "a.mp3"))
	c := NewController(engine, spec)

	c.PlaySection(0)

	calls := engine.PlayCalls()
	require.Len(t, calls, 1)
	assert.False(t, calls[0].Buffered, "incompatible device streams instead")
}

func TestStartedPlayingDelayedByDeviceLatency(t *testing.T) {
	engine := audiotest.NewFake()
	engine.DeviceLatency = 80 * time.Millisecond
	clock := &manualClock{}
	var started []int
	c := NewController(engine, buttonSpec("a.mp3"),
		WithScheduler(clock.Schedule),
		OnStarted(func(i int) { started = append(started, i) }))

	c.PlaySection(0)

	assert.Empty(t, started, "no started callback before the latency has elapsed")
	clock.Fire(79 * time.Millisecond)
	assert.Empty(t, started)

	c.PlaySection(0)
	c.PlaySection(0) // toggle off and on to schedule a fresh timer
	clock.Fire(80 * time.Millisecond)
	assert.Equal(t, []int{0}, started, "exactly one call at the latency mark")
}

func TestStopCancelsPendingStartedCallback(t *testing.T) {
	engine := audiotest.NewFake()
	engine.DeviceLatency = 50 * time.Millisecond
	clock := &manualClock{}
	var started []int
	c := NewController(engine, buttonSpec("a.mp3"),
		WithScheduler(clock.Schedule),
		OnStarted(func(i int) { started = append(started, i) }))

	c.PlaySection(0)
	c.Stop()
	clock.Fire(time.Second)

	assert.Empty(t, started, "a torn-down round never observes a late start")
	assert.Equal(t, NoIndex, c.PlayingIndex())
}

func TestPlayOnceDisablesFinishedIndex(t *testing.T) {
	engine := audiotest.NewFake()
	spec := buttonSpec("a.mp3", "b.mp3")
	spec.PlayOnce = true
	c := NewController(engine, spec)

	c.PlaySection(0)
	assert.False(t, c.Disabled(0), "playing is not yet played")
	engine.FinishPlayback()

	assert.True(t, c.HasPlayed(0))
	assert.True(t, c.Disabled(0))
	assert.False(t, c.Disabled(1))

	c.PlaySection(0)
	assert.Len(t, engine.PlayCalls(), 1, "a played-once index does not restart")
}

func TestMuteSilencesButKeepsLifecycle(t *testing.T) {
	engine := audiotest.NewFake()
	spec := buttonSpec("a.mp3")
	spec.Mute = true
	var finished []int
	c := NewController(engine, spec, OnFinished(func(i int) { finished = append(finished, i) }))

	c.PlaySection(0)

	calls := engine.PlayCalls()
	require.Len(t, calls, 1, "playback still runs to drive timing")
	assert.Equal(t, 0.0, calls[0].Volume, "the gain is already zero when playback starts")
	assert.Equal(t, 0.0, engine.Volume(), "muted rounds make no sound")
	engine.FinishPlayback()
	assert.Equal(t, []int{0}, finished)
	assert.Equal(t, NoIndex, c.PlayingIndex())
}

func TestUnmutedRoundRestoresGain(t *testing.T) {
	engine := audiotest.NewFake()
	muted := buttonSpec("a.mp3")
	muted.Mute = true
	NewController(engine, muted).PlaySection(0)

	c := NewController(engine, buttonSpec("b.mp3"))
	c.PlaySection(0)

	calls := engine.PlayCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, 1.0, calls[1].Volume, "a later round is not stuck silent")
}

func TestStopAudioAfterCutsPlayback(t *testing.T) {
	engine := audiotest.NewFake()
	spec := buttonSpec("a.mp3")
	spec.StopAudioAfter = 2
	clock := &manualClock{}
	var finished []int
	c := NewController(engine, spec,
		WithScheduler(clock.Schedule),
		OnFinished(func(i int) { finished = append(finished, i) }))

	c.PlaySection(0)
	clock.Fire(2 * time.Second)

	assert.Equal(t, []int{0}, finished)
	assert.Equal(t, NoIndex, c.PlayingIndex())
	assert.True(t, c.HasPlayed(0))
}

func TestPlaySectionOutOfRangeIgnored(t *testing.T) {
	engine := audiotest.NewFake()
	c := NewController(engine, buttonSpec("a.mp3"))

	c.PlaySection(-1)
	c.PlaySection(5)

	assert.Empty(t, engine.PlayCalls())
}
