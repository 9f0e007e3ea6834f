package audio

import (
	"net/http"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-0.5))
	assert.Equal(t, 0.0, clamp01(0))
	assert.Equal(t, 0.35, clamp01(0.35))
	assert.Equal(t, 1.0, clamp01(1))
	assert.Equal(t, 1.0, clamp01(2.5))
}

// silentEngine is a BeepEngine without an output device: speaker calls are
// skipped but all gain and lifecycle bookkeeping runs as in production.
func silentEngine(fade time.Duration) *BeepEngine {
	return &BeepEngine{
		sr:         beep.SampleRate(44100),
		fade:       fade,
		client:     http.DefaultClient,
		volume:     1,
		fadeFactor: 1,
		buffers:    make(map[string]*beep.Buffer),
	}
}

type stubStreamer struct{ closed int }

func (s *stubStreamer) Stream(samples [][2]float64) (int, bool) { return 0, false }
func (s *stubStreamer) Err() error                              { return nil }
func (s *stubStreamer) Len() int                                { return 0 }
func (s *stubStreamer) Position() int                           { return 0 }
func (s *stubStreamer) Seek(p int) error                        { return nil }
func (s *stubStreamer) Close() error                            { s.closed++; return nil }

func effectiveGain(e *BeepEngine) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume * e.fadeFactor
}

func stopped(e *BeepEngine) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.playing && e.streamer == nil
}

func TestStopIsIdempotent(t *testing.T) {
	e := silentEngine(40 * time.Millisecond)
	st := &stubStreamer{}
	e.streamer = st
	e.playing = true

	e.Stop()
	e.Stop()

	assert.Equal(t, 1, st.closed, "the streamer closes once")
	assert.True(t, stopped(e))

	// And on a never-started engine.
	silentEngine(40 * time.Millisecond).Stop()
}

func TestPauseWhileStoppedIsNoop(t *testing.T) {
	e := silentEngine(20 * time.Millisecond)

	e.Pause()
	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, 1.0, effectiveGain(e), "no fade steps run without playback")
}

func TestPauseFadesToSilenceThenStops(t *testing.T) {
	e := silentEngine(100 * time.Millisecond)
	st := &stubStreamer{}
	e.streamer = st
	e.playing = true

	e.Pause()

	require.Eventually(t, func() bool { return effectiveGain(e) < 1 },
		time.Second, time.Millisecond, "the gain attenuates during the fade")
	require.Eventually(t, func() bool { return stopped(e) },
		time.Second, time.Millisecond)
	assert.Equal(t, 1, st.closed)
	assert.Equal(t, 1.0, effectiveGain(e), "the fade attenuation resets on stop")

	e.Pause()
	assert.True(t, stopped(e), "pausing a stopped engine stays stopped")
}

func TestPauseTwiceStillStops(t *testing.T) {
	e := silentEngine(40 * time.Millisecond)
	e.streamer = &stubStreamer{}
	e.playing = true

	e.Pause()
	e.Pause()

	require.Eventually(t, func() bool { return stopped(e) },
		time.Second, time.Millisecond)
}

func TestPlayCancelsPendingFade(t *testing.T) {
	e := silentEngine(50 * time.Millisecond)
	st := &stubStreamer{}
	e.streamer = st
	e.playing = true

	e.Pause()
	e.PlayFrom(-1, nil)

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1.0, effectiveGain(e), "the play restored the gain")
	e.mu.Lock()
	defer e.mu.Unlock()
	assert.True(t, e.playing, "the fade's stop step never fired")
	assert.NotNil(t, e.streamer)
	assert.Equal(t, 0, st.closed)
}

func TestPlayKeepsConfiguredGain(t *testing.T) {
	e := silentEngine(40 * time.Millisecond)
	e.SetVolume(0)

	e.PlayFrom(-1, nil)

	assert.Equal(t, 0.0, e.Volume(), "playback does not override a mute")
}
