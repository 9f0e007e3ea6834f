package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/logging"
)

var log = logging.Component("audio")

// speakerBuffer is the output buffer length the speaker is initialized
// with. It is the dominant term of the device latency.
const speakerBuffer = 100 * time.Millisecond

// Options configures a BeepEngine.
type Options struct {
	// SampleRate of the output device. Zero defaults to 44100.
	SampleRate beep.SampleRate
	// FadeDuration is the pause fade-out length. Zero defaults to 100ms.
	FadeDuration time.Duration
	// BaseLatency is added to the speaker buffer when reporting Latency.
	BaseLatency time.Duration
	// HTTPClient fetches remote sources. Nil uses http.DefaultClient.
	HTTPClient *http.Client
}

// BeepEngine is the speaker-backed Engine. Construct exactly one per
// process; the speaker is global underneath.
type BeepEngine struct {
	sr     beep.SampleRate
	fade   time.Duration
	base   time.Duration
	client *http.Client

	speakerOK bool

	mu         sync.Mutex
	src        string
	streamer   beep.StreamSeekCloser
	format     beep.Format
	playing    bool
	volume     float64
	fadeFactor float64
	fadeGen    int
	playGen    int
	buffers    map[string]*beep.Buffer
}

// NewBeepEngine initializes the speaker and returns the engine. When the
// output device cannot be opened the engine still works for bookkeeping but
// reports CompatibleDevice false and produces no sound.
func NewBeepEngine(opts Options) *BeepEngine {
	sr := opts.SampleRate
	if sr == 0 {
		sr = beep.SampleRate(44100)
	}
	fade := opts.FadeDuration
	if fade == 0 {
		fade = 100 * time.Millisecond
	}
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	e := &BeepEngine{
		sr:         sr,
		fade:       fade,
		base:       opts.BaseLatency,
		client:     client,
		volume:     1,
		fadeFactor: 1,
		buffers:    make(map[string]*beep.Buffer),
	}

	if err := speaker.Init(sr, sr.N(speakerBuffer)); err != nil {
		log.Error().Err(err).Msg("speaker init failed, playback disabled")
	} else {
		e.speakerOK = true
	}
	return e
}

// open fetches a source by URL or filesystem path.
func (e *BeepEngine) open(ctx context.Context, src string) (io.ReadCloser, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, fmt.Errorf("request %s: %w", src, err)
		}
		res, err := e.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", src, err)
		}
		if res.StatusCode != http.StatusOK {
			res.Body.Close()
			return nil, fmt.Errorf("fetch %s: status %d", src, res.StatusCode)
		}
		return res.Body, nil
	}
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", src, err)
	}
	return f, nil
}

// Load implements Engine.
func (e *BeepEngine) Load(src string) error {
	e.mu.Lock()
	if e.src == src && e.streamer != nil && !e.playing {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	e.Stop()

	rc, err := e.open(context.Background(), src)
	if err != nil {
		return err
	}
	streamer, format, err := mp3.Decode(rc)
	if err != nil {
		rc.Close()
		return fmt.Errorf("decode %s: %w", src, err)
	}

	e.mu.Lock()
	e.src = src
	e.streamer = streamer
	e.format = format
	e.mu.Unlock()
	return nil
}

// Play implements Engine.
func (e *BeepEngine) Play(done func()) {
	e.PlayFrom(-1, done)
}

// PlayFrom implements Engine. A negative offset keeps the current playhead.
// The gain stays whatever SetVolume last set, so a muted round never emits
// a sample at full volume.
func (e *BeepEngine) PlayFrom(offset time.Duration, done func()) {
	e.mu.Lock()
	e.fadeGen++ // a fade scheduled by a previous Pause must not clobber this play
	e.fadeFactor = 1
	st := e.streamer
	format := e.format
	if st == nil || !e.speakerOK {
		e.mu.Unlock()
		return
	}
	e.playGen++
	gen := e.playGen
	e.playing = true
	e.mu.Unlock()

	speaker.Clear()
	if offset >= 0 {
		n := format.SampleRate.N(offset)
		if n < st.Len() {
			if err := st.Seek(n); err != nil {
				log.Warn().Err(err).Msg("seek failed")
			}
		}
	}

	var s beep.Streamer = st
	if format.SampleRate != e.sr {
		s = beep.Resample(4, format.SampleRate, e.sr, s)
	}
	s = &gainStreamer{s: s, e: e}

	speaker.Play(beep.Seq(s, beep.Callback(func() {
		e.mu.Lock()
		stale := e.playGen != gen
		if !stale {
			e.playing = false
		}
		e.mu.Unlock()
		if !stale && done != nil {
			done()
		}
	})))
}

// Pause implements Engine: fade to silence, then stop. The fade attenuates
// a separate factor so the SetVolume gain survives a later Play.
func (e *BeepEngine) Pause() {
	e.mu.Lock()
	if !e.playing {
		e.mu.Unlock()
		return
	}
	e.fadeGen++
	gen := e.fadeGen
	start := e.fadeFactor
	e.mu.Unlock()

	const steps = 5
	interval := e.fade / steps
	for i := 1; i <= steps; i++ {
		step := i
		time.AfterFunc(interval*time.Duration(step), func() {
			e.mu.Lock()
			if e.fadeGen != gen {
				e.mu.Unlock()
				return
			}
			e.fadeFactor = start * float64(steps-step) / steps
			last := step == steps
			e.mu.Unlock()
			if last {
				e.Stop()
			}
		})
	}
}

// Stop implements Engine. Safe to call repeatedly and while stopped.
func (e *BeepEngine) Stop() {
	if e.speakerOK {
		speaker.Clear()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playGen++ // a cleared stream must not fire its done callback
	e.fadeGen++ // nor may a pending fade step touch a stopped engine
	e.fadeFactor = 1
	if e.streamer != nil {
		e.streamer.Close()
		e.streamer = nil
	}
	e.playing = false
}

// SetVolume implements Engine, clamping to [0, 1].
func (e *BeepEngine) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = clamp01(v)
}

// Volume implements Engine.
func (e *BeepEngine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// Position implements Engine.
func (e *BeepEngine) Position() time.Duration {
	if e.speakerOK {
		// Same lock order as the mixer: speaker lock first, engine mutex second.
		speaker.Lock()
		defer speaker.Unlock()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.streamer == nil {
		return 0
	}
	return e.format.SampleRate.D(e.streamer.Position())
}

// LoadUntilAvailable implements Engine.
func (e *BeepEngine) LoadUntilAvailable(src string, onReady func()) (cancel func()) {
	e.mu.Lock()
	ready := e.src == src && e.streamer != nil
	e.mu.Unlock()

	if ready {
		if onReady != nil {
			onReady()
		}
		return func() {}
	}

	var canceled atomic.Bool
	go func() {
		if err := e.Load(src); err != nil {
			log.Warn().Err(err).Str("src", src).Msg("stream load failed")
			return
		}
		if !canceled.Load() && onReady != nil {
			onReady()
		}
	}()
	return func() { canceled.Store(true) }
}

// LoadBuffer implements Engine. Decoding happens once per key.
func (e *BeepEngine) LoadBuffer(ctx context.Context, key, src string) error {
	e.mu.Lock()
	_, cached := e.buffers[key]
	e.mu.Unlock()
	if cached {
		return nil
	}

	rc, err := e.open(ctx, src)
	if err != nil {
		return err
	}
	streamer, format, err := mp3.Decode(rc)
	if err != nil {
		rc.Close()
		return fmt.Errorf("decode %s: %w", src, err)
	}
	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	streamer.Close()

	e.mu.Lock()
	e.buffers[key] = buf
	e.mu.Unlock()
	return nil
}

// HasBuffer implements Engine.
func (e *BeepEngine) HasBuffer(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.buffers[key]
	return ok
}

// PlayBuffer implements Engine.
func (e *BeepEngine) PlayBuffer(key string, offset time.Duration, done func()) error {
	e.mu.Lock()
	buf, ok := e.buffers[key]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("no buffer loaded for %q", key)
	}
	if !e.speakerOK {
		e.mu.Unlock()
		return fmt.Errorf("output device unavailable")
	}
	e.fadeGen++
	e.fadeFactor = 1
	e.playGen++
	gen := e.playGen
	e.playing = true
	e.mu.Unlock()

	format := buf.Format()
	from := format.SampleRate.N(offset)
	if from < 0 || from >= buf.Len() {
		from = 0
	}

	var s beep.Streamer = buf.Streamer(from, buf.Len())
	if format.SampleRate != e.sr {
		s = beep.Resample(4, format.SampleRate, e.sr, s)
	}
	s = &gainStreamer{s: s, e: e}

	speaker.Clear()
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		e.mu.Lock()
		stale := e.playGen != gen
		if !stale {
			e.playing = false
		}
		e.mu.Unlock()
		if !stale && done != nil {
			done()
		}
	})))
	return nil
}

// Latency implements Engine.
func (e *BeepEngine) Latency() time.Duration {
	return speakerBuffer + e.base
}

// CompatibleDevice implements Engine.
func (e *BeepEngine) CompatibleDevice() bool {
	return e.speakerOK
}

var _ Engine = (*BeepEngine)(nil)

// gainStreamer applies the effective gain, the SetVolume value scaled by
// the pause fade factor, read under the engine mutex so volume and fade
// changes take effect on the next stream call.
type gainStreamer struct {
	s beep.Streamer
	e *BeepEngine
}

func (g *gainStreamer) Stream(samples [][2]float64) (int, bool) {
	n, ok := g.s.Stream(samples)
	g.e.mu.Lock()
	gain := g.e.volume * g.e.fadeFactor
	g.e.mu.Unlock()
	for i := range n {
		samples[i][0] *= gain
		samples[i][1] *= gain
	}
	return n, ok
}

func (g *gainStreamer) Err() error { return g.s.Err() }
