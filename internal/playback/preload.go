// Package playback turns a round's declarative playback description into
// audio engine calls: preloading the round's sections, driving the play
// grids, and running the matching pairs game.
package playback

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/audio"
	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/experiment"
	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/logging"
)

var log = logging.Component("playback")

// defaultPreloadTimeout bounds how long a round may wait for its media.
const defaultPreloadTimeout = 15 * time.Second

// Preloader gates round start until the round's media is ready, whichever
// playback strategy the round requests.
type Preloader struct {
	engine    audio.Engine
	fetch     func(ctx context.Context, url string) error
	timeout   time.Duration
	mediaRoot string
}

// PreloaderOption configures a Preloader.
type PreloaderOption func(*Preloader)

// WithFetcher replaces the plain fetch used by the no-audio strategy.
func WithFetcher(f func(ctx context.Context, url string) error) PreloaderOption {
	return func(p *Preloader) { p.fetch = f }
}

// WithPreloadTimeout bounds a single Preload call. Zero keeps the default.
func WithPreloadTimeout(d time.Duration) PreloaderOption {
	return func(p *Preloader) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithPreloadMediaRoot resolves relative section URLs against root.
func WithPreloadMediaRoot(root string) PreloaderOption {
	return func(p *Preloader) { p.mediaRoot = root }
}

// NewPreloader returns a Preloader backed by the given engine.
func NewPreloader(engine audio.Engine, opts ...PreloaderOption) *Preloader {
	p := &Preloader{
		engine:  engine,
		fetch:   httpFetch,
		timeout: defaultPreloadTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func httpFetch(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status %d", url, res.StatusCode)
	}
	return nil
}

// Preload blocks until the sections are ready for the given strategy, or
// until the context or the configured timeout expires.
//
// NOAUDIO fetches every URL without decoding and waits for all of them.
// BUFFER decodes each section the engine has not cached yet and resolves
// when the last section by list order is decoded, never first-to-finish.
// Every other strategy stream-loads the sections one by one, resolving on
// the last ready signal.
func (p *Preloader) Preload(ctx context.Context, sections []experiment.Section, method experiment.PlayMethod) error {
	if len(sections) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var err error
	switch method {
	case experiment.MethodNoAudio:
		err = p.fetchAll(ctx, sections)
	case experiment.MethodBuffer:
		err = p.decodeBuffers(ctx, sections)
	default:
		err = p.streamSequentially(ctx, sections)
	}
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("preload timed out after %s: %w", p.timeout, ctx.Err())
	}
	return err
}

func (p *Preloader) fetchAll(ctx context.Context, sections []experiment.Section) error {
	var wg sync.WaitGroup
	errs := make([]error, len(sections))
	for i, s := range sections {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			errs[i] = p.fetch(ctx, url)
		}(i, s.ResolveURL(p.mediaRoot))
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// decodeBuffers starts a decode per uncached section and waits only for the
// last of them in list order. Earlier sections may still be decoding when
// this returns; their failures are logged, not surfaced.
func (p *Preloader) decodeBuffers(ctx context.Context, sections []experiment.Section) error {
	last := -1
	for i, s := range sections {
		if !p.engine.HasBuffer(s.URL) {
			last = i
		}
	}
	if last < 0 {
		return nil
	}

	done := make(chan error, 1)
	for i, s := range sections {
		if p.engine.HasBuffer(s.URL) {
			continue
		}
		go func(i int, key, src string) {
			err := p.engine.LoadBuffer(ctx, key, src)
			if i == last {
				done <- err
				return
			}
			if err != nil {
				log.Warn().Err(err).Str("src", src).Msg("buffer decode failed")
			}
		}(i, s.URL, s.ResolveURL(p.mediaRoot))
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Preloader) streamSequentially(ctx context.Context, sections []experiment.Section) error {
	for _, s := range sections {
		ready := make(chan struct{})
		var once sync.Once
		cancel := p.engine.LoadUntilAvailable(s.ResolveURL(p.mediaRoot), func() {
			once.Do(func() { close(ready) })
		})
		select {
		case <-ready:
		case <-ctx.Done():
			cancel()
			return ctx.Err()
		}
	}
	return nil
}

// Gate tracks the two independent conditions the preload view waits on: the
// minimum display duration and resource readiness. It advances exactly once,
// when both hold, in either arrival order.
type Gate struct {
	mu      sync.Mutex
	elapsed bool
	ready   bool
	fired   bool
	onNext  func()
}

// NewGate returns a Gate that calls onNext once both conditions are met.
func NewGate(onNext func()) *Gate {
	return &Gate{onNext: onNext}
}

// TimerElapsed records that the minimum display duration has passed.
func (g *Gate) TimerElapsed() {
	g.mu.Lock()
	g.elapsed = true
	fire := g.advanceLocked()
	g.mu.Unlock()
	if fire != nil {
		fire()
	}
}

// ResourceReady records that the round's media is ready.
func (g *Gate) ResourceReady() {
	g.mu.Lock()
	g.ready = true
	fire := g.advanceLocked()
	g.mu.Unlock()
	if fire != nil {
		fire()
	}
}

func (g *Gate) advanceLocked() func() {
	if !g.elapsed || !g.ready || g.fired {
		return nil
	}
	g.fired = true
	return g.onNext
}

// Overtime reports whether the timer has run out while the resource is
// still loading, the state the view renders as a pulsing indicator.
func (g *Gate) Overtime() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.elapsed && !g.ready
}

// Advanced reports whether onNext has fired.
func (g *Gate) Advanced() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fired
}
