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

func sections(urls ...string) []experiment.Section {
	out := make([]experiment.Section, len(urls))
	for i, u := range urls {
		out[i] = experiment.Section{ID: i + 1, URL: u}
	}
	return out
}

func TestPreloadNoAudioFetchesWithoutDecoding(t *testing.T) {
	engine := audiotest.NewFake()
	var mu sync.Mutex
	var fetched []string
	p := NewPreloader(engine, WithFetcher(func(ctx context.Context, url string) error {
		mu.Lock()
		defer mu.Unlock()
		fetched = append(fetched, url)
		return nil
	}))

	err := p.Preload(context.Background(), sections("a.mp3", "b.mp3"), experiment.MethodNoAudio)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a.mp3", "b.mp3"}, fetched)
	assert.Empty(t, engine.BufferLoads, "no-audio rounds never decode")
	assert.Empty(t, engine.Loads)
}

func TestPreloadBufferResolvesOnLastByListOrder(t *testing.T) {
	engine := audiotest.NewFake()
	release := engine.BlockBuffer("a.mp3")
	defer release()
	p := NewPreloader(engine)

	done := make(chan error, 1)
	go func() {
		done <- p.Preload(context.Background(), sections("a.mp3", "b.mp3"), experiment.MethodBuffer)
	}()

	// The last section decodes immediately; the earlier one is still
	// stalled, which must not hold the round back.
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("preload did not resolve on the last section")
	}
	assert.True(t, engine.HasBuffer("b.mp3"))
}

func TestPreloadBufferWaitsForLastSection(t *testing.T) {
	engine := audiotest.NewFake()
	release := engine.BlockBuffer("b.mp3")
	p := NewPreloader(engine)

	done := make(chan error, 1)
	go func() {
		done <- p.Preload(context.Background(), sections("a.mp3", "b.mp3"), experiment.MethodBuffer)
	}()

	select {
	case <-done:
		t.Fatal("resolved before the last section was decoded")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("preload did not resolve after release")
	}
}

func TestPreloadBufferSkipsCachedSections(t *testing.T) {
	engine := audiotest.NewFake()
	p := NewPreloader(engine)

	require.NoError(t, p.Preload(context.Background(), sections("a.mp3"), experiment.MethodBuffer))
	require.NoError(t, p.Preload(context.Background(), sections("a.mp3", "b.mp3"), experiment.MethodBuffer))

	assert.Equal(t, []string{"a.mp3", "b.mp3"}, engine.BufferLoads, "cached section decoded once")
}

func TestPreloadBufferAllCachedResolvesImmediately(t *testing.T) {
	engine := audiotest.NewFake()
	p := NewPreloader(engine)
	require.NoError(t, p.Preload(context.Background(), sections("a.mp3"), experiment.MethodBuffer))

	err := p.Preload(context.Background(), sections("a.mp3"), experiment.MethodBuffer)
	require.NoError(t, err)
	assert.Len(t, engine.BufferLoads, 1)
}

func TestPreloadStreamLoadsSequentially(t *testing.T) {
	engine := audiotest.NewFake()
	p := NewPreloader(engine)

	done := make(chan error, 1)
	go func() {
		done <- p.Preload(context.Background(), sections("a.mp3", "b.mp3"), experiment.MethodStream)
	}()

	require.Eventually(t, func() bool {
		return len(engine.LoadedSources()) == 1
	}, time.Second, 5*time.Millisecond, "first section should load before the second starts")

	engine.CompleteLoad("a.mp3")
	require.Eventually(t, func() bool {
		return len(engine.LoadedSources()) == 2
	}, time.Second, 5*time.Millisecond)

	engine.CompleteLoad("b.mp3")
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("preload did not resolve after both sections loaded")
	}
}

func TestPreloadStreamTimesOut(t *testing.T) {
	engine := audiotest.NewFake()
	p := NewPreloader(engine, WithPreloadTimeout(30*time.Millisecond))

	err := p.Preload(context.Background(), sections("stalled.mp3"), experiment.MethodStream)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestPreloadEmptySectionList(t *testing.T) {
	p := NewPreloader(audiotest.NewFake())
	assert.NoError(t, p.Preload(context.Background(), nil, experiment.MethodBuffer))
}

func TestGateWaitsForBothConditions(t *testing.T) {
	t.Run("timer first", func(t *testing.T) {
		calls := 0
		g := NewGate(func() { calls++ })

		g.TimerElapsed()
		assert.Equal(t, 0, calls)
		assert.True(t, g.Overtime(), "timer done, resource pending shows overtime")

		g.ResourceReady()
		assert.Equal(t, 1, calls)
		assert.False(t, g.Overtime())
	})

	t.Run("resource first", func(t *testing.T) {
		calls := 0
		g := NewGate(func() { calls++ })

		g.ResourceReady()
		assert.Equal(t, 0, calls, "still waiting for the minimum display time")
		assert.False(t, g.Overtime())

		g.TimerElapsed()
		assert.Equal(t, 1, calls)
	})
}

func TestGateFiresOnce(t *testing.T) {
	calls := 0
	g := NewGate(func() { calls++ })

	g.TimerElapsed()
	g.ResourceReady()
	g.ResourceReady()
	g.TimerElapsed()

	assert.Equal(t, 1, calls)
	assert.True(t, g.Advanced())
}
