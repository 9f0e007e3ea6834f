// Package tui renders the participant player in the terminal. It is purely
// presentational: round sequencing lives in internal/experiment and playback
// behavior in internal/playback; the model here maps views to screens and
// keys to the operations those packages expose.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/audio"
	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/experiment"
	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/logging"
	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/playback"
)

var log = logging.Component("tui")

type (
	// roundMsg signals that the runner may have dispatched a new action.
	roundMsg struct{}
	// preloadReadyMsg signals that the current round's media is ready.
	preloadReadyMsg struct{ key string }
	// preloadFailedMsg carries a preload error for the current round.
	preloadFailedMsg struct {
		key string
		err error
	}
	// playbackMsg carries a started or finished playback event.
	playbackMsg struct {
		index    int
		finished bool
	}
	// overlayMsg signals the matching pairs overlay opened or an error.
	overlayMsg struct{ err error }
	// tickMsg drives the preload countdown.
	tickMsg time.Time
)

// Options wires the model to its collaborators.
type Options struct {
	Runner         *experiment.Runner
	Engine         audio.Engine
	ParticipantID  string
	MediaRoot      string
	PreloadTimeout time.Duration
}

// Model is the bubbletea model for the participant player.
type Model struct {
	runner *experiment.Runner
	engine audio.Engine
	opts   Options

	// events funnels callbacks fired on playback goroutines into the
	// bubbletea loop.
	events chan tea.Msg

	width    int
	height   int
	quitting bool

	// Mounted view state, reset whenever the render key changes.
	key        string
	countdown  int
	gate       *playback.Gate
	controller *playback.Controller
	game       *playback.MatchingPairs
	preloadErr error
	cursor     int
	mounted    time.Time
	gameErr    error
}

// NewModel creates the player model. Call Run on a tea.Program to start it.
func NewModel(opts Options) Model {
	return Model{
		runner: opts.Runner,
		engine: opts.Engine,
		opts:   opts,
		events: make(chan tea.Msg, 16),
	}
}

// Init bootstraps the session and starts listening for playback events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.startCmd(), m.waitEvent(), tea.WindowSize())
}

func (m Model) startCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.runner.Start(context.Background(), m.opts.ParticipantID); err != nil {
			log.Error().Err(err).Msg("session bootstrap failed")
		}
		return roundMsg{}
	}
}

func (m Model) advanceCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.runner.Advance(context.Background()); err != nil {
			log.Error().Err(err).Msg("advance failed")
		}
		return roundMsg{}
	}
}

func (m Model) resultCmd(fragment experiment.Fragment, force bool) tea.Cmd {
	return func() tea.Msg {
		if err := m.runner.OnResult(context.Background(), fragment, force); err != nil {
			log.Error().Err(err).Msg("result submission failed")
		}
		return roundMsg{}
	}
}

// waitEvent relays one event from the playback goroutines into the loop.
func (m Model) waitEvent() tea.Cmd {
	return func() tea.Msg { return <-m.events }
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles messages: keys, round dispatches, preload and playback
// events, countdown ticks, and window resizes.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case roundMsg:
		return m.mountCurrent()

	case preloadReadyMsg:
		if msg.key != m.key {
			return m, nil // stale completion for a torn-down round
		}
		if m.gate != nil && !m.gate.Advanced() {
			m.gate.ResourceReady()
			if m.gate.Advanced() {
				return m, m.advanceCmd()
			}
		}
		return m, nil

	case preloadFailedMsg:
		if msg.key != m.key {
			return m, nil
		}
		m.preloadErr = msg.err
		return m, nil

	case playbackMsg:
		return m, m.waitEvent()

	case overlayMsg:
		if msg.err != nil {
			m.gameErr = msg.err
		}
		return m, nil

	case tickMsg:
		if m.currentView() != experiment.ViewPreload || m.gate == nil || m.gate.Advanced() {
			return m, nil
		}
		if m.countdown > 0 {
			m.countdown--
		}
		if m.countdown == 0 {
			m.gate.TimerElapsed()
			if m.gate.Advanced() {
				return m, m.advanceCmd()
			}
		}
		return m, tickCmd()
	}

	return m, nil
}

func (m Model) currentView() experiment.View {
	action, _ := m.runner.Current()
	if action == nil {
		return experiment.ViewLoading
	}
	return action.View
}

// mountCurrent resets per-view state when the render key changes, tearing
// down the previous round's playback first so two rounds never overlap.
func (m Model) mountCurrent() (tea.Model, tea.Cmd) {
	action, key := m.runner.Current()
	if action == nil || key == m.key {
		return m, nil
	}

	if m.controller != nil {
		m.controller.Stop()
	}
	m.key = key
	m.countdown = 0
	m.gate = nil
	m.controller = nil
	m.game = nil
	m.preloadErr = nil
	m.cursor = 0
	m.gameErr = nil
	m.mounted = time.Now()

	switch action.View {
	case experiment.ViewPreload:
		return m.mountPreload(action)
	case experiment.ViewTrial:
		return m.mountTrial(action)
	}
	return m, nil
}

func (m Model) mountPreload(action *experiment.Action) (tea.Model, tea.Cmd) {
	data, err := action.Preload()
	if err != nil {
		log.Warn().Err(err).Msg("bad preload payload")
		return m, nil
	}

	m.countdown = int(data.Duration)
	if m.countdown <= 0 {
		m.countdown = 3
	}
	m.gate = playback.NewGate(func() {})

	key := m.key
	preloader := playback.NewPreloader(m.engine,
		playback.WithPreloadTimeout(m.opts.PreloadTimeout),
		playback.WithPreloadMediaRoot(m.opts.MediaRoot))
	sections := data.Sections
	method := data.PlayMethod

	preload := func() tea.Msg {
		if err := preloader.Preload(context.Background(), sections, method); err != nil {
			return preloadFailedMsg{key: key, err: err}
		}
		return preloadReadyMsg{key: key}
	}
	return m, tea.Batch(preload, tickCmd())
}

func (m Model) mountTrial(action *experiment.Action) (tea.Model, tea.Cmd) {
	trial, err := action.Trial()
	if err != nil || trial.Playback == nil {
		return m, nil
	}
	spec := *trial.Playback

	events := m.events
	m.controller = playback.NewController(m.engine, spec,
		playback.WithMediaRoot(m.opts.MediaRoot),
		playback.OnStarted(func(i int) { events <- playbackMsg{index: i} }),
		playback.OnFinished(func(i int) { events <- playbackMsg{index: i, finished: true} }))

	if spec.View == experiment.PlayerMatchingPairs {
		m.game = playback.NewMatchingPairs(spec.Sections, m.runner.IntermediateScore,
			func(ctx context.Context) error {
				return m.runner.OnResult(ctx, experiment.Fragment{}, true)
			})
	}

	var cmds []tea.Cmd
	if spec.View == experiment.PlayerAutoplay {
		ctrl := m.controller
		cmds = append(cmds, func() tea.Msg {
			ctrl.PlaySection(0)
			return nil
		})
	}
	return m, tea.Batch(cmds...)
}

// decisionTime returns seconds since the current view was mounted, the
// value result fragments report as decision_time.
func (m Model) decisionTime() float64 {
	return time.Since(m.mounted).Seconds()
}
