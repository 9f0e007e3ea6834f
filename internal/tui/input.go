package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/experiment"
)

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" || key == "q" {
		m.quitting = true
		if m.controller != nil {
			m.controller.Stop()
		}
		m.engine.Stop()
		return m, tea.Quit
	}

	switch m.runner.State() {
	case experiment.StateError, experiment.StateFinished, experiment.StateRedirected:
		if key == "enter" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	case experiment.StateLoading:
		return m, nil
	}

	action, _ := m.runner.Current()
	if action == nil {
		return m, nil
	}

	switch action.View {
	case experiment.ViewExplainer, experiment.ViewScore, experiment.ViewInfo:
		if key == "enter" {
			return m, m.advanceCmd()
		}

	case experiment.ViewPlaylist:
		return m.handlePlaylistKey(key, action)

	case experiment.ViewTrial:
		return m.handleTrialKey(key, action)
	}

	return m, nil
}

func (m Model) handlePlaylistKey(key string, action *experiment.Action) (tea.Model, tea.Cmd) {
	data, err := action.Playlist()
	if err != nil || len(data.Playlists) == 0 {
		return m, nil
	}

	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(data.Playlists)-1 {
			m.cursor++
		}
	case "enter":
		choice := data.Playlists[m.cursor]
		return m, m.resultCmd(experiment.Fragment{
			"playlist":      choice.ID,
			"decision_time": m.decisionTime(),
		}, false)
	}
	return m, nil
}

func (m Model) handleTrialKey(key string, action *experiment.Action) (tea.Model, tea.Cmd) {
	trial, err := action.Trial()
	if err != nil {
		return m, nil
	}

	if m.game != nil {
		return m.handleGameKey(key)
	}

	// Number keys drive the playback grid directly.
	if m.controller != nil && trial.Playback != nil && len(trial.Playback.Sections) > 0 {
		if idx, ok := digitIndex(key, len(trial.Playback.Sections)); ok {
			ctrl := m.controller
			return m, func() tea.Msg {
				ctrl.PlaySection(idx)
				return nil
			}
		}
	}

	if len(trial.Feedback) == 0 {
		if key == "enter" {
			return m, m.resultCmd(experiment.Fragment{"decision_time": m.decisionTime()}, false)
		}
		return m, nil
	}

	question := trial.Feedback[0]
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(question.Choices)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor >= len(question.Choices) {
			return m, nil
		}
		return m, m.resultCmd(experiment.Fragment{
			question.Key:    question.Choices[m.cursor],
			"decision_time": m.decisionTime(),
		}, false)
	}
	return m, nil
}

func (m Model) handleGameKey(key string) (tea.Model, tea.Cmd) {
	game := m.game

	if game.InTurn() {
		if key == "enter" {
			return m, func() tea.Msg {
				if err := game.EndTurn(context.Background()); err != nil {
					log.Warn().Err(err).Msg("end turn failed")
				}
				return roundMsg{}
			}
		}
		return m, nil
	}

	if idx, ok := digitIndex(key, len(game.Board())); ok {
		return m, func() tea.Msg {
			return overlayMsg{err: game.Flip(context.Background(), idx)}
		}
	}
	return m, nil
}

// digitIndex maps keys "1".."9" to a zero-based index below n.
func digitIndex(key string, n int) (int, bool) {
	if len(key) != 1 || key[0] < '1' || key[0] > '9' {
		return 0, false
	}
	idx := int(key[0] - '1')
	if idx >= n {
		return 0, false
	}
	return idx, true
}
