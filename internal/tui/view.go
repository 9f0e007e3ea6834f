package tui

import (
	"fmt"
	"strings"

	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/experiment"
	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/playback"
)

// View renders the screen for the current round action.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	switch m.runner.State() {
	case experiment.StateLoading:
		return frameStyle.Render(m.renderTitle() + "\n\n" + dimStyle.Render("Loading experiment..."))
	case experiment.StateError:
		return frameStyle.Render(m.renderTitle() + "\n\n" +
			errorStyle.Render(m.runner.ErrorMessage()) + "\n\n" +
			helpStyle.Render("[Enter] Close"))
	}

	action, _ := m.runner.Current()
	if action == nil {
		return frameStyle.Render(m.renderTitle() + "\n\n" + dimStyle.Render("Loading..."))
	}

	var body string
	switch action.View {
	case experiment.ViewExplainer:
		body = m.renderExplainer(action)
	case experiment.ViewPreload:
		body = m.renderPreload(action)
	case experiment.ViewTrial:
		body = m.renderTrial(action)
	case experiment.ViewScore:
		body = m.renderScore(action)
	case experiment.ViewFinal:
		body = m.renderFinal(action)
	case experiment.ViewPlaylist:
		body = m.renderPlaylist(action)
	case experiment.ViewRedirect:
		body = m.renderRedirect(action)
	case experiment.ViewInfo:
		body = m.renderInfo(action)
	default:
		// Unknown discriminants render a diagnostic rather than crash.
		body = errorStyle.Render(fmt.Sprintf("Unknown view: %q", string(action.View)))
	}

	return frameStyle.Render(m.renderTitle() + "\n\n" + body)
}

func (m Model) renderTitle() string {
	return titleStyle.Render("M U S C L E")
}

func (m Model) renderExplainer(action *experiment.Action) string {
	data, err := action.Explainer()
	if err != nil {
		return errorStyle.Render(err.Error())
	}

	var b strings.Builder
	b.WriteString(instructionStyle.Render(data.Instruction))
	b.WriteString("\n")
	for _, step := range data.Steps {
		b.WriteString("\n")
		if step.Number > 0 {
			b.WriteString(accentStyle.Render(fmt.Sprintf("%d. ", step.Number)))
		} else {
			b.WriteString(dimStyle.Render("- "))
		}
		b.WriteString(instructionStyle.Render(step.Description))
	}
	label := data.ButtonLabel
	if label == "" {
		label = "Continue"
	}
	b.WriteString("\n\n" + helpStyle.Render("[Enter] "+label))
	return b.String()
}

func (m Model) renderPreload(action *experiment.Action) string {
	data, err := action.Preload()
	if err != nil {
		return errorStyle.Render(err.Error())
	}

	instruction := data.Instruction
	if instruction == "" {
		instruction = "Get ready..."
	}

	var b strings.Builder
	b.WriteString(instructionStyle.Render(instruction))
	b.WriteString("\n\n")
	switch {
	case m.preloadErr != nil:
		b.WriteString(errorStyle.Render(experiment.ErrLoadFailed))
	case m.gate != nil && m.gate.Overtime():
		// Timer ran out but the media is still loading.
		b.WriteString(overtimeStyle.Render("..."))
	case m.countdown > 0:
		b.WriteString(scoreStyle.Render(fmt.Sprintf("%d", m.countdown)))
	default:
		b.WriteString(dimStyle.Render("..."))
	}
	return b.String()
}

func (m Model) renderTrial(action *experiment.Action) string {
	trial, err := action.Trial()
	if err != nil {
		return errorStyle.Render(err.Error())
	}

	var parts []string
	if trial.Title != "" {
		parts = append(parts, accentStyle.Render(trial.Title))
	}
	if trial.Playback != nil {
		if trial.Playback.Instruction != "" {
			parts = append(parts, instructionStyle.Render(trial.Playback.Instruction))
		}
		if m.game != nil {
			parts = append(parts, m.renderBoard())
		} else {
			parts = append(parts, m.renderSections(trial.Playback))
		}
	}
	if m.game == nil {
		parts = append(parts, m.renderFeedback(trial))
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) renderSections(spec *experiment.PlaybackSpec) string {
	lines := make([]string, 0, len(spec.Sections))
	for i, s := range spec.Sections {
		label := s.Label
		if label == "" {
			label = fmt.Sprintf("Sound %d", i+1)
		}
		marker := "  "
		style := instructionStyle
		switch {
		case m.controller != nil && m.controller.PlayingIndex() == i:
			marker = " "
			style = playingStyle
		case m.controller != nil && m.controller.Disabled(i):
			style = dimStyle
		}
		lines = append(lines, style.Render(fmt.Sprintf("%s[%d] %s", marker, i+1, label)))
	}
	lines = append(lines, "", helpStyle.Render("[1-9] Play/Stop"))
	return strings.Join(lines, "\n")
}

func (m Model) renderFeedback(trial *experiment.TrialData) string {
	if len(trial.Feedback) == 0 {
		return helpStyle.Render("[Enter] Continue")
	}
	q := trial.Feedback[0]

	var b strings.Builder
	b.WriteString(instructionStyle.Render(q.Question))
	for i, choice := range q.Choices {
		b.WriteString("\n")
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + choice))
		} else {
			b.WriteString(instructionStyle.Render("  " + choice))
		}
	}
	b.WriteString("\n\n" + helpStyle.Render("[Up/Down] Select  [Enter] Answer"))
	return b.String()
}

// renderBoard draws the matching pairs grid, four cards per row.
func (m Model) renderBoard() string {
	board := m.game.Board()

	var b strings.Builder
	for i, card := range board {
		if i > 0 && i%4 == 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderCard(i, card))
		b.WriteString(" ")
	}

	b.WriteString("\n\n")
	b.WriteString(scoreStyle.Render(fmt.Sprintf("Score: %.0f", m.game.Total())))

	switch {
	case m.gameErr != nil:
		b.WriteString("\n" + errorStyle.Render(playback.ScoreUnavailableMessage))
	case m.game.InTurn():
		b.WriteString("\n" + accentStyle.Render(fmt.Sprintf("%+.0f points", m.game.TurnScore())))
		b.WriteString("\n" + helpStyle.Render("[Enter] Next turn"))
	default:
		b.WriteString("\n" + helpStyle.Render("[1-9] Flip card"))
	}
	return b.String()
}

func (m Model) renderCard(i int, card experiment.Section) string {
	label := fmt.Sprintf("[%d]", i+1)
	switch {
	case card.Inactive:
		return dimStyle.Render(" ✓ ")
	case card.Turned:
		return playingStyle.Render(label)
	default:
		return instructionStyle.Render(label)
	}
}

func (m Model) renderScore(action *experiment.Action) string {
	data, err := action.Score()
	if err != nil {
		return errorStyle.Render(err.Error())
	}

	var b strings.Builder
	b.WriteString(scoreStyle.Render(fmt.Sprintf("%+.0f", data.Score)))
	if data.ScoreMessage != "" {
		b.WriteString("  " + instructionStyle.Render(data.ScoreMessage))
	}
	if data.TotalScore != 0 {
		b.WriteString("\n" + dimStyle.Render(fmt.Sprintf("Total: %.0f", data.TotalScore)))
	}
	next := data.Texts.Next
	if next == "" {
		next = "Continue"
	}
	b.WriteString("\n\n" + helpStyle.Render("[Enter] "+next))
	return b.String()
}

func (m Model) renderFinal(action *experiment.Action) string {
	data, err := action.Final()
	if err != nil {
		return errorStyle.Render(err.Error())
	}

	var b strings.Builder
	b.WriteString(instructionStyle.Render(data.FinalText))
	if data.ShowScore {
		b.WriteString("\n\n" + scoreStyle.Render(fmt.Sprintf("Final score: %.0f", data.Score)))
	}
	if data.Rank != "" {
		b.WriteString("\n" + accentStyle.Render("Rank: "+data.Rank))
	}
	b.WriteString("\n\n" + helpStyle.Render("[Enter] Close"))
	return b.String()
}

func (m Model) renderPlaylist(action *experiment.Action) string {
	data, err := action.Playlist()
	if err != nil {
		return errorStyle.Render(err.Error())
	}

	instruction := data.Instruction
	if instruction == "" {
		instruction = "Choose a playlist"
	}

	var b strings.Builder
	b.WriteString(instructionStyle.Render(instruction))
	for i, pl := range data.Playlists {
		b.WriteString("\n")
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + pl.Name))
		} else {
			b.WriteString(instructionStyle.Render("  " + pl.Name))
		}
	}
	b.WriteString("\n\n" + helpStyle.Render("[Up/Down] Select  [Enter] Choose"))
	return b.String()
}

func (m Model) renderRedirect(action *experiment.Action) string {
	data, err := action.Redirect()
	if err != nil {
		return errorStyle.Render(err.Error())
	}
	return instructionStyle.Render("Continue at:") + "\n" +
		accentStyle.Render(data.URL) + "\n\n" +
		helpStyle.Render("[Enter] Close")
}

func (m Model) renderInfo(action *experiment.Action) string {
	data, err := action.Info()
	if err != nil {
		return errorStyle.Render(err.Error())
	}

	var b strings.Builder
	if data.Heading != "" {
		b.WriteString(accentStyle.Render(data.Heading) + "\n\n")
	}
	b.WriteString(instructionStyle.Render(data.Body))
	label := data.ButtonLabel
	if label == "" {
		label = "Continue"
	}
	b.WriteString("\n\n" + helpStyle.Render("[Enter] "+label))
	return b.String()
}
