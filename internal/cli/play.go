package cli

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/api"
	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/audio"
	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/config"
	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/experiment"
	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/logging"
	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/store"
	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/tui"
)

var (
	playBaseURL     string
	playPlaylist    string
	playParticipant string
)

var playCmd = &cobra.Command{
	Use:   "play [experiment-slug]",
	Short: "Run an experiment session in the terminal",
	Long: `Creates a participant session for the given experiment and plays
through its rounds. The slug can also come from the config file.

Example:
  muscle play beat_alignment
  muscle play beat_alignment --playlist 12
  muscle play --config muscle.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVar(&playBaseURL, "base-url", "", "backend base URL (overrides config)")
	playCmd.Flags().StringVar(&playPlaylist, "playlist", "", "playlist id to request")
	playCmd.Flags().StringVar(&playParticipant, "participant", "", "returning participant id")
	rootCmd.AddCommand(playCmd)
}

// resolvePlayConfig merges the config file with the play command's flags and
// arguments. Split out from runPlay for testability.
func resolvePlayConfig(args []string) (*config.Config, error) {
	path := rootConfigPath
	if path == "" {
		path = "muscle.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if len(args) > 0 {
		cfg.Experiment.Slug = args[0]
	}
	if playBaseURL != "" {
		cfg.API.BaseURL = playBaseURL
	}
	if playPlaylist != "" {
		cfg.Experiment.PlaylistID = playPlaylist
	}
	if playParticipant != "" {
		cfg.Experiment.ParticipantID = playParticipant
	}

	if cfg.Experiment.Slug == "" {
		return nil, fmt.Errorf("no experiment slug: pass one as an argument or set experiment.slug in the config")
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := resolvePlayConfig(args)
	if err != nil {
		return err
	}
	log := logging.Component("cli")

	profiles, err := store.DefaultStore()
	if err != nil {
		log.Warn().Err(err).Msg("profile store unavailable")
		profiles = nil
	}
	if cfg.Experiment.ParticipantID == "" && profiles != nil {
		profile, err := profiles.Load()
		if err != nil {
			log.Warn().Err(err).Msg("could not read stored profile")
		} else if profile.ParticipantID != "" {
			cfg.Experiment.ParticipantID = profile.ParticipantID
			log.Debug().Str("participant", profile.ParticipantID).Msg("reusing stored participant")
		}
	}

	client := api.New(cfg.API.BaseURL, cfg.API.Timeout)
	defer client.Close()

	engine := audio.NewBeepEngine(audio.Options{
		FadeDuration: cfg.Playback.FadeDuration,
		BaseLatency:  cfg.Playback.BaseLatency,
	})
	defer engine.Stop()

	runner := experiment.NewRunner(client, cfg.Experiment.Slug, cfg.Experiment.PlaylistID)

	model := tui.NewModel(tui.Options{
		Runner:         runner,
		Engine:         engine,
		ParticipantID:  cfg.Experiment.ParticipantID,
		MediaRoot:      cfg.Media.RootURL,
		PreloadTimeout: cfg.Playback.PreloadTimeout,
	})

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("player exited: %w", err)
	}

	if profiles != nil {
		saveProfile(profiles, runner, cfg.Experiment.Slug, log)
	}
	return nil
}

// saveProfile records the participant identity and, when the session ran to
// completion, a history entry. Failures only warn: losing the profile never
// fails a finished run.
func saveProfile(profiles *store.Store, runner *experiment.Runner, slug string, log zerolog.Logger) {
	participant := runner.Participant()
	if participant == nil {
		return
	}
	if err := profiles.RememberParticipant(participant.Hash); err != nil {
		log.Warn().Err(err).Msg("could not store participant")
	}

	if runner.State() != experiment.StateFinished {
		return
	}
	session := runner.Session()
	if session == nil {
		return
	}
	rec := store.SessionRecord{
		Slug:       slug,
		SessionID:  session.ID,
		FinishedAt: time.Now().UTC(),
	}
	if action, _ := runner.Current(); action != nil {
		if final, err := action.Final(); err == nil {
			rec.Score = final.Score
		}
	}
	if err := profiles.RecordSession(rec); err != nil {
		log.Warn().Err(err).Msg("could not record session")
	}
}
