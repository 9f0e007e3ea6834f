// Package cli wires the cobra commands for the muscle player.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/logging"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	rootConfigPath string
	rootLogLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "muscle",
	Short: "Terminal player for MUSCLE listening experiments",
	Long: `Muscle runs hosted listening experiments in the terminal: it creates a
participant session against a MUSCLE backend, walks through the server-driven
rounds (explainers, playback trials, matching pairs, score screens) and
submits the answers.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(rootLogLevel, os.Stderr)
	},
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("muscle version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "",
		"path to the YAML config file (default: muscle.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", logging.LevelWarn,
		"log level: debug, info, warn or error")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
