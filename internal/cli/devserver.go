package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Amsterdam-Music-Lab/MUSCLE-sub000/internal/devserver"
)

var devserverAddr string

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run a local development backend with a demo experiment",
	Long: `Serves the experiment HTTP protocol on a local port with a canned
demo script, so the player can be tried without a production backend.

Example:
  muscle devserver
  muscle play demo --base-url http://localhost:8000`,
	RunE: runDevserver,
}

func init() {
	devserverCmd.Flags().StringVar(&devserverAddr, "addr", ":8000", "listen address")
	rootCmd.AddCommand(devserverCmd)
}

func runDevserver(cmd *cobra.Command, args []string) error {
	srv := devserver.New()
	fmt.Printf("dev backend listening on %s\n", devserverAddr)
	if err := srv.Router().Run(devserverAddr); err != nil {
		return fmt.Errorf("dev server: %w", err)
	}
	return nil
}
