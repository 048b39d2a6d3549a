// Command ladder-sync keeps the clan member registry in step with the ranked
// 1v1 ladder.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// modeOverride replaces EXECUTION_MODE when set.
var modeOverride string

var rootCmd = &cobra.Command{
	Use:   "ladder-sync",
	Short: "Sync ranked ladder standings into the clan member registry",
	Long: `Samples each region's ranked 1v1 rating distribution, refreshes every
registered member's current-season stats and summary, and records tracked
clan participants who have not registered yet.

Configuration is read from the environment (and a .env file when present).`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&modeOverride, "mode", "", "execution mode override: pool or inline")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}
