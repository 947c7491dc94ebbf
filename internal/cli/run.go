package cli

import (
	"github.com/spf13/cobra"

	"stage-scanner/internal/app"
)

var (
	runOutput    string
	runNoDiscord bool
)

var runCmd = &cobra.Command{
	Use:   "run <watchlist.csv>",
	Short: "Run scheduled scans until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ScanOptions{
			WatchlistPath: args[0],
			OutputPath:    runOutput,
			NoNotify:      runNoDiscord,
		}
		return getApp().Run(cmd.Context(), opts)
	},
}

func init() {
	runCmd.Flags().StringVar(&runOutput, "output", "", "Results JSON path (default from config)")
	runCmd.Flags().BoolVar(&runNoDiscord, "no-discord", false, "Skip Discord notifications")
}
