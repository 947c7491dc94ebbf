package cli

import (
	"github.com/spf13/cobra"

	"stage-scanner/internal/app"
)

var (
	scanOutput    string
	scanNoDiscord bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <watchlist.csv>",
	Short: "Run a single scan over a watchlist CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ScanOptions{
			WatchlistPath: args[0],
			OutputPath:    scanOutput,
			NoNotify:      scanNoDiscord,
		}
		return getApp().Scan(cmd.Context(), opts)
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanOutput, "output", "", "Results JSON path (default from config)")
	scanCmd.Flags().BoolVar(&scanNoDiscord, "no-discord", false, "Skip Discord notifications")
}
