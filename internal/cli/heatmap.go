package cli

import (
	"github.com/spf13/cobra"
)

var heatmapCmd = &cobra.Command{
	Use:   "heatmap",
	Short: "Print the 1-month sector performance heatmap",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Heatmap(cmd.Context())
	},
}
