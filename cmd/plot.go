package cmd

import (
	"github.com/samuelfneumann/godqn/logger"
	"github.com/spf13/cobra"
)

var (
	progressFile string
	plotKey      string
	plotOut      string
)

// plotCmd plots a learning curve from a progress file
var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Plot a column of a training progress file",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := plotOut
		if out == "" {
			out = plotKey + ".png"
		}
		if err := logger.PlotProgress(progressFile, plotKey, out); err != nil {
			return err
		}
		log.WithField("file", out).Info("saved plot")
		return nil
	},
}

func init() {
	plotCmd.Flags().StringVar(&progressFile, "progress", logger.ProgressFile,
		"Progress file written during training")
	plotCmd.Flags().StringVar(&plotKey, "key", "avg_return", "Column to plot")
	plotCmd.Flags().StringVar(&plotOut, "output", "",
		"Output image (default <key>.png)")
	rootCmd.AddCommand(plotCmd)
}
