package cmd

import (
	"context"
	"errors"

	"github.com/samuelfneumann/godqn/experiment"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var trainFlags = newConfigFlags()

// trainCmd trains a DQN agent
var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a DQN agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := trainFlags.load(cmd.Flags())
		if err != nil {
			return err
		}

		ctx, stop := interruptContext()
		defer stop()

		stats, err := experiment.Run(ctx, config, log)
		if errors.Is(err, context.Canceled) {
			log.WithField("epochs", len(stats)).Warn("training interrupted")
			return nil
		}
		if err != nil {
			return err
		}

		if len(stats) > 0 {
			last := stats[len(stats)-1]
			log.WithFields(logrus.Fields{
				"avg_return": last.AvgReturn,
				"avg_ep_len": last.AvgEpisodeLength,
				"total_eps":  last.TotalEpisodes,
				"output_dir": config.Dir(),
			}).Info("training complete")
		}
		return nil
	},
}

func init() {
	trainFlags.register(trainCmd.Flags())
	rootCmd.AddCommand(trainCmd)
}
