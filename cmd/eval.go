package cmd

import (
	"path/filepath"

	"github.com/samuelfneumann/godqn/experiment"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

var (
	evalFlags   = newConfigFlags()
	weightsFile string // Default: the final checkpoint of the experiment
	episodes    int
	renderDir   string
)

// evalCmd evaluates a trained DQN agent greedily
var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate the greedy policy of a trained DQN agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := evalFlags.load(cmd.Flags())
		if err != nil {
			return err
		}

		weights := weightsFile
		if weights == "" {
			weights = filepath.Join(config.Dir(),
				experiment.WeightsFile+experiment.WeightsExt)
		}

		ctx, stop := interruptContext()
		defer stop()

		returns, err := experiment.Evaluate(ctx, config, weights, episodes,
			renderDir, log)
		if err != nil {
			return err
		}

		mean, std := stat.MeanStdDev(returns, nil)
		log.WithField("episodes", len(returns)).
			Infof("average return %.3f ± %.3f", mean, std)
		return nil
	},
}

func init() {
	evalFlags.register(evalCmd.Flags())
	evalCmd.Flags().StringVar(&weightsFile, "weights", "",
		"Weights checkpoint (default <out>/<exp-name>/<exp-name>_s<seed>/weights.bin)")
	evalCmd.Flags().IntVar(&episodes, "episodes", 10, "Number of episodes")
	evalCmd.Flags().StringVar(&renderDir, "render-dir", "",
		"Directory to render frames to, empty for no rendering")
	rootCmd.AddCommand(evalCmd)
}
