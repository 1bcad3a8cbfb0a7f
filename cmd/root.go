// Package cmd implements the dqn command line interface
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logLevel string // Log verbosity level
	log      = logrus.New()
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:          "dqn",
	Short:        "Train and evaluate Deep Q-Networks",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q", logLevel)
		}
		log.SetLevel(level)
		return nil
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// interruptContext returns a context which is cancelled on SIGINT
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func init() {
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info",
		"Log level (trace, debug, info, warn, error, fatal, panic)")
}
