package experiment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samuelfneumann/godqn/agent/nonlinear/discrete/deepq"
	"github.com/samuelfneumann/godqn/environment"
	"github.com/samuelfneumann/godqn/environment/classiccontrol/cartpole"
	"github.com/samuelfneumann/godqn/experiment/checkpointer"
	"github.com/samuelfneumann/godqn/experiment/tracker"
	"github.com/samuelfneumann/godqn/logger"
	"github.com/sirupsen/logrus"
)

// Names of the files saved in the experiment directory
const (
	ReturnsFile        = "returns.bin"
	EpisodeLengthsFile = "episode_lengths.bin"
	WeightsFile        = "weights"
	WeightsExt         = ".bin"
	FramesDir          = "frames"
	FinalFramesDir     = "final_frames"
)

// frameRenderable is an environment which renders frames to disk once
// given a renderer
type frameRenderable interface {
	SetRenderer(r *cartpole.FrameRenderer)
}

// setFrameRenderer renders e to dir
func setFrameRenderer(e environment.Environment, dir string) error {
	r, ok := e.(frameRenderable)
	if !ok {
		return fmt.Errorf("setFrameRenderer: environment cannot be rendered")
	}

	renderer, err := cartpole.NewFrameRenderer(dir)
	if err != nil {
		return fmt.Errorf("setFrameRenderer: %v", err)
	}
	r.SetRenderer(renderer)
	return nil
}

// Run runs the experiment described by c, saving its progress,
// configuration, episodic data, and network weights to c.Dir().
//
// If ctx is cancelled, training stops after the current environment
// step, the data tracked so far is saved, and the error of ctx is
// returned along with the statistics of all completed epochs.
func Run(ctx context.Context, c Config,
	log *logrus.Logger) ([]deepq.EpochStatistics, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	e, err := c.Env.Create(c.Agent.Seed)
	if err != nil {
		return nil, fmt.Errorf("run: could not create environment: %v", err)
	}
	q, target, err := newNetworks(e, c.Agent)
	if err != nil {
		return nil, err
	}

	dir := c.Dir()
	tab, err := logger.NewTabular(dir, log)
	if err != nil {
		return nil, fmt.Errorf("run: %v", err)
	}
	defer tab.Close()

	trainer, err := deepq.New(e, q, target, c.Agent, tab, log)
	if err != nil {
		return nil, err
	}
	if err := tab.SaveConfig(c); err != nil {
		return nil, fmt.Errorf("run: %v", err)
	}

	if c.ProgressBar {
		trainer.SetProgressBar(os.Stderr)
	}

	if c.Agent.Render {
		if err := setFrameRenderer(e, filepath.Join(dir, FramesDir)); err != nil {
			return nil, fmt.Errorf("run: %v", err)
		}
	}

	returns := tracker.NewReturn(filepath.Join(dir, ReturnsFile))
	lengths := tracker.NewEpisodeLength(filepath.Join(dir, EpisodeLengthsFile))
	trackers := []tracker.Tracker{returns, lengths}
	for _, tr := range trackers {
		trainer.Register(tr)
	}

	weights := filepath.Join(dir, WeightsFile)
	filename := checkpointer.FixedFilename(weights, WeightsExt)
	if !c.Agent.OverwriteSave {
		filename = checkpointer.FilenameEnumerator(0, weights+"_", WeightsExt)
	}
	check, err := checkpointer.NewNEpoch(c.Agent.SaveFreq, q, filename)
	if err != nil {
		return nil, fmt.Errorf("run: %v", err)
	}
	trainer.RegisterCheckpointer(check)

	log.WithFields(logrus.Fields{
		"name":        c.Name,
		"dir":         dir,
		"environment": c.Env.Environment,
		"seed":        c.Agent.Seed,
		"epochs":      c.Agent.Epochs,
		"epoch_steps": c.Agent.EpochSteps,
	}).Info("starting experiment")

	stats, runErr := trainer.Run(ctx)

	for _, tr := range trackers {
		if err := tr.Save(); err != nil {
			return stats, fmt.Errorf("run: %v", err)
		}
	}
	if runErr != nil {
		log.WithError(runErr).WithField("epochs", len(stats)).
			Warn("training stopped early")
		return stats, runErr
	}

	if c.Agent.RenderLast {
		finalDir := filepath.Join(dir, FinalFramesDir)
		if err := setFrameRenderer(e, finalDir); err != nil {
			return stats, fmt.Errorf("run: %v", err)
		}
		if _, err := trainer.Evaluate(ctx, 1, true); err != nil {
			return stats, fmt.Errorf("run: %w", err)
		}
	}

	log.WithField("dir", dir).Info("experiment complete")
	return stats, nil
}

// Evaluate loads the network weights saved in weightsFile and runs
// episodes greedy episodes on the environment described by c,
// returning the return of each episode. If renderDir is not empty,
// every step is rendered to renderDir.
func Evaluate(ctx context.Context, c Config, weightsFile string,
	episodes int, renderDir string, log *logrus.Logger) ([]float64, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if episodes < 1 {
		return nil, fmt.Errorf("evaluate: episodes must be positive "+
			"\n\thave(%v)", episodes)
	}

	e, err := c.Env.Create(c.Agent.Seed)
	if err != nil {
		return nil, fmt.Errorf("evaluate: could not create environment: %v",
			err)
	}
	q, target, err := newNetworks(e, c.Agent)
	if err != nil {
		return nil, err
	}
	if err := checkpointer.Load(weightsFile, q); err != nil {
		return nil, fmt.Errorf("evaluate: %v", err)
	}

	trainer, err := deepq.New(e, q, target, c.Agent, nil, log)
	if err != nil {
		return nil, err
	}

	render := renderDir != ""
	if render {
		if err := setFrameRenderer(e, renderDir); err != nil {
			return nil, fmt.Errorf("evaluate: %v", err)
		}
	}

	log.WithFields(logrus.Fields{
		"weights":  weightsFile,
		"episodes": episodes,
	}).Info("evaluating")
	return trainer.Evaluate(ctx, episodes, render)
}
