package cmd

import (
	"fmt"

	"github.com/samuelfneumann/godqn/agent/nonlinear/discrete/deepq"
	"github.com/samuelfneumann/godqn/environment/envconfig"
	"github.com/samuelfneumann/godqn/experiment"
	"github.com/samuelfneumann/godqn/solver"
	"github.com/spf13/pflag"
)

// configFlags binds the experiment configuration to command line
// flags. The configuration is built from, in increasing precedence,
// the defaults, a profile, a configuration file, and any flags set on
// the command line.
type configFlags struct {
	file    string
	profile string

	values  experiment.Config
	solver  string
	cadence string
	env     string
	task    string
}

func newConfigFlags() *configFlags {
	c := &configFlags{values: experiment.DefaultConfig()}
	c.solver = string(c.values.Agent.Solver)
	c.cadence = string(c.values.Agent.UpdateCadence)
	c.env = string(c.values.Env.Environment)
	c.task = string(c.values.Env.Task)
	return c
}

// register defines the flags on fs
func (c *configFlags) register(fs *pflag.FlagSet) {
	v, a, e := &c.values, &c.values.Agent, &c.values.Env

	fs.StringVar(&c.file, "config", "", "YAML configuration file")
	fs.StringVar(&c.profile, "profile", "", fmt.Sprintf(
		"Configuration profile (%v, %v)", deepq.Smoothed, deepq.Periodic))
	fs.StringVar(&v.OutputDir, "out", v.OutputDir, "Output directory")
	fs.StringVar(&v.Name, "exp-name", v.Name, "Experiment name")
	fs.BoolVar(&v.ProgressBar, "progress-bar", v.ProgressBar,
		"Display a progress bar for each epoch")

	// Environment
	fs.StringVar(&c.env, "env", c.env, "Environment (Cartpole, MountainCar)")
	fs.StringVar(&c.task, "task", c.task, "Environment task (Balance, Goal)")
	fs.BoolVar(&e.ContinuousActions, "continuous-actions",
		e.ContinuousActions, "Use continuous actions (unsupported by DQN)")
	fs.IntVar(&e.EpisodeCutoff, "episode-cutoff", e.EpisodeCutoff,
		"Maximum steps per episode, 0 for no cutoff")
	fs.Float64Var(&e.Discount, "discount", e.Discount,
		"Environment discount")

	// Network
	fs.IntSliceVar(&a.HiddenSizes, "hid", a.HiddenSizes,
		"Comma-separated hidden layer sizes")
	fs.StringVar(&a.Activation, "activation", a.Activation,
		"Hidden layer activation (relu, tanh, identity)")
	fs.StringVar(&c.solver, "solver", c.solver,
		"Solver (adam, rmsprop, vanilla)")
	fs.Float64Var(&a.LearningRate, "lr", a.LearningRate, "Learning rate")

	// Training
	fs.Uint64Var(&a.Seed, "seed", a.Seed, "Random seed")
	fs.IntVar(&a.Epochs, "epochs", a.Epochs, "Number of epochs")
	fs.IntVar(&a.EpochSteps, "epoch-steps", a.EpochSteps,
		"Environment steps per epoch")
	fs.IntVar(&a.BatchSize, "batch-size", a.BatchSize, "Minibatch size")
	fs.IntVar(&a.ReplayCapacity, "replay-capacity", a.ReplayCapacity,
		"Replay buffer capacity")
	fs.Float64Var(&a.EpsilonMin, "epsilon-min", a.EpsilonMin,
		"Final exploration probability")
	fs.IntVar(&a.StartSteps, "start-steps", a.StartSteps,
		"Steps over which exploration is annealed")
	fs.Float64Var(&a.Gamma, "gamma", a.Gamma, "Discount factor of targets")
	fs.Float64Var(&a.Polyak, "polyak", a.Polyak,
		"Polyak averaging constant, 0 for hard target updates")
	fs.IntVar(&a.TargetUpdateFreq, "target-update-freq", a.TargetUpdateFreq,
		"Gradient steps between target network updates")
	fs.StringVar(&c.cadence, "update-cadence", c.cadence,
		"When gradient updates are performed (step, episode)")

	// Output
	fs.BoolVar(&a.Render, "render", a.Render,
		"Render the first episode of each epoch")
	fs.BoolVar(&a.RenderLast, "render-last", a.RenderLast,
		"Render a greedy episode after training")
	fs.IntVar(&a.SaveFreq, "save-freq", a.SaveFreq,
		"Epochs between weight checkpoints, 0 to save only at the end")
	fs.BoolVar(&a.OverwriteSave, "overwrite-save", a.OverwriteSave,
		"Overwrite the previous weight checkpoint")
}

// load builds the configuration from the flags parsed by fs
func (c *configFlags) load(fs *pflag.FlagSet) (experiment.Config, error) {
	config := experiment.DefaultConfig()

	if c.profile != "" {
		agent, err := deepq.Profile(c.profile)
		if err != nil {
			return experiment.Config{}, err
		}
		config.Agent = agent
	}

	if c.file != "" {
		var err error
		config, err = experiment.LoadConfig(c.file, config)
		if err != nil {
			return experiment.Config{}, err
		}
	}

	c.apply(fs, &config)
	return config, nil
}

// apply copies the values of all flags set on the command line to dst
func (c *configFlags) apply(fs *pflag.FlagSet, dst *experiment.Config) {
	v, a, e := &c.values, &c.values.Agent, &c.values.Env
	appliers := map[string]func(){
		"out":                func() { dst.OutputDir = v.OutputDir },
		"exp-name":           func() { dst.Name = v.Name },
		"progress-bar":       func() { dst.ProgressBar = v.ProgressBar },
		"env":                func() { dst.Env.Environment = envconfig.EnvName(c.env) },
		"task":               func() { dst.Env.Task = envconfig.TaskName(c.task) },
		"continuous-actions": func() { dst.Env.ContinuousActions = e.ContinuousActions },
		"episode-cutoff":     func() { dst.Env.EpisodeCutoff = e.EpisodeCutoff },
		"discount":           func() { dst.Env.Discount = e.Discount },
		"hid":                func() { dst.Agent.HiddenSizes = append([]int(nil), a.HiddenSizes...) },
		"activation":         func() { dst.Agent.Activation = a.Activation },
		"solver":             func() { dst.Agent.Solver = solver.Type(c.solver) },
		"lr":                 func() { dst.Agent.LearningRate = a.LearningRate },
		"seed":               func() { dst.Agent.Seed = a.Seed },
		"epochs":             func() { dst.Agent.Epochs = a.Epochs },
		"epoch-steps":        func() { dst.Agent.EpochSteps = a.EpochSteps },
		"batch-size":         func() { dst.Agent.BatchSize = a.BatchSize },
		"replay-capacity":    func() { dst.Agent.ReplayCapacity = a.ReplayCapacity },
		"epsilon-min":        func() { dst.Agent.EpsilonMin = a.EpsilonMin },
		"start-steps":        func() { dst.Agent.StartSteps = a.StartSteps },
		"gamma":              func() { dst.Agent.Gamma = a.Gamma },
		"polyak":             func() { dst.Agent.Polyak = a.Polyak },
		"target-update-freq": func() { dst.Agent.TargetUpdateFreq = a.TargetUpdateFreq },
		"update-cadence":     func() { dst.Agent.UpdateCadence = deepq.Cadence(c.cadence) },
		"render":             func() { dst.Agent.Render = a.Render },
		"render-last":        func() { dst.Agent.RenderLast = a.RenderLast },
		"save-freq":          func() { dst.Agent.SaveFreq = a.SaveFreq },
		"overwrite-save":     func() { dst.Agent.OverwriteSave = a.OverwriteSave },
	}

	fs.Visit(func(f *pflag.Flag) {
		if apply, ok := appliers[f.Name]; ok {
			apply()
		}
	})
}
