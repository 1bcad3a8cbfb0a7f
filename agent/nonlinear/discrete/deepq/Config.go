package deepq

import (
	"fmt"

	"github.com/samuelfneumann/godqn/network"
	"github.com/samuelfneumann/godqn/solver"
)

// Cadence determines when gradient updates are performed
type Cadence string

const (
	// StepCadence performs one gradient update after every
	// environment step
	StepCadence Cadence = "step"

	// EpisodeCadence defers gradient updates to the end of each
	// episode, or the end of the epoch if it comes first, and then
	// performs one update for each environment step taken since the
	// last updates
	EpisodeCadence Cadence = "episode"
)

// Profiles of the Trainer
const (
	// Smoothed updates every step and tracks the main network with
	// Polyak averaging
	Smoothed = "smoothed"

	// Periodic updates at the end of each episode and hard copies the
	// main network into the target network every 1000 gradient steps
	Periodic = "periodic"
)

// Config implements a configuration of a DQN Trainer
type Config struct {
	HiddenSizes  []int       `yaml:"hidden_sizes"`
	Activation   string      `yaml:"activation"`
	Solver       solver.Type `yaml:"solver"`
	LearningRate float64     `yaml:"learning_rate"`

	Epochs     int    `yaml:"epochs"`
	EpochSteps int    `yaml:"epoch_steps"`
	BatchSize  int    `yaml:"batch_size"`
	Seed       uint64 `yaml:"seed"`

	ReplayCapacity int `yaml:"replay_capacity"`

	// Exploration anneals linearly from 1 to EpsilonMin over
	// StartSteps steps
	EpsilonMin float64 `yaml:"epsilon_min"`
	StartSteps int     `yaml:"start_steps"`

	Gamma float64 `yaml:"gamma"`

	// Target net updates. A Polyak of 0 hard copies the main network.
	Polyak           float64 `yaml:"polyak"`
	TargetUpdateFreq int     `yaml:"target_update_freq"`

	UpdateCadence Cadence `yaml:"update_cadence"`

	Render     bool `yaml:"render"`      // Render the first episode of each epoch
	RenderLast bool `yaml:"render_last"` // Render a greedy episode after training

	// Checkpoints are saved every SaveFreq epochs and always after the
	// final epoch. If OverwriteSave is false, each checkpoint is saved
	// to a new file.
	SaveFreq      int  `yaml:"save_freq"`
	OverwriteSave bool `yaml:"overwrite_save"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		HiddenSizes:      []int{64, 64},
		Activation:       "relu",
		Solver:           solver.Adam,
		LearningRate:     1e-2,
		Epochs:           50,
		EpochSteps:       2000,
		BatchSize:        32,
		Seed:             0,
		ReplayCapacity:   100000,
		EpsilonMin:       0.01,
		StartSteps:       100000,
		Gamma:            0.99,
		Polyak:           0.995,
		TargetUpdateFreq: 1,
		UpdateCadence:    StepCadence,
		SaveFreq:         10,
		OverwriteSave:    true,
	}
}

// Profile returns the default configuration adjusted to the named
// profile
func Profile(name string) (Config, error) {
	c := DefaultConfig()

	switch name {
	case Smoothed:
		c.Polyak = 0.995
		c.TargetUpdateFreq = 1
		c.UpdateCadence = StepCadence

	case Periodic:
		c.Polyak = 0.0
		c.TargetUpdateFreq = 1000
		c.UpdateCadence = EpisodeCadence

	default:
		return Config{}, fmt.Errorf("profile: no such profile %q", name)
	}
	return c, nil
}

// SolverConfig returns the configuration of the solver of the main
// network
func (c Config) SolverConfig() solver.Config {
	if c.Solver == solver.Adam {
		return solver.NewDefaultAdam(c.LearningRate)
	}
	return solver.Config{Type: c.Solver, StepSize: c.LearningRate}
}

// Validate checks a Config to ensure it is a valid configuration of a
// DQN Trainer. All errors returned are *ConfigError.
func (c Config) Validate() error {
	for i, size := range c.HiddenSizes {
		if size < 1 {
			return newConfigError("hidden_sizes", ErrInvalidValue,
				"layer %d must have positive size, have(%v)", i, size)
		}
	}

	if _, err := network.ParseActivation(c.Activation); err != nil {
		return newConfigError("activation", ErrInvalidValue, "%v", err)
	}

	if err := c.SolverConfig().Validate(); err != nil {
		return newConfigError("solver", ErrInvalidValue, "%v", err)
	}

	positive := []struct {
		field string
		value int
	}{
		{"epochs", c.Epochs},
		{"epoch_steps", c.EpochSteps},
		{"batch_size", c.BatchSize},
		{"replay_capacity", c.ReplayCapacity},
		{"target_update_freq", c.TargetUpdateFreq},
	}
	for _, p := range positive {
		if p.value < 1 {
			return newConfigError(p.field, ErrInvalidValue,
				"want(>0) have(%v)", p.value)
		}
	}

	if c.StartSteps < 0 {
		return newConfigError("start_steps", ErrInvalidValue,
			"want(>=0) have(%v)", c.StartSteps)
	}
	if c.SaveFreq < 0 {
		return newConfigError("save_freq", ErrInvalidValue,
			"want(>=0) have(%v)", c.SaveFreq)
	}
	if c.EpsilonMin < 0 || c.EpsilonMin > 1 {
		return newConfigError("epsilon_min", ErrInvalidValue,
			"want([0, 1]) have(%v)", c.EpsilonMin)
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return newConfigError("gamma", ErrInvalidValue,
			"want([0, 1]) have(%v)", c.Gamma)
	}
	if c.Polyak < 0 || c.Polyak >= 1 {
		return newConfigError("polyak", ErrInvalidValue,
			"want([0, 1)) have(%v)", c.Polyak)
	}

	if c.UpdateCadence != StepCadence && c.UpdateCadence != EpisodeCadence {
		return newConfigError("update_cadence", ErrInvalidValue,
			"no such cadence %q", c.UpdateCadence)
	}

	// The target network must be updated at least once per epoch,
	// otherwise no learning is done
	if c.TargetUpdateFreq > c.EpochSteps {
		return newConfigError("target_update_freq", ErrTargetInterval,
			"want(<=%v) have(%v)", c.EpochSteps, c.TargetUpdateFreq)
	}

	return nil
}
