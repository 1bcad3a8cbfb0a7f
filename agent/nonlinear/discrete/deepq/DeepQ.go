// Package deepq implements the training core of Deep Q-Networks: a
// Trainer which alternates between acting in an environment with an
// epsilon greedy policy, storing transitions in a replay buffer, and
// regressing a main Q-function toward bootstrapped targets computed by
// a target Q-function.
package deepq

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/samuelfneumann/godqn/agent"
	"github.com/samuelfneumann/godqn/agent/nonlinear/discrete/policy"
	"github.com/samuelfneumann/godqn/environment"
	"github.com/samuelfneumann/godqn/experiment/checkpointer"
	"github.com/samuelfneumann/godqn/experiment/tracker"
	"github.com/samuelfneumann/godqn/expreplay"
	ts "github.com/samuelfneumann/godqn/timestep"
	"github.com/samuelfneumann/godqn/utils/intutils"
	"github.com/samuelfneumann/godqn/utils/progressbar"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// Trainer implements the DQN training loop. The Trainer owns the
// global environment step counter and the gradient step counter, both
// of which persist across epochs.
//
// With the step update cadence, each environment step is followed by
// a single gradient update on a minibatch sampled uniformly from the
// replay buffer. With the episode update cadence, the updates for the
// steps of an episode are deferred to the end of the episode, or to
// the end of the epoch if it comes first.
//
// A Trainer is not safe for concurrent use.
type Trainer struct {
	env        environment.Environment
	q          agent.QFunction
	target     agent.QFunction
	numActions int

	replay *expreplay.ReplayBuffer
	policy *policy.EGreedy
	sync   *TargetSync
	config Config

	out           Logger
	log           *logrus.Logger
	trackers      []tracker.Tracker
	checkpointers []checkpointer.Checkpointer
	progress      io.Writer // Progress bar output, nil for no bar

	steps         int // Global environment steps
	gradientSteps int
	epoch         int
	totalEpisodes int
	elapsed       time.Duration // Time spent in completed epochs
}

// New returns a new Trainer which trains q on env using target as the
// target network. The weights of target are overwritten by those of q.
//
// All configuration errors are detected and reported as *ConfigError
// before the environment is interacted with. If out is nil, epoch
// statistics are logged with log only. If log is nil, the standard
// logrus logger is used.
func New(env environment.Environment, q, target agent.QFunction, c Config,
	out Logger, log *logrus.Logger) (*Trainer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	numActions, err := ActionCount(env)
	if err != nil {
		return nil, err
	}

	features := env.ObservationSpec().Shape.Len()
	for _, net := range []struct {
		name string
		q    agent.QFunction
	}{{"q", q}, {"target", target}} {
		if net.q.Features() != features {
			return nil, newConfigError(net.name, ErrDimensionMismatch,
				"observation features want(%v) have(%v)", features,
				net.q.Features())
		}
		if net.q.Actions() != numActions {
			return nil, newConfigError(net.name, ErrDimensionMismatch,
				"actions want(%v) have(%v)", numActions, net.q.Actions())
		}
	}

	// Approximators with a fixed training batch size must agree with
	// the sampled batch size
	if b, ok := q.(interface{ BatchSize() int }); ok &&
		b.BatchSize() != c.BatchSize {
		return nil, newConfigError("batch_size", ErrDimensionMismatch,
			"q trains on batches of %v, have(%v)", b.BatchSize(), c.BatchSize)
	}

	sync, err := NewTargetSync(q, target, c.Polyak, c.TargetUpdateFreq)
	if err != nil {
		if IsConfigError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("new: %v", err)
	}

	replay, err := expreplay.New(c.ReplayCapacity, features, c.Seed)
	if err != nil {
		return nil, fmt.Errorf("new: could not create replay buffer: %v", err)
	}

	schedule, err := policy.NewLinearDecay(c.EpsilonMin, c.StartSteps)
	if err != nil {
		return nil, newConfigError("epsilon_min", ErrInvalidValue, "%v", err)
	}
	p, err := policy.NewEGreedy(schedule, c.Seed+1)
	if err != nil {
		return nil, fmt.Errorf("new: could not create policy: %v", err)
	}

	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Trainer{
		env:        env,
		q:          q,
		target:     target,
		numActions: numActions,
		replay:     replay,
		policy:     p,
		sync:       sync,
		config:     c,
		out:        out,
		log:        log,
	}, nil
}

// ActionCount returns the number of discrete actions of env. A
// *ConfigError is returned if env does not have discrete,
// one-dimensional actions enumerated from 0.
func ActionCount(env environment.Environment) (int, error) {
	n, err := environment.DiscreteActions(env.ActionSpec())
	if err != nil {
		return 0, newConfigError("environment", ErrUnsupportedActions,
			"%v", err)
	}
	return n, nil
}

// Register registers a Tracker which is sent every timestep produced
// by the environment during training
func (t *Trainer) Register(tr tracker.Tracker) {
	t.trackers = append(t.trackers, tr)
}

// RegisterCheckpointer registers a Checkpointer which is called after
// each completed epoch of Run
func (t *Trainer) RegisterCheckpointer(c checkpointer.Checkpointer) {
	t.checkpointers = append(t.checkpointers, c)
}

// SetProgressBar displays the progress of each epoch as a progress
// bar written to w. A nil w disables the progress bar.
func (t *Trainer) SetProgressBar(w io.Writer) {
	t.progress = w
}

// Steps returns the number of environment steps taken so far
func (t *Trainer) Steps() int {
	return t.steps
}

// GradientSteps returns the number of gradient updates performed so
// far
func (t *Trainer) GradientSteps() int {
	return t.gradientSteps
}

// Epoch returns the number of completed epochs
func (t *Trainer) Epoch() int {
	return t.epoch
}

// Replay returns the replay buffer of the Trainer
func (t *Trainer) Replay() *expreplay.ReplayBuffer {
	return t.replay
}

// Sync returns the target network synchronizer of the Trainer
func (t *Trainer) Sync() *TargetSync {
	return t.sync
}

// Run runs all remaining epochs of training, checkpointing after each
// completed epoch, and returns the statistics of each completed
// epoch. If ctx is cancelled, Run stops after the current environment
// step and returns the statistics of the epochs completed so far along
// with the error of ctx.
func (t *Trainer) Run(ctx context.Context) ([]EpochStatistics, error) {
	var epochs []EpochStatistics

	for t.epoch < t.config.Epochs {
		stats, err := t.RunEpoch(ctx)
		if err != nil {
			return epochs, err
		}
		epochs = append(epochs, stats)

		final := t.epoch == t.config.Epochs
		for _, c := range t.checkpointers {
			if err := c.Checkpoint(stats.Epoch, final); err != nil {
				return epochs, fmt.Errorf("run: %v", err)
			}
		}
	}

	return epochs, nil
}

// RunEpoch runs a single epoch of EpochSteps environment steps,
// beginning with an environment reset. Errors returned by the
// environment are returned unmodified.
func (t *Trainer) RunEpoch(ctx context.Context) (EpochStatistics, error) {
	start := time.Now()
	acc := &accumulator{}

	step, err := t.env.Reset()
	if err != nil {
		return EpochStatistics{}, err
	}
	t.track(step)

	renderer, render := t.env.(environment.Renderer)
	render = render && t.config.Render
	if render {
		if err := renderer.Render(); err != nil {
			return EpochStatistics{}, fmt.Errorf("runEpoch: %v", err)
		}
	}

	var bar *progressbar.ProgressBar
	if t.progress != nil {
		bar = progressbar.New(t.progress, 40, t.config.EpochSteps)
		defer bar.Close()
	}
	displayEvery := intutils.Max(1, t.config.EpochSteps/100)

	pending := 0 // Deferred gradient updates
	for i := 0; i < t.config.EpochSteps; i++ {
		action, err := t.policy.SelectAction(step.Observation, t.steps, t.q)
		if err != nil {
			return acc.statistics(t.epoch), fmt.Errorf("runEpoch: %v", err)
		}

		next, done, err := t.env.Step(actionVec(action))
		if err != nil {
			return acc.statistics(t.epoch), err
		}
		t.track(next)

		transition := ts.NewTransition(step, action, next)
		transition.Done = done
		if err := t.replay.Store(transition); err != nil {
			return acc.statistics(t.epoch), fmt.Errorf("runEpoch: %v", err)
		}
		t.steps++
		acc.step(next.Reward)

		if render {
			if err := renderer.Render(); err != nil {
				return acc.statistics(t.epoch), fmt.Errorf("runEpoch: %v", err)
			}
		}

		if t.config.UpdateCadence == StepCadence {
			if err := t.learn(acc, 1); err != nil {
				return acc.statistics(t.epoch), err
			}
		} else {
			pending++
		}

		if done {
			if err := t.learn(acc, pending); err != nil {
				return acc.statistics(t.epoch), err
			}
			pending = 0

			t.log.WithFields(logrus.Fields{
				"return": acc.epReturn,
				"length": acc.epLength,
				"step":   t.steps,
			}).Debug("episode complete")
			acc.endEpisode()
			t.totalEpisodes++

			// Only the first episode of each epoch is rendered
			render = false

			if i+1 < t.config.EpochSteps {
				step, err = t.env.Reset()
				if err != nil {
					return acc.statistics(t.epoch), err
				}
				t.track(step)
			}
		} else {
			step = next
		}

		if bar != nil {
			bar.Increment()
			if (i+1)%displayEvery == 0 || i+1 == t.config.EpochSteps {
				bar.Display()
			}
		}

		if err := ctx.Err(); err != nil {
			return acc.statistics(t.epoch), err
		}
	}

	// The epoch budget ends the episode in progress for the purposes
	// of deferred updates
	if err := t.learn(acc, pending); err != nil {
		return acc.statistics(t.epoch), err
	}

	stats := acc.statistics(t.epoch)
	stats.TotalEpisodes = t.totalEpisodes
	stats.Epsilon = t.policy.Epsilon(t.steps)
	stats.NetworkDiff, err = t.sync.Difference()
	if err != nil {
		return stats, fmt.Errorf("runEpoch: %v", err)
	}

	stats.EpochTime = time.Since(start)
	t.elapsed += stats.EpochTime
	t.epoch++
	if remaining := t.config.Epochs - t.epoch; remaining > 0 {
		perEpoch := t.elapsed / time.Duration(t.epoch)
		stats.TimeRemaining = perEpoch * time.Duration(remaining)
	}

	if err := t.report(stats); err != nil {
		return stats, fmt.Errorf("runEpoch: %v", err)
	}
	return stats, nil
}

// learn performs n gradient updates
func (t *Trainer) learn(acc *accumulator, n int) error {
	for i := 0; i < n; i++ {
		loss, err := t.update()
		if err != nil {
			return fmt.Errorf("learn: %v", err)
		}
		acc.loss(loss)
	}
	return nil
}

// update performs a single gradient update of the main network on a
// minibatch sampled from the replay buffer, then updates the target
// network if it is due
func (t *Trainer) update() (float64, error) {
	batch, err := t.replay.Sample(t.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("update: %v", err)
	}

	targets, err := TDTargets(batch, t.target, t.config.Gamma)
	if err != nil {
		return 0, fmt.Errorf("update: %v", err)
	}

	loss, err := t.q.Update(batch.States, batch.Actions, targets)
	if err != nil {
		return 0, fmt.Errorf("update: %v", err)
	}
	t.gradientSteps++

	if _, err := t.sync.MaybeUpdate(t.gradientSteps); err != nil {
		return 0, fmt.Errorf("update: %v", err)
	}
	return loss, nil
}

// report logs the statistics of an epoch
func (t *Trainer) report(stats EpochStatistics) error {
	if t.out == nil {
		t.log.WithFields(stats.Fields()).Info("epoch complete")
		return nil
	}
	t.log.WithFields(stats.Fields()).Debug("epoch complete")
	return stats.Log(t.out)
}

// Evaluate runs episodes greedy episodes without learning and returns
// the return of each. Episodes run until the environment ends them. If
// render is set, the environment must implement environment.Renderer
// and every step is rendered. Errors returned by the environment are
// returned unmodified.
func (t *Trainer) Evaluate(ctx context.Context, episodes int,
	render bool) ([]float64, error) {
	var renderer environment.Renderer
	if render {
		r, ok := t.env.(environment.Renderer)
		if !ok {
			return nil, fmt.Errorf("evaluate: environment cannot be rendered")
		}
		renderer = r
	}

	returns := make([]float64, 0, episodes)
	for ep := 0; ep < episodes; ep++ {
		step, err := t.env.Reset()
		if err != nil {
			return returns, err
		}

		var episodeReturn float64
		for done := false; !done; {
			if renderer != nil {
				if err := renderer.Render(); err != nil {
					return returns, fmt.Errorf("evaluate: %v", err)
				}
			}

			action, err := policy.Greedy(step.Observation, t.q)
			if err != nil {
				return returns, fmt.Errorf("evaluate: %v", err)
			}

			step, done, err = t.env.Step(actionVec(action))
			if err != nil {
				return returns, err
			}
			episodeReturn += step.Reward

			if err := ctx.Err(); err != nil {
				return returns, err
			}
		}

		if renderer != nil {
			if err := renderer.Render(); err != nil {
				return returns, fmt.Errorf("evaluate: %v", err)
			}
		}

		t.log.WithFields(logrus.Fields{
			"episode": ep,
			"return":  episodeReturn,
		}).Info("evaluation episode complete")
		returns = append(returns, episodeReturn)
	}
	return returns, nil
}

// track sends a timestep to each registered Tracker
func (t *Trainer) track(step ts.TimeStep) {
	for _, tr := range t.trackers {
		tr.Track(step)
	}
}

// actionVec returns a discrete action as an environment action
func actionVec(action int) *mat.VecDense {
	return mat.NewVecDense(1, []float64{float64(action)})
}
