package deepq

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/godqn/agent"
	"github.com/samuelfneumann/godqn/environment"
	"github.com/samuelfneumann/godqn/experiment/tracker"
	"github.com/samuelfneumann/godqn/expreplay"
	ts "github.com/samuelfneumann/godqn/timestep"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// fakeEnv is a one-dimensional environment whose observation is the
// number of steps taken in the current episode. Every step has a
// reward of 1 and episodes last episodeSteps steps.
type fakeEnv struct {
	actions      int
	episodeSteps int
	continuous   bool

	resets int
	steps  int
	taken  []int

	errAt int   // Step on which to fail, if positive
	err   error // Error to fail with

	// q, if set, is observed on each step
	q              *fakeQ
	updatesAtSteps []int

	t int
}

func (f *fakeEnv) Reset() (ts.TimeStep, error) {
	f.resets++
	f.t = 0
	return ts.New(ts.First, 0, 1, mat.NewVecDense(1, []float64{0}), 0), nil
}

func (f *fakeEnv) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	f.steps++
	if f.errAt > 0 && f.steps == f.errAt {
		return ts.TimeStep{}, false, f.err
	}
	if f.q != nil {
		f.updatesAtSteps = append(f.updatesAtSteps, f.q.updates)
	}
	f.taken = append(f.taken, int(a.AtVec(0)))

	f.t++
	obs := mat.NewVecDense(1, []float64{float64(f.t)})
	if f.t >= f.episodeSteps {
		step := ts.New(ts.Last, 1, 0, obs, f.t)
		step.SetEnd(ts.Timeout)
		return step, true, nil
	}
	return ts.New(ts.Mid, 1, 1, obs, f.t), false, nil
}

func (f *fakeEnv) DiscountSpec() environment.Spec {
	return environment.NewSpec(mat.NewVecDense(1, nil), environment.Discount,
		mat.NewVecDense(1, []float64{1}), mat.NewVecDense(1, []float64{1}),
		environment.Continuous)
}

func (f *fakeEnv) ObservationSpec() environment.Spec {
	return environment.NewSpec(mat.NewVecDense(1, nil),
		environment.Observation, mat.NewVecDense(1, []float64{0}),
		mat.NewVecDense(1, []float64{float64(f.episodeSteps)}),
		environment.Continuous)
}

func (f *fakeEnv) ActionSpec() environment.Spec {
	cardinality := environment.Discrete
	if f.continuous {
		cardinality = environment.Continuous
	}
	return environment.NewSpec(mat.NewVecDense(1, nil), environment.Action,
		mat.NewVecDense(1, []float64{0}),
		mat.NewVecDense(1, []float64{float64(f.actions - 1)}), cardinality)
}

// fakeQ predicts the same action values in every state. Each update
// adds 1 to every weight and returns the number of previous updates as
// the loss.
type fakeQ struct {
	w       *mat.Dense // 1 x actions
	updates int

	// Arguments to the last call to Update
	obs     *mat.Dense
	actions []int
	targets []float64
}

func newFakeQ(values ...float64) *fakeQ {
	return &fakeQ{w: mat.NewDense(1, len(values), values)}
}

func (f *fakeQ) Predict(obs *mat.Dense) (*mat.Dense, error) {
	rows, _ := obs.Dims()
	_, actions := f.w.Dims()
	out := mat.NewDense(rows, actions, nil)
	for i := 0; i < rows; i++ {
		out.SetRow(i, f.w.RawRowView(0))
	}
	return out, nil
}

func (f *fakeQ) Update(obs *mat.Dense, actions []int,
	targets []float64) (float64, error) {
	f.obs, f.actions, f.targets = obs, actions, targets

	loss := float64(f.updates)
	row := f.w.RawRowView(0)
	for i := range row {
		row[i]++
	}
	f.updates++
	return loss, nil
}

func (f *fakeQ) Weights() agent.Weights {
	return agent.Weights{"w": mat.DenseCopyOf(f.w)}
}

func (f *fakeQ) SetWeights(w agent.Weights) error {
	if err := f.Weights().Compatible(w); err != nil {
		return err
	}
	f.w = mat.DenseCopyOf(w["w"])
	return nil
}

func (f *fakeQ) Features() int { return 1 }

func (f *fakeQ) Actions() int {
	_, c := f.w.Dims()
	return c
}

// recordingLogger records the rows logged to it
type recordingLogger struct {
	keys  []string
	row   map[string]interface{}
	rows  []map[string]interface{}
	dumps int
}

func (r *recordingLogger) Log(key string, value interface{}) error {
	if r.row == nil {
		r.row = make(map[string]interface{})
	}
	if r.dumps == 0 {
		r.keys = append(r.keys, key)
	}
	r.row[key] = value
	return nil
}

func (r *recordingLogger) Dump() error {
	r.rows = append(r.rows, r.row)
	r.row = nil
	r.dumps++
	return nil
}

type checkpoint struct {
	epoch int
	final bool
}

type recordingCheckpointer struct {
	calls []checkpoint
}

func (r *recordingCheckpointer) Checkpoint(epoch int, final bool) error {
	r.calls = append(r.calls, checkpoint{epoch, final})
	return nil
}

func testConfig() Config {
	c := DefaultConfig()
	c.Epochs = 2
	c.EpochSteps = 10
	c.BatchSize = 4
	c.ReplayCapacity = 100
	c.StartSteps = 100
	c.Seed = 1
	return c
}

func quietLogger() *logrus.Logger {
	log, _ := test.NewNullLogger()
	return log
}

func newTrainer(t *testing.T, env environment.Environment, q, target *fakeQ,
	c Config) *Trainer {
	t.Helper()

	trainer, err := New(env, q, target, c, nil, quietLogger())
	require.NoError(t, err)
	return trainer
}

func TestConfigErrorsBeforeInteraction(t *testing.T) {
	tests := []struct {
		name   string
		env    *fakeEnv
		config func(*Config)
		check  func(error) bool
	}{
		{
			name:   "target interval exceeds epoch",
			env:    &fakeEnv{actions: 2, episodeSteps: 5},
			config: func(c *Config) { c.TargetUpdateFreq = c.EpochSteps + 1 },
			check:  IsTargetInterval,
		},
		{
			name:   "continuous actions",
			env:    &fakeEnv{actions: 2, episodeSteps: 5, continuous: true},
			config: func(*Config) {},
			check:  IsUnsupportedActions,
		},
		{
			name:   "negative gamma",
			env:    &fakeEnv{actions: 2, episodeSteps: 5},
			config: func(c *Config) { c.Gamma = -0.1 },
			check:  func(err error) bool { return errors.Is(err, ErrInvalidValue) },
		},
		{
			name:   "action count mismatch",
			env:    &fakeEnv{actions: 3, episodeSteps: 5},
			config: func(*Config) {},
			check: func(err error) bool {
				return errors.Is(err, ErrDimensionMismatch)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testConfig()
			tt.config(&c)

			_, err := New(tt.env, newFakeQ(0, 0), newFakeQ(0, 0), c, nil,
				quietLogger())
			require.Error(t, err)
			assert.True(t, IsConfigError(err), "%v", err)
			assert.True(t, tt.check(err), "%v", err)

			assert.Zero(t, tt.env.resets)
			assert.Zero(t, tt.env.steps)
		})
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero epochs", func(c *Config) { c.Epochs = 0 }},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }},
		{"polyak one", func(c *Config) { c.Polyak = 1 }},
		{"epsilon above one", func(c *Config) { c.EpsilonMin = 1.5 }},
		{"negative start steps", func(c *Config) { c.StartSteps = -1 }},
		{"bad cadence", func(c *Config) { c.UpdateCadence = "sometimes" }},
		{"bad activation", func(c *Config) { c.Activation = "sigmoid" }},
		{"bad learning rate", func(c *Config) { c.LearningRate = 0 }},
		{"empty hidden layer", func(c *Config) { c.HiddenSizes = []int{0} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.modify(&c)
			err := c.Validate()
			assert.Error(t, err)
			assert.True(t, IsConfigError(err))
		})
	}
}

func TestProfiles(t *testing.T) {
	smoothed, err := Profile(Smoothed)
	require.NoError(t, err)
	assert.Equal(t, 0.995, smoothed.Polyak)
	assert.Equal(t, 1, smoothed.TargetUpdateFreq)
	assert.Equal(t, StepCadence, smoothed.UpdateCadence)

	periodic, err := Profile(Periodic)
	require.NoError(t, err)
	assert.Equal(t, 0.0, periodic.Polyak)
	assert.Equal(t, 1000, periodic.TargetUpdateFreq)
	assert.Equal(t, EpisodeCadence, periodic.UpdateCadence)
	assert.NoError(t, periodic.Validate())

	_, err = Profile("fancy")
	assert.Error(t, err)
}

func TestTDTargets(t *testing.T) {
	target := newFakeQ(1, 3)
	batch := expreplay.Batch{
		NextStates: mat.NewDense(3, 1, nil),
		Actions:    []int{0, 1, 0},
		Rewards:    []float64{1, 2, -1},
		Dones:      []bool{false, true, false},
	}

	targets, err := TDTargets(batch, target, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []float64{1 + 0.5*3, 2, -1 + 0.5*3}, targets)

	// Terminal targets ignore the predicted values completely
	target = newFakeQ(math.Inf(1), math.NaN())
	targets, err = TDTargets(batch, target, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 2.0, targets[1])
}

func TestHardSync(t *testing.T) {
	main, target := newFakeQ(1, 2), newFakeQ(0, 0)
	sync, err := NewTargetSync(main, target, 0, 3)
	require.NoError(t, err)

	// Initialized with the main weights
	assert.True(t, mat.Equal(main.w, target.w))

	for step := 1; step <= 6; step++ {
		_, err := main.Update(nil, nil, nil)
		require.NoError(t, err)
		before := mat.DenseCopyOf(target.w)

		updated, err := sync.MaybeUpdate(step)
		require.NoError(t, err)
		assert.Equal(t, step%3 == 0, updated, "step %v", step)

		if updated {
			assert.True(t, mat.Equal(main.w, target.w), "step %v", step)
		} else {
			assert.True(t, mat.Equal(before, target.w), "step %v", step)
		}
	}
	assert.Equal(t, 2, sync.Updates())

	updated, err := sync.MaybeUpdate(0)
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestPolyakSync(t *testing.T) {
	polyak := 0.9
	main, target := newFakeQ(0.3, -1.7), newFakeQ(0, 0)
	sync, err := NewTargetSync(main, target, polyak, 1)
	require.NoError(t, err)

	for step := 1; step <= 5; step++ {
		_, err := main.Update(nil, nil, nil)
		require.NoError(t, err)
		old := mat.DenseCopyOf(target.w)

		updated, err := sync.MaybeUpdate(step)
		require.NoError(t, err)
		require.True(t, updated)

		for j := 0; j < 2; j++ {
			want := float64(polyak*old.At(0, j)) +
				float64((1-polyak)*main.w.At(0, j))
			assert.Equal(t, want, target.w.At(0, j))
		}
	}
}

func TestDifference(t *testing.T) {
	a := agent.Weights{
		"W": mat.NewDense(1, 2, []float64{1, -2}),
		"b": mat.NewDense(1, 1, []float64{3}),
	}
	b := agent.Weights{
		"W": mat.NewDense(1, 2, []float64{0, 2}),
		"b": mat.NewDense(1, 1, []float64{3.5}),
	}
	diff, err := Difference(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 5.5, diff, 1e-12)

	delete(b, "b")
	_, err = Difference(a, b)
	assert.Error(t, err)
}

func TestStepCadence(t *testing.T) {
	env := &fakeEnv{actions: 2, episodeSteps: 4}
	q := newFakeQ(0, 0)
	trainer := newTrainer(t, env, q, newFakeQ(0, 0), testConfig())

	stats, err := trainer.RunEpoch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, env.steps)
	assert.Equal(t, 3, env.resets)
	assert.Equal(t, 10, q.updates)
	assert.Equal(t, 10, trainer.Steps())
	assert.Equal(t, 10, trainer.GradientSteps())
	assert.Equal(t, 10, trainer.Replay().Len())

	assert.Equal(t, 0, stats.Epoch)
	assert.Equal(t, 10, stats.TotalSteps)
	assert.Equal(t, 10, stats.Updates)
	assert.Equal(t, 2, stats.Episodes)
	assert.Equal(t, 2, stats.TotalEpisodes)
	assert.Equal(t, 4.0, stats.AvgReturn)
	assert.InDelta(t, 10.0/3.0, stats.AvgEpisodeLength, 1e-12)
	assert.InDelta(t, 4.5, stats.Loss, 1e-12) // mean of 0, ..., 9
	assert.InDelta(t, 1-0.99*10.0/100.0, stats.Epsilon, 1e-12)
	assert.Equal(t, 1, trainer.Epoch())

	// Sampled batches are passed through to the update
	r, c := q.obs.Dims()
	assert.Equal(t, [2]int{4, 1}, [2]int{r, c})
	assert.Len(t, q.actions, 4)
	assert.Len(t, q.targets, 4)
}

func TestEpisodeCadence(t *testing.T) {
	env := &fakeEnv{actions: 2, episodeSteps: 4}
	q := newFakeQ(0, 0)
	env.q = q

	c := testConfig()
	c.UpdateCadence = EpisodeCadence
	trainer := newTrainer(t, env, q, newFakeQ(0, 0), c)

	stats, err := trainer.RunEpoch(context.Background())
	require.NoError(t, err)

	// Updates happen at episode boundaries, one per step collected
	assert.Equal(t, []int{0, 0, 0, 0, 4, 4, 4, 4, 8, 8}, env.updatesAtSteps)
	assert.Equal(t, 10, q.updates)
	assert.Equal(t, 10, stats.Updates)
	assert.Equal(t, 10, trainer.GradientSteps())
}

func TestTargetSyncedOnGradientSteps(t *testing.T) {
	env := &fakeEnv{actions: 2, episodeSteps: 100}
	q, target := newFakeQ(0, 0), newFakeQ(0, 0)

	c := testConfig()
	c.Polyak = 0
	c.TargetUpdateFreq = 4
	trainer := newTrainer(t, env, q, target, c)

	stats, err := trainer.RunEpoch(context.Background())
	require.NoError(t, err)

	// Synced at gradient steps 4 and 8, when the weights were 8
	assert.Equal(t, 2, trainer.Sync().Updates())
	assert.Equal(t, []float64{8, 8}, target.w.RawRowView(0))
	assert.Equal(t, []float64{10, 10}, q.w.RawRowView(0))
	assert.InDelta(t, 4.0, stats.NetworkDiff, 1e-12)
}

func TestNoCompletedEpisodes(t *testing.T) {
	env := &fakeEnv{actions: 2, episodeSteps: 100}
	c := testConfig()
	c.EpochSteps = 5
	trainer := newTrainer(t, env, newFakeQ(0, 0), newFakeQ(0, 0), c)

	stats, err := trainer.RunEpoch(context.Background())
	require.NoError(t, err)
	assert.True(t, math.IsNaN(stats.AvgReturn))
	assert.Equal(t, 5.0, stats.AvgEpisodeLength)
	assert.Equal(t, 0, stats.Episodes)
}

func TestMeanOfNothing(t *testing.T) {
	assert.True(t, math.IsNaN(mean(nil)))
	assert.Equal(t, 2.0, mean([]float64{1, 3}))
}

func TestContextCancelled(t *testing.T) {
	env := &fakeEnv{actions: 2, episodeSteps: 4}
	q := newFakeQ(0, 0)
	trainer := newTrainer(t, env, q, newFakeQ(0, 0), testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The step in progress is completed before stopping
	_, err := trainer.RunEpoch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, env.steps)
	assert.Equal(t, 1, trainer.Replay().Len())
	assert.Equal(t, 1, q.updates)
	assert.Equal(t, 0, trainer.Epoch())

	epochs, err := trainer.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, epochs)
}

func TestEnvironmentErrorUnmodified(t *testing.T) {
	fail := fmt.Errorf("simulator exploded")
	env := &fakeEnv{actions: 2, episodeSteps: 4, errAt: 3, err: fail}
	trainer := newTrainer(t, env, newFakeQ(0, 0), newFakeQ(0, 0), testConfig())

	_, err := trainer.RunEpoch(context.Background())
	assert.Equal(t, fail, err)
	assert.Equal(t, 2, trainer.Replay().Len())
}

func TestRunLogsAndCheckpoints(t *testing.T) {
	env := &fakeEnv{actions: 2, episodeSteps: 4}
	c := testConfig()
	c.Epochs = 3

	out := &recordingLogger{}
	trainer, err := New(env, newFakeQ(0, 0), newFakeQ(0, 0), c, out,
		quietLogger())
	require.NoError(t, err)

	check := &recordingCheckpointer{}
	trainer.RegisterCheckpointer(check)
	lengths := tracker.NewEpisodeLength(filepath.Join(t.TempDir(), "l.bin"))
	trainer.Register(lengths)

	epochs, err := trainer.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, epochs, 3)

	assert.Equal(t, []string{"epoch", "loss", "avg_return", "avg_ep_len",
		"total_eps", "total_steps", "epsilon", "ntwk_diff", "epoch_time",
		"mem_usage", "time_rem"}, out.keys)
	assert.Equal(t, 3, out.dumps)
	assert.Equal(t, 2, out.rows[2]["epoch"])
	assert.Equal(t, 0.0, out.rows[2]["time_rem"])

	assert.Equal(t, []checkpoint{{0, false}, {1, false}, {2, true}},
		check.calls)

	// 30 steps in episodes of 4, with each epoch truncating its last
	// episode at 2 steps
	assert.Equal(t, []int{4, 4, 4, 4, 4, 4}, lengths.Data())
	assert.Equal(t, 6, epochs[2].TotalEpisodes)

	// Training is complete
	more, err := trainer.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, more)
}

func TestEvaluateIsGreedy(t *testing.T) {
	env := &fakeEnv{actions: 3, episodeSteps: 5}
	q := newFakeQ(0, 2, 1)
	trainer := newTrainer(t, env, q, newFakeQ(0, 0, 0), testConfig())

	returns, err := trainer.Evaluate(context.Background(), 2, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 5}, returns)

	assert.Len(t, env.taken, 10)
	for _, a := range env.taken {
		assert.Equal(t, 1, a)
	}

	// Nothing is learned
	assert.Equal(t, 0, q.updates)
	assert.Equal(t, 0, trainer.Replay().Len())
	assert.Equal(t, 0, trainer.Steps())

	_, err = trainer.Evaluate(context.Background(), 1, true)
	assert.Error(t, err, "fake environment cannot be rendered")
}

func TestBatchSizeMismatch(t *testing.T) {
	env := &fakeEnv{actions: 2, episodeSteps: 4}
	q := &batchedQ{fakeQ: newFakeQ(0, 0), batch: 8}

	_, err := New(env, q, newFakeQ(0, 0), testConfig(), nil, quietLogger())
	assert.True(t, errors.Is(err, ErrDimensionMismatch), "%v", err)
}

type batchedQ struct {
	*fakeQ
	batch int
}

func (b *batchedQ) BatchSize() int { return b.batch }

func TestProgressBar(t *testing.T) {
	env := &fakeEnv{actions: 2, episodeSteps: 4}
	trainer := newTrainer(t, env, newFakeQ(0, 0), newFakeQ(0, 0), testConfig())

	var buf bytes.Buffer
	trainer.SetProgressBar(&buf)
	_, err := trainer.RunEpoch(context.Background())
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "100.00%")
}
