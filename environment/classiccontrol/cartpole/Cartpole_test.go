package cartpole

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	env "github.com/samuelfneumann/godqn/environment"
	ts "github.com/samuelfneumann/godqn/timestep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

type fixedStarter []float64

func (f fixedStarter) Start() *mat.VecDense {
	return mat.NewVecDense(len(f), append([]float64(nil), f...))
}

func newDiscrete(t *testing.T, start []float64, cutoff int) *Discrete {
	t.Helper()

	task, err := NewBalance(fixedStarter(start), cutoff, FailAngle)
	require.NoError(t, err)
	c, err := NewDiscrete(task, 0.99)
	require.NoError(t, err)
	return c
}

func action(a float64) *mat.VecDense {
	return mat.NewVecDense(1, []float64{a})
}

func TestDiscreteSpecs(t *testing.T) {
	c := newDiscrete(t, []float64{0, 0, 0, 0}, 0)

	n, err := env.DiscreteActions(c.ActionSpec())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, ObservationDims, c.ObservationSpec().Shape.Len())
	assert.Equal(t, 0.99, c.DiscountSpec().LowerBound.AtVec(0))
}

func TestContinuousActionSpec(t *testing.T) {
	task, err := NewBalance(fixedStarter{0, 0, 0, 0}, 0, FailAngle)
	require.NoError(t, err)
	c, err := NewContinuous(task, 1.0)
	require.NoError(t, err)

	assert.Equal(t, env.Continuous, c.ActionSpec().Cardinality)
	_, err = env.DiscreteActions(c.ActionSpec())
	assert.Error(t, err)

	_, err = c.Reset()
	require.NoError(t, err)
	_, _, err = c.Step(action(0.5))
	assert.NoError(t, err)
	_, _, err = c.Step(action(1.5))
	assert.Error(t, err)
}

func TestStepBeforeReset(t *testing.T) {
	c := newDiscrete(t, []float64{0, 0, 0, 0}, 0)
	_, _, err := c.Step(action(1))
	assert.Error(t, err)
}

func TestIllegalAction(t *testing.T) {
	c := newDiscrete(t, []float64{0, 0, 0, 0}, 0)
	_, err := c.Reset()
	require.NoError(t, err)

	for _, a := range []float64{-1, 3, 0.5} {
		_, _, err := c.Step(action(a))
		assert.Error(t, err, "action %v", a)
	}
	_, _, err = c.Step(mat.NewVecDense(2, nil))
	assert.Error(t, err)
}

func TestResetInvalidStart(t *testing.T) {
	c := newDiscrete(t, []float64{10, 0, 0, 0}, 0)
	_, err := c.Reset()
	assert.Error(t, err)
}

func TestPhysics(t *testing.T) {
	c := newDiscrete(t, []float64{0, 0, 0, 0}, 0)
	first, err := c.Reset()
	require.NoError(t, err)
	assert.True(t, first.First())

	// Doing nothing from rest keeps the cart at rest
	step, done, err := c.Step(action(1))
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, 1.0, step.Reward)
	assert.Equal(t, 1, step.Number)
	assert.True(t, mat.Equal(mat.NewVecDense(4, nil), step.Observation))

	// Pushing right accelerates the cart right and the pole left
	step, _, err = c.Step(action(2))
	require.NoError(t, err)
	assert.Equal(t, 0.0, step.Observation.AtVec(0))
	assert.Greater(t, step.Observation.AtVec(1), 0.0)
	assert.Less(t, step.Observation.AtVec(3), 0.0)

	xAcc := step.Observation.AtVec(1) / Dt
	assert.InDelta(t, 9.756, xAcc, 1e-3)
}

func TestPoleFalls(t *testing.T) {
	c := newDiscrete(t, []float64{0, 0, 0.1, 0}, 0)
	_, err := c.Reset()
	require.NoError(t, err)

	var step ts.TimeStep
	done := false
	for i := 0; i < 500 && !done; i++ {
		step, done, err = c.Step(action(1))
		require.NoError(t, err)
	}

	require.True(t, done)
	assert.Equal(t, -1.0, step.Reward)
	assert.Equal(t, ts.TerminalStateReached, step.EndType())
	assert.Greater(t, math.Abs(step.Observation.AtVec(2)), FailAngle)

	_, _, err = c.Step(action(1))
	assert.Error(t, err, "stepping past the end of an episode")
}

func TestEpisodeCutoff(t *testing.T) {
	c := newDiscrete(t, []float64{0, 0, 0, 0}, 5)
	_, err := c.Reset()
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		step, done, err := c.Step(action(1))
		require.NoError(t, err)
		assert.Equal(t, i == 5, done)
		if done {
			assert.Equal(t, ts.Timeout, step.EndType())
		}
	}
}

func TestNormalizeAngle(t *testing.T) {
	bounds := r1.Interval{Min: -math.Pi, Max: math.Pi}
	assert.InDelta(t, -math.Pi+0.5, normalizeAngle(math.Pi+0.5, bounds), 1e-12)
	assert.InDelta(t, math.Pi-0.5, normalizeAngle(-math.Pi-0.5, bounds), 1e-12)
	assert.Equal(t, 0.3, normalizeAngle(0.3, bounds))
}

func TestNewBalanceInvalid(t *testing.T) {
	_, err := NewBalance(nil, 0, FailAngle)
	assert.Error(t, err)
	_, err = NewBalance(fixedStarter{0, 0, 0, 0}, -1, FailAngle)
	assert.Error(t, err)
	_, err = NewBalance(fixedStarter{0, 0, 0, 0}, 0, 0)
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	r, err := NewFrameRenderer(dir)
	require.NoError(t, err)

	c := newDiscrete(t, []float64{0.5, 0, 0.05, 0}, 0)
	assert.Error(t, c.Render(), "no renderer")

	c.SetRenderer(r)
	_, err = c.Reset()
	require.NoError(t, err)
	require.NoError(t, c.Render())
	_, _, err = c.Step(action(0))
	require.NoError(t, err)
	require.NoError(t, c.Render())

	assert.Equal(t, 2, r.Frames())
	for _, name := range []string{"frame_000000.png", "frame_000001.png"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}
