package mountaincar

import (
	"fmt"

	env "github.com/samuelfneumann/godqn/environment"
	ts "github.com/samuelfneumann/godqn/timestep"
	"gonum.org/v1/gonum/mat"
)

// Continuous implements Mountain Car with continuous actions. Actions
// are a single force in [-1, 1], where negative values accelerate the
// car left and positive values accelerate it right.
type Continuous struct {
	*base
}

// NewContinuous creates a new Continuous action Mountain Car
// environment with the argument task
func NewContinuous(t env.Task, discount float64) (*Continuous, error) {
	base, err := newBase(t, discount)
	if err != nil {
		return nil, fmt.Errorf("newContinuous: %v", err)
	}
	return &Continuous{base}, nil
}

// ActionSpec returns the action specification of the environment
func (m *Continuous) ActionSpec() env.Spec {
	shape := mat.NewVecDense(ActionDims, nil)
	lowerBound := mat.NewVecDense(ActionDims, []float64{MinContinuousAction})
	upperBound := mat.NewVecDense(ActionDims, []float64{MaxContinuousAction})

	return env.NewSpec(shape, env.Action, lowerBound,
		upperBound, env.Continuous)
}

// Step takes one environmental step given action a
func (m *Continuous) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	if a.Len() != ActionDims {
		return ts.TimeStep{}, false, fmt.Errorf("step: actions should be " +
			"1-dimensional")
	}

	force := a.AtVec(0)
	if force < MinContinuousAction || force > MaxContinuousAction {
		return ts.TimeStep{}, false, fmt.Errorf("step: illegal action %v "+
			"∉ [-1, 1]", force)
	}
	if err := m.ready(); err != nil {
		return ts.TimeStep{}, false, err
	}

	return m.update(a, m.nextState(force))
}
