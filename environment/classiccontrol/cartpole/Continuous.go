package cartpole

import (
	"fmt"

	env "github.com/samuelfneumann/godqn/environment"
	ts "github.com/samuelfneumann/godqn/timestep"
	"gonum.org/v1/gonum/mat"
)

// Continuous implements the classic control environment Cartpole with
// continuous actions. Actions are a single force in [-1, 1], where
// negative values push the cart left and positive values push it
// right. The physics are identical to Discrete.
type Continuous struct {
	*base
}

// NewContinuous constructs a new Cartpole environment with continuous
// actions
func NewContinuous(t env.Task, discount float64) (*Continuous, error) {
	base, err := newBase(t, discount)
	if err != nil {
		return nil, fmt.Errorf("newContinuous: %v", err)
	}
	return &Continuous{base}, nil
}

// ActionSpec returns the action specification of the environment
func (c *Continuous) ActionSpec() env.Spec {
	shape := mat.NewVecDense(ActionDims, nil)
	lowerBound := mat.NewVecDense(ActionDims, []float64{MinContinuousAction})
	upperBound := mat.NewVecDense(ActionDims, []float64{MaxContinuousAction})

	return env.NewSpec(shape, env.Action, lowerBound,
		upperBound, env.Continuous)
}

// Step takes one environmental step given action a and returns the next
// state as a timestep.TimeStep and a bool indicating whether or not the
// episode has ended
func (c *Continuous) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	if a.Len() != ActionDims {
		return ts.TimeStep{}, false, fmt.Errorf("step: actions should be " +
			"1-dimensional")
	}

	// Continuous action in [-1, 1]
	directionMagnitude := a.AtVec(0)

	// Ensure a legal action was selected
	if directionMagnitude < MinContinuousAction ||
		directionMagnitude > MaxContinuousAction {
		return ts.TimeStep{}, false, fmt.Errorf("step: illegal action %v "+
			"∉ [-1, 1]", directionMagnitude)
	}
	if err := c.ready(); err != nil {
		return ts.TimeStep{}, false, err
	}

	// Calculate the next state given the direction to apply force
	nextState := c.nextState(directionMagnitude)

	// Update the embedded base Cartpole environment
	return c.update(a, nextState)
}
