package mountaincar

import (
	"fmt"

	env "github.com/samuelfneumann/godqn/environment"
	ts "github.com/samuelfneumann/godqn/timestep"
	"gonum.org/v1/gonum/mat"
)

// Discrete implements the classic control Mountain Car environment
// with discrete actions. The agent controls a car in a valley between
// two hills. The car is underpowered and cannot drive up the hill
// unless it rocks back and forth, using its momentum to climb higher.
//
// Actions determine in which direction to apply full accelerating
// force to the car:
//
//	Action	Meaning
//	  0		Accelerate left
//	  1		Do nothing
//	  2		Accelerate right
//
// Illegal actions cause Step to return an error.
type Discrete struct {
	*base
}

// NewDiscrete creates a new Discrete action Mountain Car environment
// with the argument task
func NewDiscrete(t env.Task, discount float64) (*Discrete, error) {
	base, err := newBase(t, discount)
	if err != nil {
		return nil, fmt.Errorf("newDiscrete: %v", err)
	}
	return &Discrete{base}, nil
}

// ActionSpec returns the action specification of the environment
func (m *Discrete) ActionSpec() env.Spec {
	shape := mat.NewVecDense(ActionDims, nil)
	lowerBound := mat.NewVecDense(ActionDims, []float64{float64(MinDiscreteAction)})
	upperBound := mat.NewVecDense(ActionDims, []float64{float64(MaxDiscreteAction)})

	return env.NewSpec(shape, env.Action, lowerBound,
		upperBound, env.Discrete)
}

// Step takes one environmental step given action a and returns the next
// timestep and whether or not the episode has ended
func (m *Discrete) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	if a.Len() != ActionDims {
		return ts.TimeStep{}, false, fmt.Errorf("step: actions should be " +
			"1-dimensional")
	}

	action := a.AtVec(0)
	intAction := int(action)
	if float64(intAction) != action || intAction < MinDiscreteAction ||
		intAction > MaxDiscreteAction {
		return ts.TimeStep{}, false, fmt.Errorf("step: illegal action %v "+
			"∉ (0, 1, 2)", action)
	}
	if err := m.ready(); err != nil {
		return ts.TimeStep{}, false, err
	}

	return m.update(a, m.nextState(action-1))
}
