package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Transition is a single observed (s, a, r, s', done) tuple. Actions
// are discrete and stored as their integer index.
type Transition struct {
	State     *mat.VecDense
	Action    int
	Reward    float64
	NextState *mat.VecDense
	Done      bool
}

// NewTransition creates a Transition from the timestep in which action
// was taken and the timestep the environment moved to as a result.
// The transition is terminal if next is the last step of its episode.
func NewTransition(step TimeStep, action int, next TimeStep) Transition {
	return Transition{
		State:     step.Observation,
		Action:    action,
		Reward:    next.Reward,
		NextState: next.Observation,
		Done:      next.Last(),
	}
}

func (t Transition) String() string {
	return fmt.Sprintf("Transition | Action: %d  |  Reward: %.2f  |  "+
		"Done: %v", t.Action, t.Reward, t.Done)
}
