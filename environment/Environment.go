// Package environment outlines the interfaces and structs needed to
// implement concrete environments
package environment

import (
	"github.com/samuelfneumann/godqn/timestep"
	"gonum.org/v1/gonum/mat"
)

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() *mat.VecDense
}

// Ender determines when an episode should end. If End returns true, it
// has set the StepType of the argument TimeStep to timestep.Last.
type Ender interface {
	End(*timestep.TimeStep) bool
}

// Task implements the reward scheme, start state distribution, and
// episode termination of some environment
type Task interface {
	Starter
	Ender
	GetReward(state, action, nextState mat.Vector) float64
	AtGoal(state mat.Vector) bool
	Min() float64 // Minimum attainable reward
	Max() float64 // Maximum attainable reward
}

// Environment implements a simulated environment, which includes a Task
// to complete.
//
// Errors returned by Reset and Step are failures of the simulator
// itself.
type Environment interface {
	Reset() (timestep.TimeStep, error)
	Step(action *mat.VecDense) (timestep.TimeStep, bool, error)
	DiscountSpec() Spec
	ObservationSpec() Spec
	ActionSpec() Spec
}

// Renderer is an Environment which can render its current state
type Renderer interface {
	Environment
	Render() error
}
