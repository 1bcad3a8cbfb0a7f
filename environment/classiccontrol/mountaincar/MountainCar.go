// Package mountaincar implements the Mountain Car classic control
// environment
package mountaincar

import (
	"fmt"
	"math"

	env "github.com/samuelfneumann/godqn/environment"
	ts "github.com/samuelfneumann/godqn/timestep"
	"github.com/samuelfneumann/godqn/utils/floatutils"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

const (
	MinPosition float64 = -1.2
	MaxPosition float64 = 0.6
	MaxSpeed    float64 = 0.07
	Power       float64 = 0.0015 // Engine power
	Gravity     float64 = 0.0025

	ActionDims      int = 1
	ObservationDims int = 2

	// Discrete Actions Env
	MinDiscreteAction int = 0
	MaxDiscreteAction int = 2

	// Continuous Actions Env
	MinContinuousAction float64 = -1.0
	MaxContinuousAction float64 = 1.0
)

// base implements the physics of Mountain Car shared by the Discrete
// and Continuous variants, which translate their actions into a force
// in [-1, 1] before calling nextState.
//
// The state consists of the car's x position and velocity, bounded by
// the constants defined in this package.
type base struct {
	env.Task
	positionBounds r1.Interval
	speedBounds    r1.Interval
	lastStep       ts.TimeStep
	discount       float64
}

func newBase(t env.Task, discount float64) (*base, error) {
	if t == nil {
		return nil, fmt.Errorf("newBase: task must not be nil")
	}
	if discount < 0 || discount > 1 {
		return nil, fmt.Errorf("newBase: discount must be in [0, 1] "+
			"\n\thave(%v)", discount)
	}

	return &base{
		Task:           t,
		positionBounds: r1.Interval{Min: MinPosition, Max: MaxPosition},
		speedBounds:    r1.Interval{Min: -MaxSpeed, Max: MaxSpeed},
		discount:       discount,
	}, nil
}

// ObservationSpec returns the observation specification of the
// environment
func (m *base) ObservationSpec() env.Spec {
	shape := mat.NewVecDense(ObservationDims, nil)
	lowerBound := mat.NewVecDense(ObservationDims, []float64{
		m.positionBounds.Min, m.speedBounds.Min})
	upperBound := mat.NewVecDense(ObservationDims, []float64{
		m.positionBounds.Max, m.speedBounds.Max})

	return env.NewSpec(shape, env.Observation, lowerBound,
		upperBound, env.Continuous)
}

// DiscountSpec returns the discounting specification of the environment
func (m *base) DiscountSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{m.discount})
	upperBound := mat.NewVecDense(1, []float64{m.discount})

	return env.NewSpec(shape, env.Discount, lowerBound,
		upperBound, env.Continuous)
}

// Reset resets the environment and returns a starting state drawn from
// the environment Starter
func (m *base) Reset() (ts.TimeStep, error) {
	state := m.Start()
	if err := m.validateState(state); err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %v", err)
	}

	m.lastStep = ts.New(ts.First, 0, m.discount, state, 0)
	return m.lastStep, nil
}

// nextState calculates the state reached by applying force for a
// single step
func (m *base) nextState(force float64) *mat.VecDense {
	state := m.lastStep.Observation
	position, velocity := state.AtVec(0), state.AtVec(1)

	velocity += force*Power - Gravity*math.Cos(3*position)
	velocity = floatutils.ClipInterval(velocity, m.speedBounds)

	position += velocity
	position = floatutils.ClipInterval(position, m.positionBounds)

	// The car stops against the left wall
	if position <= m.positionBounds.Min && velocity < 0 {
		velocity = 0
	}

	return mat.NewVecDense(ObservationDims, []float64{position, velocity})
}

func (m *base) ready() error {
	if m.lastStep.Observation == nil {
		return fmt.Errorf("step: environment must be reset before stepping")
	}
	if m.lastStep.Last() {
		return fmt.Errorf("step: cannot step past the end of an episode")
	}
	return nil
}

// update moves the environment to nextState, which was reached by
// taking action a, and returns the resulting TimeStep
func (m *base) update(a, nextState *mat.VecDense) (ts.TimeStep, bool, error) {
	reward := m.GetReward(m.lastStep.Observation, a, nextState)
	nextStep := ts.New(ts.Mid, reward, m.discount, nextState,
		m.lastStep.Number+1)

	m.End(&nextStep)

	m.lastStep = nextStep
	return nextStep, nextStep.Last(), nil
}

func (m *base) validateState(s *mat.VecDense) error {
	if s.Len() != ObservationDims {
		return fmt.Errorf("invalid state dimension \n\twant(%v) \n\thave(%v)",
			ObservationDims, s.Len())
	}

	position := s.AtVec(0)
	if position < m.positionBounds.Min || position > m.positionBounds.Max {
		return fmt.Errorf("illegal position %v ∉ [%v, %v]", position,
			m.positionBounds.Min, m.positionBounds.Max)
	}

	speed := s.AtVec(1)
	if speed < m.speedBounds.Min || speed > m.speedBounds.Max {
		return fmt.Errorf("illegal speed %v ∉ [%v, %v]", speed,
			m.speedBounds.Min, m.speedBounds.Max)
	}
	return nil
}

func (m *base) String() string {
	if m.lastStep.Observation == nil {
		return "Mountain Car"
	}
	state := m.lastStep.Observation
	return fmt.Sprintf("Mountain Car  |  Position: %v  |  Speed: %v",
		state.AtVec(0), state.AtVec(1))
}
