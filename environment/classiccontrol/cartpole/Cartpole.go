// Package cartpole implements the Cartpole classic control environment
package cartpole

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
	// Physical constants
	Gravity        float64 = 9.8
	CartMass       float64 = 1.0
	PoleMass       float64 = 0.1
	TotalMass      float64 = CartMass + PoleMass
	HalfPoleLength float64 = 0.5  // half of pole length
	ForceMag       float64 = 10.0 // Magnification of force applied
	Dt             float64 = 0.02 // seconds between state updates

	// Bounds (+/-) on state variabels
	PositionBounds        float64 = 4.8
	SpeedBounds           float64 = math.MaxFloat64
	AngleBounds           float64 = math.Pi
	AngularVelocityBounds float64 = math.MaxFloat64

	// Action bounds
	ActionDims          int     = 1
	MinDiscreteAction   int     = 0
	MaxDiscreteAction   int     = 2
	MinContinuousAction float64 = -1.0
	MaxContinuousAction float64 = 1.0

	ObservationDims int = 4
)

// base implements the physics of the classic control environment
// Cartpole, which is shared by the Discrete and Continuous variants.
// Applying force to the cart is implemented by the variants, which
// translate their actions into a direction and magnitude in [-1, 1]
// before calling nextState.
type base struct {
	env.Task
	lastStep              ts.TimeStep
	discount              float64
	positionBounds        r1.Interval
	speedBounds           r1.Interval
	angleBounds           r1.Interval
	angularVelocityBounds r1.Interval

	renderer *FrameRenderer
}

// newBase constructs a new base Cartpole environment. The environment
// must be Reset before it is stepped.
func newBase(t env.Task, discount float64) (*base, error) {
	if t == nil {
		return nil, fmt.Errorf("newBase: task must not be nil")
	}
	if discount < 0 || discount > 1 {
		return nil, fmt.Errorf("newBase: discount must be in [0, 1] "+
			"\n\thave(%v)", discount)
	}

	return &base{
		Task:                  t,
		discount:              discount,
		positionBounds:        r1.Interval{Min: -PositionBounds, Max: PositionBounds},
		speedBounds:           r1.Interval{Min: -SpeedBounds, Max: SpeedBounds},
		angleBounds:           r1.Interval{Min: -AngleBounds, Max: AngleBounds},
		angularVelocityBounds: r1.Interval{Min: -AngularVelocityBounds, Max: AngularVelocityBounds},
	}, nil
}

// Reset resets the environment and returns a starting state drawn from
// the environment Starter
func (c *base) Reset() (ts.TimeStep, error) {
	state := c.Start()
	if err := c.validateState(state); err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %v", err)
	}

	startStep := ts.New(ts.First, 0, c.discount, state, 0)
	c.lastStep = startStep

	return startStep, nil
}

// ObservationSpec returns the observation specification of the
// environment
func (c *base) ObservationSpec() env.Spec {
	shape := mat.NewVecDense(ObservationDims, nil)

	lower := []float64{c.positionBounds.Min, c.speedBounds.Min,
		c.angleBounds.Min, c.angularVelocityBounds.Min}
	lowerBound := mat.NewVecDense(ObservationDims, lower)

	upper := []float64{c.positionBounds.Max, c.speedBounds.Max,
		c.angleBounds.Max, c.angularVelocityBounds.Max}
	upperBound := mat.NewVecDense(ObservationDims, upper)

	return env.NewSpec(shape, env.Observation, lowerBound,
		upperBound, env.Continuous)
}

// DiscountSpec returns the discounting specification of the environment
func (c *base) DiscountSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{c.discount})
	upperBound := mat.NewVecDense(1, []float64{c.discount})

	return env.NewSpec(shape, env.Discount, lowerBound,
		upperBound, env.Continuous)
}

// nextState computes the state after applying force in the argument
// direction, scaled by ForceMag, for Dt seconds
func (c *base) nextState(direction float64) *mat.VecDense {
	// Get state variables
	state := c.lastStep.Observation
	x, xDot := state.AtVec(0), state.AtVec(1)
	th, thDot := state.AtVec(2), state.AtVec(3)

	force := direction * ForceMag

	// Calculate physical variables to determine next state
	cosTheta := math.Cos(th)
	sinTheta := math.Sin(th)

	poleMassLength := PoleMass * HalfPoleLength

	temp := (force + poleMassLength*thDot*thDot*sinTheta) / TotalMass
	thAcc := (Gravity*sinTheta - cosTheta*temp) / (HalfPoleLength *
		(4.0/3.0 - PoleMass*cosTheta*cosTheta/TotalMass))
	xAcc := temp - poleMassLength*thAcc*cosTheta/TotalMass

	// Update state variables using Euler kinematic integration
	x += (Dt * xDot)
	xDot += (Dt * xAcc)
	th += (Dt * thDot)
	thDot += (Dt * thAcc)

	// Upon reaching a position boundary, the cart stops
	if x < c.positionBounds.Min || x > c.positionBounds.Max {
		x = floatutils.ClipInterval(x, c.positionBounds)
		xDot = 0.0
	}
	th = normalizeAngle(th, c.angleBounds)

	return mat.NewVecDense(ObservationDims, []float64{x, xDot, th, thDot})
}

// ready returns an error if the environment cannot currently be
// stepped
func (c *base) ready() error {
	if c.lastStep.Observation == nil {
		return fmt.Errorf("step: environment must be reset before stepping")
	}
	if c.lastStep.Last() {
		return fmt.Errorf("step: cannot step past the end of an episode")
	}
	return nil
}

// update moves the environment to nextState, which was reached by
// taking action a, and returns the resulting TimeStep
func (c *base) update(a, nextState *mat.VecDense) (ts.TimeStep, bool, error) {
	reward := c.GetReward(c.lastStep.Observation, a, nextState)
	nextStep := ts.New(ts.Mid, reward, c.discount, nextState,
		c.lastStep.Number+1)

	// Check if the step ends the episode
	c.End(&nextStep)

	c.lastStep = nextStep
	return nextStep, nextStep.Last(), nil
}

// State returns a copy of the current state of the environment
func (c *base) State() *mat.VecDense {
	return mat.VecDenseCopyOf(c.lastStep.Observation)
}

// SetRenderer sets the renderer used by Render
func (c *base) SetRenderer(r *FrameRenderer) {
	c.renderer = r
}

// Render renders the current state of the environment
func (c *base) Render() error {
	if c.renderer == nil {
		return fmt.Errorf("render: no renderer set")
	}
	if c.lastStep.Observation == nil {
		return fmt.Errorf("render: environment must be reset before " +
			"rendering")
	}
	return c.renderer.Render(c.lastStep.Observation)
}

// validateState ensures that a state observation is valid and between
// the physical bounds of the Cartpole environment
func (c *base) validateState(obs *mat.VecDense) error {
	if obs.Len() != ObservationDims {
		return fmt.Errorf("invalid state dimension \n\twant(%v) \n\thave(%v)",
			ObservationDims, obs.Len())
	}

	bounds := []r1.Interval{c.positionBounds, c.speedBounds, c.angleBounds,
		c.angularVelocityBounds}
	names := []string{"position", "speed", "angle", "angular velocity"}
	for i, bound := range bounds {
		if obs.AtVec(i) < bound.Min || obs.AtVec(i) > bound.Max {
			return fmt.Errorf("%v is not within bounds %v", names[i], bound)
		}
	}
	return nil
}

func (c *base) String() string {
	if c.lastStep.Observation == nil {
		return "Cartpole"
	}

	msg := "Cartpole  |  Position: %v  | Speed: %v  |  Angle: %v" +
		"  |  Angular Velocity: %v"

	state := c.lastStep.Observation
	position, speed := state.AtVec(0), state.AtVec(1)
	angle, velocity := state.AtVec(2), state.AtVec(3)

	return fmt.Sprintf(msg, position, speed, angle, velocity)
}

// normalizeAngle normalizes the pole angle to (-π, π]
func normalizeAngle(th float64, angleBounds r1.Interval) float64 {
	for th > angleBounds.Max {
		th -= 2 * math.Pi
	}
	for th <= angleBounds.Min {
		th += 2 * math.Pi
	}
	return th
}
