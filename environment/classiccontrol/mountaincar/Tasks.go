package mountaincar

import (
	"fmt"
	"math"

	env "github.com/samuelfneumann/godqn/environment"
	ts "github.com/samuelfneumann/godqn/timestep"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

const (
	// Commonly used goal position
	GoalPosition float64 = 0.45
)

// Goal implements the task of driving the car up the right hill to
// a goal position.
//
// Rewards are -1 on each timestep and 0 for the action which
// transitions the car to the goal. Episodes end after a step limit or
// when the car reaches the goal.
type Goal struct {
	env.Starter
	goalEnder *env.IntervalLimit
	stepEnder *env.StepLimit
	goalX     float64 // x position of goal
}

// NewGoal creates and returns a new Goal task. Episodes are cut off
// after episodeSteps steps, or never if episodeSteps is 0.
func NewGoal(s env.Starter, episodeSteps int, goalX float64) (*Goal, error) {
	if s == nil {
		return nil, fmt.Errorf("newGoal: starter must not be nil")
	}
	if episodeSteps < 0 {
		return nil, fmt.Errorf("newGoal: episode steps must be "+
			"non-negative \n\thave(%v)", episodeSteps)
	}
	if goalX <= MinPosition || goalX > MaxPosition {
		return nil, fmt.Errorf("newGoal: goal must be in (%v, %v] "+
			"\n\thave(%v)", MinPosition, MaxPosition, goalX)
	}

	interval := []r1.Interval{{Min: math.Inf(-1), Max: goalX}}
	goalEnder, err := env.NewIntervalLimit(interval, []int{0},
		ts.TerminalStateReached)
	if err != nil {
		return nil, fmt.Errorf("newGoal: %v", err)
	}

	return &Goal{s, goalEnder, env.NewStepLimit(episodeSteps), goalX}, nil
}

// AtGoal returns whether or not state is at the goal
func (g *Goal) AtGoal(state mat.Vector) bool {
	return state.AtVec(0) >= g.goalX
}

// GetReward returns -1 for all transitions except those which reach
// the goal, which have a reward of 0
func (g *Goal) GetReward(_, _, nextState mat.Vector) float64 {
	if g.AtGoal(nextState) {
		return 0.0
	}
	return -1.0
}

// Min returns the minimum attainable reward over all timesteps
func (g *Goal) Min() float64 { return -1.0 }

// Max returns the maximum attainable reward over all timesteps
func (g *Goal) Max() float64 { return 0.0 }

// End determines if a timestep is the last timestep in the episode,
// changing its StepType to timestep.Last if so
func (g *Goal) End(t *ts.TimeStep) bool {
	if end := g.goalEnder.End(t); end {
		return true
	}
	return g.stepEnder.End(t)
}

// EpisodeSteps returns the episode cutoff of the task
func (g *Goal) EpisodeSteps() int {
	return g.stepEnder.Steps()
}
