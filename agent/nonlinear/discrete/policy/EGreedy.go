// Package policy implements action selection for discrete-action
// agents which use nonlinear function approximation.
package policy

import (
	"fmt"

	"github.com/samuelfneumann/godqn/agent"
	"github.com/samuelfneumann/godqn/utils/floatutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// EGreedy implements an epsilon greedy policy whose epsilon follows a
// LinearDecay schedule over the global step count. With probability
// EpsilonAt(step) an action is drawn uniformly from {0, ..., A-1},
// otherwise the action with the highest predicted value is taken.
//
// Ties between greedy actions are broken toward the lowest action
// index, so the greedy action is a deterministic function of the
// predicted action values.
type EGreedy struct {
	schedule LinearDecay
	rng      *rand.Rand
	seed     uint64
}

// NewEGreedy returns a new EGreedy policy
func NewEGreedy(schedule LinearDecay, seed uint64) (*EGreedy, error) {
	if err := schedule.Validate(); err != nil {
		return nil, fmt.Errorf("newEGreedy: %v", err)
	}

	source := rand.NewSource(seed)
	return &EGreedy{
		schedule: schedule,
		rng:      rand.New(source),
		seed:     seed,
	}, nil
}

// Schedule returns the exploration schedule of the policy
func (e *EGreedy) Schedule() LinearDecay {
	return e.schedule
}

// Epsilon returns the exploration probability at the argument step
func (e *EGreedy) Epsilon(step int) float64 {
	return e.schedule.EpsilonAt(step)
}

// SelectAction selects an action for the single observation obs at the
// argument global step using the action values predicted by q.
func (e *EGreedy) SelectAction(obs *mat.VecDense, step int,
	q agent.QFunction) (int, error) {
	if e.rng.Float64() < e.schedule.EpsilonAt(step) {
		return e.rng.Intn(q.Actions()), nil
	}
	return Greedy(obs, q)
}

// Greedy returns the highest valued action in obs as predicted by q
func Greedy(obs *mat.VecDense, q agent.QFunction) (int, error) {
	if obs.Len() != q.Features() {
		return 0, fmt.Errorf("greedy: invalid observation size "+
			"\n\twant(%v) \n\thave(%v)", q.Features(), obs.Len())
	}

	in := mat.NewDense(1, obs.Len(), obs.RawVector().Data)
	values, err := q.Predict(in)
	if err != nil {
		return 0, fmt.Errorf("greedy: could not predict action values: %v",
			err)
	}

	return floatutils.Argmax(values.RawRowView(0)), nil
}
