// Package agent defines the interfaces that value-based agents use to
// interact with their function approximators
package agent

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// QFunction implements a parametric action-value function over
// discrete actions together with the optimizer that trains it.
//
// Observations are passed and returned in row major order, one row per
// observation. A QFunction is not safe for concurrent use.
type QFunction interface {
	// Predict returns the action values of each observation in obs as
	// a (rows x Actions()) matrix
	Predict(obs *mat.Dense) (*mat.Dense, error)

	// Update takes a single optimizer step on the mean squared error
	// between targets[i] and the predicted value of actions[i] in row i
	// of obs. The targets are treated as constants. The loss before the
	// step is returned.
	Update(obs *mat.Dense, actions []int, targets []float64) (float64, error)

	// Weights returns a deep copy of the current parameters
	Weights() Weights

	// SetWeights overwrites the parameters with w. The names and shapes
	// in w must match those returned by Weights.
	SetWeights(w Weights) error

	// Features returns the length of a single observation
	Features() int

	// Actions returns the number of discrete actions
	Actions() int
}

// Weights is a snapshot of the parameters of a QFunction, keyed by
// parameter name
type Weights map[string]*mat.Dense

// Clone returns a deep copy of w
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for name, param := range w {
		out[name] = mat.DenseCopyOf(param)
	}
	return out
}

// Names returns the parameter names of w in sorted order
func (w Weights) Names() []string {
	names := make([]string, 0, len(w))
	for name := range w {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compatible returns an error if w and other do not have the same
// parameter names and shapes
func (w Weights) Compatible(other Weights) error {
	if len(w) != len(other) {
		return fmt.Errorf("compatible: invalid number of parameters "+
			"\n\twant(%v) \n\thave(%v)", len(w), len(other))
	}

	for name, param := range w {
		otherParam, ok := other[name]
		if !ok {
			return fmt.Errorf("compatible: missing parameter %q", name)
		}

		r, c := param.Dims()
		otherR, otherC := otherParam.Dims()
		if r != otherR || c != otherC {
			return fmt.Errorf("compatible: invalid shape for parameter %q "+
				"\n\twant(%v, %v) \n\thave(%v, %v)", name, r, c, otherR, otherC)
		}
	}
	return nil
}
