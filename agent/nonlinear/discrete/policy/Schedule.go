package policy

import "fmt"

// LinearDecay implements an exploration schedule which decays
// epsilon linearly from 1.0 at step 0 to Min at step Steps, and holds
// it constant at Min afterwards.
//
// LinearDecay is stateless: the caller owns the step counter.
type LinearDecay struct {
	Min   float64 `yaml:"epsilon_min"`
	Steps int     `yaml:"start_steps"`
}

// NewLinearDecay returns a new LinearDecay schedule
func NewLinearDecay(min float64, steps int) (LinearDecay, error) {
	l := LinearDecay{Min: min, Steps: steps}
	return l, l.Validate()
}

// Validate checks that the schedule is well defined
func (l LinearDecay) Validate() error {
	if l.Min < 0 || l.Min > 1 {
		return fmt.Errorf("validate: epsilon must be in [0, 1] "+
			"\n\thave(%v)", l.Min)
	}
	if l.Steps < 0 {
		return fmt.Errorf("validate: decay steps must be non-negative "+
			"\n\thave(%v)", l.Steps)
	}
	return nil
}

// EpsilonAt returns the exploration probability at the argument
// global step. For step >= Steps this is exactly Min. A schedule with
// no decay steps always returns Min.
func (l LinearDecay) EpsilonAt(step int) float64 {
	if step >= l.Steps {
		return l.Min
	}
	if step < 0 {
		step = 0
	}
	return 1.0 + (l.Min-1.0)*float64(step)/float64(l.Steps)
}
