package deepq

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/godqn/agent"
	"gonum.org/v1/gonum/mat"
)

// TargetSync keeps the weights of a target network in step with those
// of the main network. Every interval gradient steps, the target
// network is either overwritten by the main network (polyak == 0) or
// moved toward it using Polyak averaging:
//
//	target ← polyak * target + (1 - polyak) * main
type TargetSync struct {
	main     agent.QFunction
	target   agent.QFunction
	polyak   float64
	interval int
	updates  int
}

// NewTargetSync returns a new TargetSync and initializes the target
// network with the weights of the main network
func NewTargetSync(main, target agent.QFunction, polyak float64,
	interval int) (*TargetSync, error) {
	if polyak < 0 || polyak >= 1 {
		return nil, fmt.Errorf("newTargetSync: polyak must be in [0, 1) "+
			"\n\thave(%v)", polyak)
	}
	if interval < 1 {
		return nil, fmt.Errorf("newTargetSync: interval must be positive "+
			"\n\thave(%v)", interval)
	}
	if err := main.Weights().Compatible(target.Weights()); err != nil {
		return nil, newConfigError("target", ErrDimensionMismatch,
			"main and target networks differ: %v", err)
	}

	t := &TargetSync{
		main:     main,
		target:   target,
		polyak:   polyak,
		interval: interval,
	}
	if err := t.Initialize(); err != nil {
		return nil, fmt.Errorf("newTargetSync: %v", err)
	}
	return t, nil
}

// Initialize copies the weights of the main network into the target
// network
func (t *TargetSync) Initialize() error {
	if err := t.target.SetWeights(t.main.Weights()); err != nil {
		return fmt.Errorf("initialize: %v", err)
	}
	return nil
}

// MaybeUpdate updates the target network if step is a positive
// multiple of the update interval and returns whether an update was
// performed
func (t *TargetSync) MaybeUpdate(step int) (bool, error) {
	if step <= 0 || step%t.interval != 0 {
		return false, nil
	}

	if t.polyak == 0 {
		if err := t.target.SetWeights(t.main.Weights()); err != nil {
			return false, fmt.Errorf("maybeUpdate: %v", err)
		}
		t.updates++
		return true, nil
	}

	averaged, err := Polyak(t.target.Weights(), t.main.Weights(), t.polyak)
	if err != nil {
		return false, fmt.Errorf("maybeUpdate: %v", err)
	}
	if err := t.target.SetWeights(averaged); err != nil {
		return false, fmt.Errorf("maybeUpdate: %v", err)
	}
	t.updates++
	return true, nil
}

// Updates returns the number of target network updates performed
func (t *TargetSync) Updates() int {
	return t.updates
}

// Difference returns the sum of absolute differences between the
// weights of the main and target networks
func (t *TargetSync) Difference() (float64, error) {
	return Difference(t.main.Weights(), t.target.Weights())
}

// Polyak returns the elementwise polyak * target + (1 - polyak) * main
func Polyak(target, main agent.Weights, polyak float64) (agent.Weights,
	error) {
	if err := target.Compatible(main); err != nil {
		return nil, fmt.Errorf("polyak: %v", err)
	}

	step := 1 - polyak
	out := make(agent.Weights, len(target))
	for name, t := range target {
		r, c := t.Dims()
		avg := mat.NewDense(r, c, nil)
		for i := 0; i < r; i++ {
			tRow, mRow := t.RawRowView(i), main[name].RawRowView(i)
			avgRow := avg.RawRowView(i)
			for j := range avgRow {
				avgRow[j] = float64(polyak*tRow[j]) + float64(step*mRow[j])
			}
		}
		out[name] = avg
	}
	return out, nil
}

// Difference returns Σ |a - b| over all parameters of a and b
func Difference(a, b agent.Weights) (float64, error) {
	if err := a.Compatible(b); err != nil {
		return 0, fmt.Errorf("difference: %v", err)
	}

	var diff float64
	for _, name := range a.Names() {
		r, _ := a[name].Dims()
		for i := 0; i < r; i++ {
			bRow := b[name].RawRowView(i)
			for j, v := range a[name].RawRowView(i) {
				diff += math.Abs(v - bRow[j])
			}
		}
	}
	return diff, nil
}
