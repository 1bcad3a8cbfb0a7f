// Package solver implements serializable configurations of Gorgonia
// Solvers so that they can be described in configuration files.
package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "adam"
	Vanilla Type = "vanilla"
	RMSProp Type = "rmsprop"
)

// Config describes a Gorgonia Solver. Fields which do not apply to a
// solver Type are ignored, and zero values take the defaults of the
// solver.
type Config struct {
	Type     Type    `yaml:"type"`
	StepSize float64 `yaml:"step_size"`
	Epsilon  float64 `yaml:"epsilon,omitempty"` // Smoothing factor
	Beta1    float64 `yaml:"beta1,omitempty"`
	Beta2    float64 `yaml:"beta2,omitempty"`
	Rho      float64 `yaml:"rho,omitempty"`
	Clip     float64 `yaml:"clip,omitempty"` // <= 0 if no clipping
}

// Validate checks that the Config describes a valid solver
func (c Config) Validate() error {
	switch c.Type {
	case Adam, Vanilla, RMSProp:
	default:
		return fmt.Errorf("validate: unknown solver type %q", c.Type)
	}

	if c.StepSize <= 0 {
		return fmt.Errorf("validate: step size must be positive "+
			"\n\thave(%v)", c.StepSize)
	}
	if c.Epsilon < 0 {
		return fmt.Errorf("validate: epsilon must be non-negative "+
			"\n\thave(%v)", c.Epsilon)
	}
	if c.Beta1 < 0 || c.Beta1 >= 1 || c.Beta2 < 0 || c.Beta2 >= 1 {
		return fmt.Errorf("validate: betas must be in [0, 1) "+
			"\n\thave(%v, %v)", c.Beta1, c.Beta2)
	}
	if c.Rho < 0 || c.Rho >= 1 {
		return fmt.Errorf("validate: rho must be in [0, 1) \n\thave(%v)",
			c.Rho)
	}
	return nil
}

// Create returns a new Gorgonia Solver as described by the Config.
// Every call returns a Solver with fresh internal state.
func (c Config) Create() (G.Solver, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}

	switch c.Type {
	case Adam:
		return c.adam(), nil
	case RMSProp:
		return c.rmsprop(), nil
	default:
		return c.vanilla(), nil
	}
}

// NewDefaultAdam returns a Config of the Adam solver with default
// hyperparameters
func NewDefaultAdam(stepSize float64) Config {
	return Config{
		Type:     Adam,
		StepSize: stepSize,
		Epsilon:  1e-8,
		Beta1:    0.9,
		Beta2:    0.999,
	}
}

// orDefault returns value if it is positive and def otherwise
func orDefault(value, def float64) float64 {
	if value > 0 {
		return value
	}
	return def
}
