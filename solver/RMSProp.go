package solver

import G "gorgonia.org/gorgonia"

// rmsprop returns a new Gorgonia RMSProp Solver as described by the
// Config
func (c Config) rmsprop() G.Solver {
	opts := []G.SolverOpt{
		G.WithLearnRate(c.StepSize),
		G.WithEps(orDefault(c.Epsilon, 1e-8)),
		G.WithRho(orDefault(c.Rho, 0.999)),
	}
	if c.Clip > 0 {
		opts = append(opts, G.WithClip(c.Clip))
	}
	return G.NewRMSPropSolver(opts...)
}
