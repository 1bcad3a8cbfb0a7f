package solver

import G "gorgonia.org/gorgonia"

// adam returns a new Gorgonia Adam Solver as described by the Config
func (c Config) adam() G.Solver {
	opts := []G.SolverOpt{
		G.WithLearnRate(c.StepSize),
		G.WithEps(orDefault(c.Epsilon, 1e-8)),
		G.WithBeta1(orDefault(c.Beta1, 0.9)),
		G.WithBeta2(orDefault(c.Beta2, 0.999)),
	}
	if c.Clip > 0 {
		opts = append(opts, G.WithClip(c.Clip))
	}
	return G.NewAdamSolver(opts...)
}
