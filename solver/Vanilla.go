package solver

import G "gorgonia.org/gorgonia"

// vanilla returns a Gorgonia Vanilla Solver as described by the Config
func (c Config) vanilla() G.Solver {
	opts := []G.SolverOpt{G.WithLearnRate(c.StepSize)}
	if c.Clip > 0 {
		opts = append(opts, G.WithClip(c.Clip))
	}
	return G.NewVanillaSolver(opts...)
}
