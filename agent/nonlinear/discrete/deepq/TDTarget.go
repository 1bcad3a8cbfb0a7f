package deepq

import (
	"fmt"

	"github.com/samuelfneumann/godqn/agent"
	"github.com/samuelfneumann/godqn/expreplay"
	"gonum.org/v1/gonum/floats"
)

// TDTargets computes the Q-learning targets of a batch of transitions
// using the target network:
//
//	y_i = r_i + γ * (1 - done_i) * max_a' Q_target(s'_i, a')
//
// Terminal transitions have a target of exactly r_i, regardless of the
// values the target network predicts.
func TDTargets(batch expreplay.Batch, target agent.QFunction,
	gamma float64) ([]float64, error) {
	values, err := target.Predict(batch.NextStates)
	if err != nil {
		return nil, fmt.Errorf("tdTargets: could not predict next state "+
			"values: %v", err)
	}

	targets := make([]float64, batch.Len())
	for i := range targets {
		if batch.Dones[i] {
			targets[i] = batch.Rewards[i]
			continue
		}
		targets[i] = batch.Rewards[i] + gamma*floats.Max(values.RawRowView(i))
	}
	return targets, nil
}
