package experiment

import (
	"fmt"

	"github.com/samuelfneumann/godqn/agent/nonlinear/discrete/deepq"
	"github.com/samuelfneumann/godqn/environment"
	"github.com/samuelfneumann/godqn/network"
	G "gorgonia.org/gorgonia"
)

// newNetworks creates the main and target networks for the
// environment e. Only the main network is trained with the configured
// solver; the target network is only ever overwritten.
func newNetworks(e environment.Environment,
	c deepq.Config) (*network.QNetwork, *network.QNetwork, error) {
	actions, err := deepq.ActionCount(e)
	if err != nil {
		return nil, nil, err
	}
	features := e.ObservationSpec().Shape.Len()

	activation, err := network.ParseActivation(c.Activation)
	if err != nil {
		return nil, nil, fmt.Errorf("newNetworks: %v", err)
	}

	solver, err := c.SolverConfig().Create()
	if err != nil {
		return nil, nil, fmt.Errorf("newNetworks: %v", err)
	}

	q, err := network.NewQNetwork(features, actions, c.BatchSize,
		c.HiddenSizes, activation, solver, c.Seed)
	if err != nil {
		return nil, nil, fmt.Errorf("newNetworks: %v", err)
	}

	target, err := network.NewQNetwork(features, actions, c.BatchSize,
		c.HiddenSizes, activation, G.NewVanillaSolver(), c.Seed)
	if err != nil {
		return nil, nil, fmt.Errorf("newNetworks: %v", err)
	}

	return q, target, nil
}
