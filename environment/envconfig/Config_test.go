package envconfig

import (
	"testing"

	env "github.com/samuelfneumann/godqn/environment"
	"github.com/samuelfneumann/godqn/environment/classiccontrol/cartpole"
	"github.com/samuelfneumann/godqn/environment/classiccontrol/mountaincar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestCreateDefault(t *testing.T) {
	e, err := Default().Create(0)
	require.NoError(t, err)
	assert.IsType(t, &cartpole.Discrete{}, e)

	n, err := env.DiscreteActions(e.ActionSpec())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	first, err := e.Reset()
	require.NoError(t, err)
	for i := 0; i < first.Observation.Len(); i++ {
		assert.LessOrEqual(t, first.Observation.AtVec(i), 0.05)
		assert.GreaterOrEqual(t, first.Observation.AtVec(i), -0.05)
	}
}

func TestCreateContinuous(t *testing.T) {
	c := Default()
	c.ContinuousActions = true

	e, err := c.Create(0)
	require.NoError(t, err)
	assert.Equal(t, env.Continuous, e.ActionSpec().Cardinality)
}

func TestCreateMountainCar(t *testing.T) {
	c := Config{Environment: MountainCar, Task: Goal, EpisodeCutoff: 1000,
		Discount: 1.0}

	e, err := c.Create(3)
	require.NoError(t, err)
	assert.IsType(t, &mountaincar.Discrete{}, e)

	first, err := e.Reset()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, first.Observation.AtVec(0), -0.6)
	assert.LessOrEqual(t, first.Observation.AtVec(0), -0.4)
	assert.Equal(t, 0.0, first.Observation.AtVec(1))

	c.Task = Balance
	_, err = c.Create(3)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown environment", func(c *Config) { c.Environment = "Acrobot" }},
		{"unknown task", func(c *Config) { c.Task = "SwingUp" }},
		{"task of another environment", func(c *Config) { c.Task = Goal }},
		{"negative cutoff", func(c *Config) { c.EpisodeCutoff = -1 }},
		{"discount above one", func(c *Config) { c.Discount = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(&c)
			assert.Error(t, c.Validate())
			_, err := c.Create(0)
			assert.Error(t, err)
		})
	}
}

func TestYAML(t *testing.T) {
	out, err := yaml.Marshal(Default())
	require.NoError(t, err)

	var c Config
	require.NoError(t, yaml.Unmarshal(out, &c))
	assert.Equal(t, Default(), c)
}
