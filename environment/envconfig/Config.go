// Package envconfig provides configuration structs for configuring
// environments with default physical parameters and tasks. Environment
// configurations in this package are YAML serializable.
package envconfig

import (
	"fmt"

	env "github.com/samuelfneumann/godqn/environment"
	"github.com/samuelfneumann/godqn/environment/classiccontrol/cartpole"
	"github.com/samuelfneumann/godqn/environment/classiccontrol/mountaincar"
	"gonum.org/v1/gonum/spatial/r1"
)

// EnvName stores the name of environments that can be configured with
// this package
type EnvName string

// Environments available for configuration
const (
	Cartpole    EnvName = "Cartpole"
	MountainCar EnvName = "MountainCar"
)

// TaskName stores the tasks that can be configured with this package.
// Note that not all tasks can be used with all environments. The tasks
// that can be used with each environment are as follows:
//
//	Environment			Task
//	Cartpole			Balance
//	MountainCar			Goal
type TaskName string

// Tasks available for configuration
const (
	Balance TaskName = "Balance"
	Goal    TaskName = "Goal"
)

// tasks lists the tasks of each environment
var tasks = map[EnvName][]TaskName{
	Cartpole:    {Balance},
	MountainCar: {Goal},
}

// Config implements a specific configuration of a specific environment
// and specific task. Not all environments can have all tasks.
type Config struct {
	Environment       EnvName  `yaml:"environment"`
	Task              TaskName `yaml:"task"`
	ContinuousActions bool     `yaml:"continuous_actions"`
	EpisodeCutoff     int      `yaml:"episode_cutoff"` // 0 for no cutoff
	Discount          float64  `yaml:"discount"`
}

// Default returns the Config of the discrete-action Cartpole Balance
// environment with a 200 step episode cutoff
func Default() Config {
	return Config{
		Environment:   Cartpole,
		Task:          Balance,
		EpisodeCutoff: 200,
		Discount:      1.0,
	}
}

// Validate checks that the Config describes an environment that can be
// created
func (c Config) Validate() error {
	envTasks, ok := tasks[c.Environment]
	if !ok {
		return fmt.Errorf("validate: no such environment %q", c.Environment)
	}
	if !hasTask(envTasks, c.Task) {
		return fmt.Errorf("validate: %v environment has no task %q",
			c.Environment, c.Task)
	}
	if c.EpisodeCutoff < 0 {
		return fmt.Errorf("validate: episode cutoff must be non-negative "+
			"\n\thave(%v)", c.EpisodeCutoff)
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("validate: discount must be in [0, 1] "+
			"\n\thave(%v)", c.Discount)
	}
	return nil
}

// Create returns the environment described by the Config. The
// environment must be reset before use.
func (c Config) Create(seed uint64) (env.Environment, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}

	switch c.Environment {
	case MountainCar:
		return CreateMountainCar(c.ContinuousActions, c.Task, c.EpisodeCutoff,
			seed, c.Discount)

	default:
		return CreateCartpole(c.ContinuousActions, c.Task, c.EpisodeCutoff,
			seed, c.Discount)
	}
}

func hasTask(envTasks []TaskName, task TaskName) bool {
	for _, t := range envTasks {
		if t == task {
			return true
		}
	}
	return false
}

// CreateCartpole is a factory for creating the Cartpole environment
// with default physical parameters and default task parameters.
// Starting states are drawn uniformly from [-0.05, 0.05] in every
// feature.
func CreateCartpole(continuousActions bool, taskName TaskName, cutoff int,
	seed uint64, discount float64) (env.Environment, error) {
	bounds := make([]r1.Interval, cartpole.ObservationDims)
	for i := range bounds {
		bounds[i] = r1.Interval{Min: -0.05, Max: 0.05}
	}
	s := env.NewUniformStarter(bounds, seed)

	var task env.Task
	var err error
	switch taskName {
	case Balance:
		task, err = cartpole.NewBalance(s, cutoff, cartpole.FailAngle)

	default:
		return nil, fmt.Errorf("createCartpole: Cartpole environment has "+
			"no task %v", taskName)
	}
	if err != nil {
		return nil, fmt.Errorf("createCartpole: %v", err)
	}

	if continuousActions {
		c, err := cartpole.NewContinuous(task, discount)
		if err != nil {
			return nil, fmt.Errorf("createCartpole: %v", err)
		}
		return c, nil
	}

	c, err := cartpole.NewDiscrete(task, discount)
	if err != nil {
		return nil, fmt.Errorf("createCartpole: %v", err)
	}
	return c, nil
}

// CreateMountainCar is a factory for creating the Mountain Car
// environment with default physical parameters. Starting positions are
// drawn uniformly from [-0.6, -0.4] with zero velocity. The Goal task
// uses the goal position mountaincar.GoalPosition.
func CreateMountainCar(continuousActions bool, taskName TaskName, cutoff int,
	seed uint64, discount float64) (env.Environment, error) {
	bounds := []r1.Interval{{Min: -0.6, Max: -0.4}, {Min: 0.0, Max: 0.0}}
	s := env.NewUniformStarter(bounds, seed)

	var task env.Task
	var err error
	switch taskName {
	case Goal:
		task, err = mountaincar.NewGoal(s, cutoff, mountaincar.GoalPosition)

	default:
		return nil, fmt.Errorf("createMountainCar: Mountain Car environment "+
			"has no task %v", taskName)
	}
	if err != nil {
		return nil, fmt.Errorf("createMountainCar: %v", err)
	}

	if continuousActions {
		m, err := mountaincar.NewContinuous(task, discount)
		if err != nil {
			return nil, fmt.Errorf("createMountainCar: %v", err)
		}
		return m, nil
	}

	m, err := mountaincar.NewDiscrete(task, discount)
	if err != nil {
		return nil, fmt.Errorf("createMountainCar: %v", err)
	}
	return m, nil
}
