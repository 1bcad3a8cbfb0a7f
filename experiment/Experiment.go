// Package experiment implements functionality for running a DQN
// experiment: configuring and creating the environment, networks, and
// Trainer, and saving the data produced while training.
package experiment

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/samuelfneumann/godqn/agent/nonlinear/discrete/deepq"
	"github.com/samuelfneumann/godqn/environment/envconfig"
	"gopkg.in/yaml.v3"
)

// Config represents a configuration of an experiment.
type Config struct {
	Name      string           `yaml:"name"`
	OutputDir string           `yaml:"output_dir"`
	Env       envconfig.Config `yaml:"environment"`
	Agent     deepq.Config     `yaml:"agent"`

	// ProgressBar displays the progress of each epoch on stderr
	ProgressBar bool `yaml:"progress_bar"`
}

// DefaultConfig returns the default experiment configuration
func DefaultConfig() Config {
	return Config{
		Name:      "dqn",
		OutputDir: "data",
		Env:       envconfig.Default(),
		Agent:     deepq.DefaultConfig(),
	}
}

// LoadConfig reads a YAML configuration from filename. Values missing
// from the file keep their values in base, and unknown keys are an
// error.
func LoadConfig(filename string, base Config) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("loadConfig: %v", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&base); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("loadConfig: could not decode %v: %v",
			filename, err)
	}
	return base, nil
}

// Validate checks that the Config describes a runnable experiment.
// Errors in the agent configuration are returned unwrapped as
// *deepq.ConfigError.
func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("validate: experiment name must be set")
	}
	if err := c.Env.Validate(); err != nil {
		return fmt.Errorf("validate: environment: %v", err)
	}
	return c.Agent.Validate()
}

// Dir returns the directory which the experiment saves its data in:
// <output_dir>/<name>/<name>_s<seed>
func (c Config) Dir() string {
	return filepath.Join(c.OutputDir, c.Name,
		fmt.Sprintf("%v_s%v", c.Name, c.Agent.Seed))
}
