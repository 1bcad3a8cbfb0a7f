package deepq

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedActions reports an environment whose actions are
	// not discrete, one-dimensional, and enumerated from 0
	ErrUnsupportedActions = errors.New("unsupported action space")

	// ErrTargetInterval reports a target network update interval which
	// is longer than an epoch, so the target network would never be
	// updated
	ErrTargetInterval = errors.New("target update interval exceeds " +
		"epoch steps")

	// ErrInvalidValue reports a configuration value outside of its
	// legal range
	ErrInvalidValue = errors.New("invalid value")

	// ErrDimensionMismatch reports an approximator whose input or
	// output dimensions do not match the environment
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

// ConfigError reports an unusable configuration of a Trainer. All
// ConfigErrors are detected before the environment is interacted with.
type ConfigError struct {
	Field string
	Err   error
	msg   string
}

func newConfigError(field string, err error, format string,
	args ...interface{}) *ConfigError {
	return &ConfigError{Field: field, Err: err, msg: fmt.Sprintf(format,
		args...)}
}

// Error satisfies the error interface
func (c *ConfigError) Error() string {
	if c.msg == "" {
		return fmt.Sprintf("config: %v: %v", c.Field, c.Err)
	}
	return fmt.Sprintf("config: %v: %v: %v", c.Field, c.Err, c.msg)
}

// Unwrap returns the underlying error
func (c *ConfigError) Unwrap() error {
	return c.Err
}

// IsConfigError returns whether err reports an unusable configuration
func IsConfigError(err error) bool {
	var c *ConfigError
	return errors.As(err, &c)
}

// IsUnsupportedActions returns whether err reports an unsupported
// action space
func IsUnsupportedActions(err error) bool {
	return errors.Is(err, ErrUnsupportedActions)
}

// IsTargetInterval returns whether err reports a target update
// interval longer than an epoch
func IsTargetInterval(err error) bool {
	return errors.Is(err, ErrTargetInterval)
}
