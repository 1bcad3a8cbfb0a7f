package expreplay

import "errors"

// ExpReplayError implements errors unique to an experience replay
// buffer.
type ExpReplayError struct {
	Op  string
	Err error
}

// Error satisifes the error interface
func (e *ExpReplayError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *ExpReplayError) Unwrap() error {
	return e.Err
}

var errEmptyCache = errors.New("cache empty")

var errInvalidBatch = errors.New("batch size must be positive")

var errFeatureSize = errors.New("invalid feature size")

// IsEmptyBuffer returns whether or not an error reports that a
// replay buffer is empty.
func IsEmptyBuffer(err error) bool {
	return errors.Is(err, errEmptyCache)
}

// IsInvalidBatch returns whether or not an error reports that a
// non-positive number of samples was requested from a buffer.
func IsInvalidBatch(err error) bool {
	return errors.Is(err, errInvalidBatch)
}

// IsFeatureSize returns whether or not an error reports that a
// transition with the wrong observation length was stored.
func IsFeatureSize(err error) bool {
	return errors.Is(err, errFeatureSize)
}
