// Package expreplay implements a fixed-capacity circular experience
// replay buffer for discrete-action value-based agents.
package expreplay

import (
	"fmt"

	"github.com/samuelfneumann/godqn/timestep"
	"github.com/samuelfneumann/godqn/utils/intutils"
	"gonum.org/v1/gonum/mat"
)

// Batch is a minibatch of transitions sampled from a ReplayBuffer.
// Row i of States and NextStates, and element i of every slice, belong
// to the same sampled transition.
type Batch struct {
	States     *mat.Dense // n x features
	Actions    []int
	Rewards    []float64
	NextStates *mat.Dense // n x features
	Dones      []bool

	// Indices holds the buffer slot each row was drawn from
	Indices []int
}

// Len returns the number of transitions in the batch
func (b Batch) Len() int {
	return len(b.Actions)
}

// ReplayBuffer is a fixed-capacity circular store of transitions.
// Once full, each new transition overwrites the oldest one, so the
// buffer always holds exactly the last min(stored, capacity)
// transitions.
//
// A ReplayBuffer is not safe for concurrent use.
type ReplayBuffer struct {
	stateCache     []float64
	nextStateCache []float64
	actionCache    []int
	rewardCache    []float64
	doneCache      []bool

	ptr         int // Next slot to write
	size        int // Number of filled slots
	capacity    int
	featureSize int

	sampler Selector
}

// New returns a new ReplayBuffer holding at most capacity transitions
// with observations of length featureSize. Sampling is uniform with
// replacement using a source seeded with seed.
func New(capacity, featureSize int, seed uint64) (*ReplayBuffer, error) {
	return NewWithSelector(capacity, featureSize, NewUniformSelector(seed))
}

// NewWithSelector returns a new ReplayBuffer which samples slots using
// sampler.
func NewWithSelector(capacity, featureSize int,
	sampler Selector) (*ReplayBuffer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("new: capacity must be >= 1 \n\thave(%v)",
			capacity)
	}
	if featureSize < 1 {
		return nil, fmt.Errorf("new: feature size must be >= 1 \n\thave(%v)",
			featureSize)
	}
	if sampler == nil {
		return nil, fmt.Errorf("new: sampler must not be nil")
	}

	return &ReplayBuffer{
		stateCache:     make([]float64, capacity*featureSize),
		nextStateCache: make([]float64, capacity*featureSize),
		actionCache:    make([]int, capacity),
		rewardCache:    make([]float64, capacity),
		doneCache:      make([]bool, capacity),

		capacity:    capacity,
		featureSize: featureSize,
		sampler:     sampler,
	}, nil
}

// Store writes t into the slot at the write cursor, overwriting the
// oldest transition when the buffer is full. The only error reported
// is a programmer error: an observation whose length differs from the
// buffer's feature size. In that case the buffer is left unchanged.
func (r *ReplayBuffer) Store(t timestep.Transition) error {
	if t.State.Len() != r.featureSize || t.NextState.Len() != r.featureSize {
		return &ExpReplayError{
			Op: "store",
			Err: fmt.Errorf("%w \n\twant(%v)\n\thave(%v, %v)", errFeatureSize,
				r.featureSize, t.State.Len(), t.NextState.Len()),
		}
	}

	// Copy states
	stateInd := r.ptr * r.featureSize
	copy(r.stateCache[stateInd:stateInd+r.featureSize],
		t.State.RawVector().Data)
	copy(r.nextStateCache[stateInd:stateInd+r.featureSize],
		t.NextState.RawVector().Data)

	r.actionCache[r.ptr] = t.Action
	r.rewardCache[r.ptr] = t.Reward
	r.doneCache[r.ptr] = t.Done

	r.ptr = (r.ptr + 1) % r.capacity
	r.size = intutils.Min(r.size+1, r.capacity)
	return nil
}

// Sample draws n slots independently and uniformly with replacement
// from the filled part of the buffer and returns the corresponding
// transitions. The returned Batch does not share memory with the
// buffer.
func (r *ReplayBuffer) Sample(n int) (Batch, error) {
	if r.size == 0 {
		return Batch{}, &ExpReplayError{Op: "sample", Err: errEmptyCache}
	}
	if n < 1 {
		return Batch{}, &ExpReplayError{Op: "sample", Err: errInvalidBatch}
	}

	indices := r.sampler.choose(r.size, n)

	states := make([]float64, n*r.featureSize)
	nextStates := make([]float64, n*r.featureSize)
	actions := make([]int, n)
	rewards := make([]float64, n)
	dones := make([]bool, n)

	for i, index := range indices {
		batchStartInd := i * r.featureSize
		expStartInd := index * r.featureSize
		copy(states[batchStartInd:batchStartInd+r.featureSize],
			r.stateCache[expStartInd:expStartInd+r.featureSize])
		copy(nextStates[batchStartInd:batchStartInd+r.featureSize],
			r.nextStateCache[expStartInd:expStartInd+r.featureSize])

		actions[i] = r.actionCache[index]
		rewards[i] = r.rewardCache[index]
		dones[i] = r.doneCache[index]
	}

	return Batch{
		States:     mat.NewDense(n, r.featureSize, states),
		Actions:    actions,
		Rewards:    rewards,
		NextStates: mat.NewDense(n, r.featureSize, nextStates),
		Dones:      dones,
		Indices:    indices,
	}, nil
}

// At returns a copy of the transition stored at slot, which must be in
// [0, Len()).
func (r *ReplayBuffer) At(slot int) (timestep.Transition, error) {
	if slot < 0 || slot >= r.size {
		return timestep.Transition{}, fmt.Errorf("at: slot %v out of range "+
			"[0, %v)", slot, r.size)
	}

	start := slot * r.featureSize
	state := make([]float64, r.featureSize)
	nextState := make([]float64, r.featureSize)
	copy(state, r.stateCache[start:start+r.featureSize])
	copy(nextState, r.nextStateCache[start:start+r.featureSize])

	return timestep.Transition{
		State:     mat.NewVecDense(r.featureSize, state),
		Action:    r.actionCache[slot],
		Reward:    r.rewardCache[slot],
		NextState: mat.NewVecDense(r.featureSize, nextState),
		Done:      r.doneCache[slot],
	}, nil
}

// Len returns the number of transitions currently stored
func (r *ReplayBuffer) Len() int {
	return r.size
}

// Capacity returns the maximum number of transitions the buffer holds
func (r *ReplayBuffer) Capacity() int {
	return r.capacity
}

// Cursor returns the slot that the next stored transition will be
// written to
func (r *ReplayBuffer) Cursor() int {
	return r.ptr
}

// Features returns the length of the observations stored
func (r *ReplayBuffer) Features() int {
	return r.featureSize
}

func (r *ReplayBuffer) String() string {
	return fmt.Sprintf("ReplayBuffer | Size: %v  |  Capacity: %v  |  "+
		"Cursor: %v", r.size, r.capacity, r.ptr)
}
