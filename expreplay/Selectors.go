package expreplay

import (
	"golang.org/x/exp/rand"
)

// Selector implements functionality for choosing the slots of an
// experience replay buffer that data should be sampled from.
type Selector interface {
	// choose selects n slots in [0, size) to draw data from
	choose(size, n int) []int
}

// uniformSelector is a Selector which selects data from an experience
// replay buffer uniformly randomly with replacement
type uniformSelector struct {
	rng *rand.Rand
}

// NewUniformSelector returns a new Selector which selects data uniformly
// randomly, with replacement, from an experience replay buffer
func NewUniformSelector(seed uint64) Selector {
	source := rand.NewSource(seed)
	rng := rand.New(source)

	return &uniformSelector{rng: rng}
}

// choose selects n independent indices at which to draw data from
// the buffer
func (u *uniformSelector) choose(size, n int) []int {
	selected := make([]int, n)
	for i := range selected {
		selected[i] = u.rng.Intn(size)
	}
	return selected
}
