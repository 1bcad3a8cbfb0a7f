package floatutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r1"
)

func TestClip(t *testing.T) {
	assert.Equal(t, 1.0, Clip(3, -1, 1))
	assert.Equal(t, -1.0, Clip(-3, -1, 1))
	assert.Equal(t, 0.5, Clip(0.5, -1, 1))
	assert.Equal(t, 2.0, ClipInterval(5, r1.Interval{Min: 0, Max: 2}))
}

func TestMaxSlice(t *testing.T) {
	max, indices := MaxSlice([]float64{1, 3, 2, 3})
	assert.Equal(t, 3.0, max)
	assert.Equal(t, []int{1, 3}, indices)

	assert.Panics(t, func() { MaxSlice(nil) })
}

func TestArgmaxTies(t *testing.T) {
	assert.Equal(t, 0, Argmax([]float64{2, 2, 2}))
	assert.Equal(t, 2, Argmax([]float64{-1, 0, 4, 4}))
}
