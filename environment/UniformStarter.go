package environment

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
)

// UniformStarter samples starting states uniformly from a box
type UniformStarter struct {
	features int
	seed     uint64
	rand     *distmv.Uniform
}

// NewUniformStarter returns a new UniformStarter which samples feature
// i uniformly from bounds[i]
func NewUniformStarter(bounds []r1.Interval, seed uint64) *UniformStarter {
	source := rand.NewSource(seed)
	rand := distmv.NewUniform(bounds, source)

	return &UniformStarter{len(bounds), seed, rand}
}

// Start samples a starting state
func (u *UniformStarter) Start() *mat.VecDense {
	return mat.NewVecDense(u.features, u.rand.Rand(nil))
}

// Seed returns the seed used to create the starter
func (u *UniformStarter) Seed() uint64 {
	return u.seed
}
