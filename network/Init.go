package network

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	"gorgonia.org/tensor"
)

// glorotU returns a (rows x cols) weight matrix drawn from the Glorot
// uniform distribution U[-l, l] with l = gain * sqrt(6 / (rows + cols))
func glorotU(rows, cols int, gain float64, src rand.Source) *tensor.Dense {
	limit := gain * math.Sqrt(6.0/float64(rows+cols))
	dist := distuv.Uniform{Min: -limit, Max: limit, Src: src}

	backing := make([]float64, rows*cols)
	for i := range backing {
		backing[i] = dist.Rand()
	}
	return tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(backing))
}

// zeroes returns a (rows x cols) matrix of zeroes
func zeroes(rows, cols int) *tensor.Dense {
	return tensor.New(tensor.WithShape(rows, cols),
		tensor.WithBacking(make([]float64, rows*cols)))
}

// initParams returns freshly initialized parameters for an MLP with the
// argument layer sizes. Weights are Glorot uniform and biases are zero.
func initParams(features int, hiddenSizes []int, outputs int,
	seed uint64) []*tensor.Dense {
	src := rand.NewSource(seed)

	sizes := append(append([]int{features}, hiddenSizes...), outputs)
	params := make([]*tensor.Dense, 0, 2*(len(sizes)-1))
	for i := 1; i < len(sizes); i++ {
		params = append(params, glorotU(sizes[i-1], sizes[i], 1.0, src))
		params = append(params, zeroes(1, sizes[i]))
	}
	return params
}
