package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// fcLayer implements a fully connected layer of a feed forward neural
// network
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// newFCLayer adds the weights and bias of a fully connected layer to
// g. The bias has shape (1, outputs) and is broadcast along the batch
// dimension.
func newFCLayer(g *G.ExprGraph, weights, bias *tensor.Dense,
	act *Activation, index int) *fcLayer {
	w := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(weights.Shape()...),
		G.WithName(weightName(index)),
		G.WithValue(weights),
	)
	b := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(bias.Shape()...),
		G.WithName(biasName(index)),
		G.WithValue(bias),
	)

	return &fcLayer{weights: w, bias: b, act: act}
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	x, err := G.Mul(x, f.weights)
	if err != nil {
		return nil, err
	}

	// Broadcast the bias weights to all samples along the batch
	// dimension
	x, err = G.BroadcastAdd(x, f.bias, nil, []byte{0})
	if err != nil {
		return nil, err
	}

	if f.act == nil {
		return x, nil
	}
	return f.act.fwd(x)
}

func weightName(layer int) string {
	return fmt.Sprintf("W%d", layer)
}

func biasName(layer int) string {
	return fmt.Sprintf("b%d", layer)
}
