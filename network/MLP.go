package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// mlp is a multi-layered perceptron with one output per action,
// populated into its own computational graph with a fixed batch size
type mlp struct {
	g          *G.ExprGraph
	input      *G.Node
	layers     []*fcLayer
	learnables G.Nodes
	batchSize  int

	prediction *G.Node
	predVal    G.Value
}

// newMLP builds a new MLP with batch inputs of size features. Layer i
// is initialized with a copy of params[2*i] (the weights) and
// params[2*i+1] (the bias). The final layer has no activation, while
// all hidden layers use act.
func newMLP(batch, features int, params []*tensor.Dense,
	act *Activation) (*mlp, error) {
	if len(params) == 0 || len(params)%2 != 0 {
		return nil, fmt.Errorf("newMLP: invalid number of parameters %v",
			len(params))
	}

	g := G.NewGraph()
	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	numLayers := len(params) / 2
	layers := make([]*fcLayer, numLayers)
	learnables := make(G.Nodes, 0, len(params))
	for i := 0; i < numLayers; i++ {
		layerAct := act
		if i == numLayers-1 {
			layerAct = nil
		}

		weights := params[2*i].Clone().(*tensor.Dense)
		bias := params[2*i+1].Clone().(*tensor.Dense)
		layers[i] = newFCLayer(g, weights, bias, layerAct, i)
		learnables = append(learnables, layers[i].weights, layers[i].bias)
	}

	net := &mlp{
		g:          g,
		input:      input,
		layers:     layers,
		learnables: learnables,
		batchSize:  batch,
	}

	if _, err := net.fwd(); err != nil {
		return nil, fmt.Errorf("newMLP: could not compute forward pass: %v",
			err)
	}
	return net, nil
}

// fwd performs the forward pass of the mlp on its input node
func (m *mlp) fwd() (*G.Node, error) {
	pred := m.input
	var err error
	for i, l := range m.layers {
		if pred, err = l.fwd(pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	m.prediction = pred
	G.Read(m.prediction, &m.predVal)

	return pred, nil
}

// setInput sets the value of the input node before running the
// forward pass. Inputs are in row major order.
func (m *mlp) setInput(input []float64) error {
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(m.input.Shape()...),
	)
	return G.Let(m.input, inputTensor)
}

// set overwrites the learnables of m with copies of params
func (m *mlp) set(params []*tensor.Dense) error {
	for i, node := range m.learnables {
		if err := G.Let(node, params[i].Clone()); err != nil {
			return fmt.Errorf("set: could not set %v: %v", node.Name(), err)
		}
	}
	return nil
}

// params returns the current values of the learnables of m. The
// returned tensors share memory with the graph.
func (m *mlp) params() []*tensor.Dense {
	out := make([]*tensor.Dense, len(m.learnables))
	for i, node := range m.learnables {
		out[i] = node.Value().(*tensor.Dense)
	}
	return out
}
