// Package network implements neural network action-value functions
// using Gorgonia.
package network

import (
	"fmt"

	"github.com/samuelfneumann/godqn/agent"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// QNetwork implements an agent.QFunction as a multi-layered perceptron
// with one output per discrete action.
//
// A QNetwork keeps one computational graph for training, which has a
// fixed batch size and owns the authoritative copy of the weights, and
// lazily creates one forward-only graph per batch size that Predict is
// called with. Forward graphs copy the training weights before running
// whenever the weights have changed since they were last used.
//
// The loss minimized by Update is the mean squared error between the
// constant targets and the predicted values of the selected actions:
//
//	L = 1/n * Σ_i (target_i - Q(s_i, a_i))^2
type QNetwork struct {
	features    int
	actions     int
	batchSize   int
	hiddenSizes []int
	activation  *Activation

	train   *mlp
	trainVM G.VM
	solver  G.Solver

	// Nodes to compute the loss on the training graph
	selectedActions *G.Node
	targets         *G.Node
	cost            *G.Node
	costVal         G.Value

	forward  map[int]*forwardNet
	versions int // Incremented whenever the training weights change
}

// forwardNet is a forward-only copy of the network for a single batch
// size
type forwardNet struct {
	net     *mlp
	vm      G.VM
	version int
}

// NewQNetwork returns a new QNetwork over observations of size
// features and the argument number of discrete actions. Update must
// always be called with batchSize rows. Hidden layers use activation,
// and the output layer is linear. Weights are initialized with Glorot
// uniform initialization using the argument seed, biases with zeroes.
func NewQNetwork(features, actions, batchSize int, hiddenSizes []int,
	activation *Activation, solver G.Solver, seed uint64) (*QNetwork, error) {
	if features < 1 {
		return nil, fmt.Errorf("newQNetwork: features must be positive")
	}
	if actions < 1 {
		return nil, fmt.Errorf("newQNetwork: actions must be positive")
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("newQNetwork: batch size must be positive")
	}
	for i, size := range hiddenSizes {
		if size < 1 {
			return nil, fmt.Errorf("newQNetwork: hidden layer %d must have "+
				"positive size \n\thave(%v)", i, size)
		}
	}
	if activation == nil {
		return nil, fmt.Errorf("newQNetwork: activation must not be nil")
	}
	if solver == nil {
		return nil, fmt.Errorf("newQNetwork: solver must not be nil")
	}

	params := initParams(features, hiddenSizes, actions, seed)
	train, err := newMLP(batchSize, features, params, activation)
	if err != nil {
		return nil, fmt.Errorf("newQNetwork: could not create training "+
			"network: %v", err)
	}

	// Action selected in each sampled state, as one-hot rows. This is
	// needed to compute the loss using the correct action value since
	// the network outputs one value per action
	selectedActions := G.NewMatrix(
		train.g,
		tensor.Float64,
		G.WithName("actionSelected"),
		G.WithShape(batchSize, actions),
		G.WithInit(G.Zeroes()),
	)
	targets := G.NewVector(
		train.g,
		tensor.Float64,
		G.WithName("targets"),
		G.WithShape(batchSize),
		G.WithInit(G.Zeroes()),
	)

	selectedActionsValue := G.Must(G.HadamardProd(train.prediction,
		selectedActions))
	selectedActionsValue = G.Must(G.Sum(selectedActionsValue, 1))

	// Compute the Mean Squarred TD error
	losses := G.Must(G.Sub(targets, selectedActionsValue))
	losses = G.Must(G.Square(losses))
	cost := G.Must(G.Mean(losses))

	q := &QNetwork{
		features:        features,
		actions:         actions,
		batchSize:       batchSize,
		hiddenSizes:     append([]int(nil), hiddenSizes...),
		activation:      activation,
		train:           train,
		solver:          solver,
		selectedActions: selectedActions,
		targets:         targets,
		cost:            cost,
		forward:         make(map[int]*forwardNet),
	}
	G.Read(cost, &q.costVal)

	// Compute the gradient with respect to the Mean Squarred TD error
	if _, err := G.Grad(cost, train.learnables...); err != nil {
		return nil, fmt.Errorf("newQNetwork: could not compute gradient: %v",
			err)
	}

	q.trainVM = G.NewTapeMachine(
		train.g,
		G.BindDualValues(train.learnables...),
	)

	return q, nil
}

// Features returns the number of features in a single observation
func (q *QNetwork) Features() int {
	return q.features
}

// Actions returns the number of actions the network predicts values for
func (q *QNetwork) Actions() int {
	return q.actions
}

// BatchSize returns the number of rows that Update must be called with
func (q *QNetwork) BatchSize() int {
	return q.batchSize
}

// HiddenSizes returns the sizes of the hidden layers of the network
func (q *QNetwork) HiddenSizes() []int {
	return append([]int(nil), q.hiddenSizes...)
}

// Predict returns the action values of each row of obs
func (q *QNetwork) Predict(obs *mat.Dense) (*mat.Dense, error) {
	rows, cols := obs.Dims()
	if cols != q.features {
		return nil, fmt.Errorf("predict: invalid number of features "+
			"\n\twant(%v) \n\thave(%v)", q.features, cols)
	}

	net, err := q.forwardFor(rows)
	if err != nil {
		return nil, fmt.Errorf("predict: %v", err)
	}

	if err := net.net.setInput(rowMajor(obs)); err != nil {
		return nil, fmt.Errorf("predict: could not set input: %v", err)
	}
	if err := net.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("predict: could not run forward pass: %v", err)
	}
	defer net.vm.Reset()

	pred := net.net.predVal.Data().([]float64)
	values := make([]float64, len(pred))
	copy(values, pred)

	return mat.NewDense(rows, q.actions, values), nil
}

// forwardFor returns the forward network for the argument batch size,
// creating it if needed and refreshing its weights if they are stale
func (q *QNetwork) forwardFor(batch int) (*forwardNet, error) {
	net, ok := q.forward[batch]

	// Lazy instantiation
	if !ok {
		m, err := newMLP(batch, q.features, q.train.params(), q.activation)
		if err != nil {
			return nil, err
		}
		net = &forwardNet{net: m, vm: G.NewTapeMachine(m.g), version: q.versions}
		q.forward[batch] = net
		return net, nil
	}

	if net.version != q.versions {
		if err := net.net.set(q.train.params()); err != nil {
			return nil, err
		}
		net.version = q.versions
	}
	return net, nil
}

// Update takes a single optimizer step on the mean squared error
// between targets and the predicted values of the selected actions,
// returning the loss before the step.
func (q *QNetwork) Update(obs *mat.Dense, actions []int,
	targets []float64) (float64, error) {
	rows, cols := obs.Dims()
	if rows != q.batchSize || len(actions) != q.batchSize ||
		len(targets) != q.batchSize {
		return 0, fmt.Errorf("update: invalid batch size \n\twant(%v) "+
			"\n\thave(%v, %v, %v)", q.batchSize, rows, len(actions),
			len(targets))
	}
	if cols != q.features {
		return 0, fmt.Errorf("update: invalid number of features "+
			"\n\twant(%v) \n\thave(%v)", q.features, cols)
	}

	// Previous action one-hot vectors
	oneHot := make([]float64, q.batchSize*q.actions)
	for i, a := range actions {
		if a < 0 || a >= q.actions {
			return 0, fmt.Errorf("update: illegal action %v ∉ [0, %v)",
				a, q.actions)
		}
		oneHot[i*q.actions+a] = 1.0
	}

	if err := q.train.setInput(rowMajor(obs)); err != nil {
		return 0, fmt.Errorf("update: could not set input: %v", err)
	}

	err := G.Let(q.selectedActions, tensor.New(
		tensor.WithShape(q.batchSize, q.actions),
		tensor.WithBacking(oneHot),
	))
	if err != nil {
		return 0, fmt.Errorf("update: could not set actions: %v", err)
	}

	targetBacking := make([]float64, len(targets))
	copy(targetBacking, targets)
	err = G.Let(q.targets, tensor.New(
		tensor.WithShape(q.batchSize),
		tensor.WithBacking(targetBacking),
	))
	if err != nil {
		return 0, fmt.Errorf("update: could not set targets: %v", err)
	}

	// Run the learning step
	if err := q.trainVM.RunAll(); err != nil {
		return 0, fmt.Errorf("update: could not run training step: %v", err)
	}
	loss := q.costVal.Data().(float64)

	err = q.solver.Step(G.NodesToValueGrads(q.train.learnables))
	q.trainVM.Reset()
	if err != nil {
		return 0, fmt.Errorf("update: could not step solver: %v", err)
	}
	q.versions++

	return loss, nil
}

// Weights returns a deep copy of the weights of the network. Layer i
// has weights "W<i>" of shape (inputs x outputs) and bias "b<i>" of
// shape (1 x outputs).
func (q *QNetwork) Weights() agent.Weights {
	weights := make(agent.Weights, len(q.train.learnables))
	for i, param := range q.train.params() {
		shape := param.Shape()
		backing := make([]float64, shape.TotalSize())
		copy(backing, param.Data().([]float64))

		weights[q.train.learnables[i].Name()] = mat.NewDense(shape[0],
			shape[1], backing)
	}
	return weights
}

// SetWeights sets the weights of the network to copies of w
func (q *QNetwork) SetWeights(w agent.Weights) error {
	if err := q.Weights().Compatible(w); err != nil {
		return fmt.Errorf("setWeights: %v", err)
	}

	params := make([]*tensor.Dense, len(q.train.learnables))
	for i, node := range q.train.learnables {
		params[i] = tensor.New(
			tensor.WithShape(node.Shape()...),
			tensor.WithBacking(rowMajor(w[node.Name()])),
		)
	}

	if err := q.train.set(params); err != nil {
		return fmt.Errorf("setWeights: %v", err)
	}
	q.versions++
	return nil
}

// rowMajor returns a copy of the elements of m in row major order
func rowMajor(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	out := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		out = append(out, m.RawRowView(i)...)
	}
	return out
}
