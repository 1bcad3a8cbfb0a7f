package network

import (
	"testing"

	"github.com/samuelfneumann/godqn/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
)

func newTestNetwork(t *testing.T, batch int, seed uint64) *QNetwork {
	t.Helper()

	solver := G.NewAdamSolver(G.WithLearnRate(0.01))
	q, err := NewQNetwork(3, 2, batch, []int{8}, ReLU(), solver, seed)
	require.NoError(t, err)
	return q
}

func TestNewQNetworkInvalid(t *testing.T) {
	solver := G.NewVanillaSolver()
	tests := []struct {
		name     string
		features int
		actions  int
		batch    int
		hidden   []int
		act      *Activation
	}{
		{"no features", 0, 2, 1, nil, ReLU()},
		{"no actions", 2, 0, 1, nil, ReLU()},
		{"no batch", 2, 2, 0, nil, ReLU()},
		{"empty hidden layer", 2, 2, 1, []int{4, 0}, ReLU()},
		{"nil activation", 2, 2, 1, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewQNetwork(tt.features, tt.actions, tt.batch, tt.hidden,
				tt.act, solver, 0)
			assert.Error(t, err)
		})
	}
}

func TestWeightsShapes(t *testing.T) {
	q := newTestNetwork(t, 4, 1)
	w := q.Weights()

	assert.Equal(t, []string{"W0", "W1", "b0", "b1"}, w.Names())
	shapes := map[string][2]int{
		"W0": {3, 8}, "b0": {1, 8},
		"W1": {8, 2}, "b1": {1, 2},
	}
	for name, shape := range shapes {
		r, c := w[name].Dims()
		assert.Equal(t, shape, [2]int{r, c}, name)
	}

	// Biases start at zero
	assert.Equal(t, 0.0, mat.Sum(w["b0"]))
	assert.Equal(t, 0.0, mat.Sum(w["b1"]))
}

func TestSeedDeterminism(t *testing.T) {
	a := newTestNetwork(t, 4, 7).Weights()
	b := newTestNetwork(t, 4, 7).Weights()
	c := newTestNetwork(t, 4, 8).Weights()

	for _, name := range a.Names() {
		assert.True(t, mat.Equal(a[name], b[name]), name)
	}
	assert.False(t, mat.Equal(a["W0"], c["W0"]))
}

func TestPredictShape(t *testing.T) {
	q := newTestNetwork(t, 4, 1)

	for _, rows := range []int{1, 4, 5} {
		obs := mat.NewDense(rows, 3, nil)
		values, err := q.Predict(obs)
		require.NoError(t, err)

		r, c := values.Dims()
		assert.Equal(t, rows, r)
		assert.Equal(t, 2, c)
	}

	_, err := q.Predict(mat.NewDense(1, 2, nil))
	assert.Error(t, err)
}

func TestPredictLinear(t *testing.T) {
	solver := G.NewVanillaSolver()
	q, err := NewQNetwork(2, 2, 1, nil, Identity(), solver, 0)
	require.NoError(t, err)

	err = q.SetWeights(agent.Weights{
		"W0": mat.NewDense(2, 2, []float64{1, 2, 3, 4}),
		"b0": mat.NewDense(1, 2, []float64{0.5, -0.5}),
	})
	require.NoError(t, err)

	values, err := q.Predict(mat.NewDense(2, 2, []float64{1, 1, 0, 2}))
	require.NoError(t, err)

	// [1 1] x W + b = [4.5 5.5], [0 2] x W + b = [6.5 7.5]
	assert.InDeltaSlice(t, []float64{4.5, 5.5, 6.5, 7.5},
		values.RawMatrix().Data, 1e-12)
}

func TestSetWeightsRoundTrip(t *testing.T) {
	src := newTestNetwork(t, 4, 1)
	dest := newTestNetwork(t, 4, 2)

	require.NoError(t, dest.SetWeights(src.Weights()))
	srcW, destW := src.Weights(), dest.Weights()
	for _, name := range srcW.Names() {
		assert.True(t, mat.Equal(srcW[name], destW[name]), name)
	}

	obs := mat.NewDense(2, 3, []float64{0.1, -0.2, 0.3, 1, 2, 3})
	srcPred, err := src.Predict(obs)
	require.NoError(t, err)
	destPred, err := dest.Predict(obs)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(srcPred, destPred, 1e-12))
}

func TestWeightsAreCopies(t *testing.T) {
	q := newTestNetwork(t, 4, 1)
	w := q.Weights()
	w["W0"].Set(0, 0, 1000)

	assert.NotEqual(t, 1000.0, q.Weights()["W0"].At(0, 0))
}

func TestSetWeightsMismatch(t *testing.T) {
	q := newTestNetwork(t, 4, 1)

	w := q.Weights()
	w["W0"] = mat.NewDense(2, 8, nil)
	assert.Error(t, q.SetWeights(w))

	w = q.Weights()
	delete(w, "b1")
	assert.Error(t, q.SetWeights(w))
}

func TestUpdateReducesLoss(t *testing.T) {
	const batch = 4
	q := newTestNetwork(t, batch, 3)

	obs := mat.NewDense(batch, 3, []float64{
		0.1, 0.2, 0.3,
		-0.5, 0.1, 0.0,
		1.0, -1.0, 0.5,
		0.0, 0.0, 1.0,
	})
	actions := []int{0, 1, 0, 1}
	targets := []float64{1.0, -1.0, 0.5, 2.0}

	first, err := q.Update(obs, actions, targets)
	require.NoError(t, err)

	var last float64
	for i := 0; i < 200; i++ {
		last, err = q.Update(obs, actions, targets)
		require.NoError(t, err)
	}
	assert.Less(t, last, first)
	assert.Less(t, last, 0.1*first)

	// Forward graphs see the updated weights
	values, err := q.Predict(obs)
	require.NoError(t, err)
	for i, a := range actions {
		assert.InDelta(t, targets[i], values.At(i, a), 0.5)
	}
}

func TestUpdateLossValue(t *testing.T) {
	// A zero network predicts zero everywhere, so the loss is the mean
	// of the squared targets
	solver := G.NewVanillaSolver(G.WithLearnRate(0.0))
	q, err := NewQNetwork(1, 2, 2, nil, Identity(), solver, 0)
	require.NoError(t, err)
	require.NoError(t, q.SetWeights(agent.Weights{
		"W0": mat.NewDense(1, 2, nil),
		"b0": mat.NewDense(1, 2, nil),
	}))

	loss, err := q.Update(mat.NewDense(2, 1, []float64{1, 2}), []int{0, 1},
		[]float64{2, 4})
	require.NoError(t, err)
	assert.InDelta(t, 10.0, loss, 1e-12)
}

func TestUpdateInvalid(t *testing.T) {
	q := newTestNetwork(t, 2, 1)

	_, err := q.Update(mat.NewDense(3, 3, nil), []int{0, 0, 0},
		[]float64{0, 0, 0})
	assert.Error(t, err, "wrong batch size")

	_, err = q.Update(mat.NewDense(2, 3, nil), []int{0, 2}, []float64{0, 0})
	assert.Error(t, err, "illegal action")
}

func TestParseActivation(t *testing.T) {
	for _, name := range []string{"relu", "tanh", "identity"} {
		act, err := ParseActivation(name)
		require.NoError(t, err)
		assert.Equal(t, name, act.String())
	}

	_, err := ParseActivation("sigmoid")
	assert.Error(t, err)
}

func TestGobRoundTrip(t *testing.T) {
	src := newTestNetwork(t, 4, 1)
	dest := newTestNetwork(t, 4, 2)

	data, err := src.GobEncode()
	require.NoError(t, err)
	require.NoError(t, dest.GobDecode(data))

	srcW, destW := src.Weights(), dest.Weights()
	for _, name := range srcW.Names() {
		assert.True(t, mat.Equal(srcW[name], destW[name]), name)
	}

	// Architectures must match
	solver := G.NewVanillaSolver()
	other, err := NewQNetwork(3, 2, 4, []int{16}, ReLU(), solver, 0)
	require.NoError(t, err)
	assert.Error(t, other.GobDecode(data))
}
