package linear

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/janpfeifer/snakeGo/internal/ai"
	"github.com/janpfeifer/snakeGo/internal/estimators"
	"github.com/janpfeifer/snakeGo/internal/parameters"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testWeights: action #a has weight a+1 on feature #0 and bias -a.
func testWeights() []float32 {
	weights := make([]float32, ai.NumActions*rowDim)
	for action := range ai.NumActions {
		weights[action*rowDim] = float32(action + 1)
		weights[action*rowDim+ai.StateDim] = float32(-action)
	}
	return weights
}

func TestQValuesAndGradient(t *testing.T) {
	model, err := NewWithWeights(testWeights()...)
	require.NoError(t, err)

	state := make([]float32, ai.StateDim)
	assert.Equal(t, []float32{0, -1, -2}, model.QValues(state))
	state[0] = 1
	state[5] = 1
	assert.Equal(t, []float32{1, 1, 1}, model.QValues(state))

	// Only action #1 is off its target, by +3: loss = 9/3, gradient = 2*3/3 = 2 on its feature #0, #5 and bias.
	grad := make([]float32, len(model.weights))
	loss := model.calculateGradient(state, []float32{1, -2, 1}, grad)
	assert.InDelta(t, 3.0, loss, 1e-6)
	want := make([]float32, len(grad))
	want[rowDim] = 2
	want[rowDim+5] = 2
	want[rowDim+ai.StateDim] = 2
	assert.InDeltaSlice(t, want, grad, 1e-6)

	// With L2 regularization.
	model.L2Reg = 0.5
	loss = model.calculateGradient(state, []float32{1, 1, 1}, grad)
	// sum(w^2) = 1 + 4 + 1 + 9 + 4 = 19.
	assert.InDelta(t, 0.5*19, loss, 1e-5)
	assert.InDelta(t, 2*0.5*3, grad[2*rowDim], 1e-6)
}

func TestNewWithWeightsWrongSize(t *testing.T) {
	_, err := NewWithWeights(1, 2, 3)
	require.Error(t, err)
}

// TestFit checks that it is able to learn the Q-values of a "want" linear model from examples.
func TestFit(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 0))
	wantWeights := make([]float32, ai.NumActions*rowDim)
	for ii := range wantWeights {
		wantWeights[ii] = float32(rng.NormFloat64())
	}
	want, err := NewWithWeights(wantWeights...)
	require.NoError(t, err)

	got, err := New(parameters.Params{"learning_rate": "0.05", "gradient_clip": "0"}, "")
	require.NoError(t, err)
	randomState := func() []float32 {
		state := make([]float32, ai.StateDim)
		for ii := range state {
			if rng.IntN(2) == 1 {
				state[ii] = 1
			}
		}
		return state
	}
	for range 20_000 {
		state := randomState()
		got.Fit(state, want.QValues(state))
	}
	var finalLoss float32
	for range 100 {
		state := randomState()
		finalLoss += got.Fit(state, want.QValues(state)) / 100
	}
	assert.Less(t, finalLoss, float32(1e-3))
	assert.InDeltaSlice(t, want.weights, got.weights, 0.05)
}

func TestSaveAndLoad(t *testing.T) {
	model, err := NewWithWeights(testWeights()...)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "weights", DefaultWeightsName)
	require.NoError(t, model.Save(path))
	// Saving again keeps a backup.
	require.NoError(t, model.Save(path))
	_, err = os.Stat(path + "~")
	require.NoError(t, err)

	loaded, err := New(parameters.Params{"learning_rate": "0.1"}, path)
	require.NoError(t, err)
	assert.Equal(t, model.weights, loaded.weights)
	assert.Equal(t, float32(0.1), loaded.LearningRate)
	assert.Equal(t, Name+"@"+path, loaded.String())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.txt"))
	require.Error(t, err)

	badValue := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(badValue, []byte("# comment\n1.0\nnot-a-number\n"), 0o644))
	_, err = Load(badValue)
	require.Error(t, err)

	tooFew := filepath.Join(dir, "few.txt")
	require.NoError(t, os.WriteFile(tooFew, []byte("1\n2\n3\n"), 0o644))
	_, err = Load(tooFew)
	require.Error(t, err)
}

func TestRegistered(t *testing.T) {
	estimator, err := estimators.New("linear,learning_rate=0.02", "")
	require.NoError(t, err)
	require.IsType(t, &Estimator{}, estimator)
	assert.Equal(t, float32(0.02), estimator.(*Estimator).LearningRate)
	assert.Equal(t, DefaultWeightsName, estimator.DefaultWeightsName())

	_, err = estimators.New("linear,unknown_param=1", "")
	require.Error(t, err)
}
