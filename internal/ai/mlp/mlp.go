// Package mlp implements a plain (non-dueling) Q-value estimator with a feed-forward network from go-deep.
//
// The network maps the state directly to one Q-value per action, with a linear output. It serves as a
// baseline for the dueling estimator, and as an estimator that doesn't require any GoMLX backend.
//
// Importing this package registers the estimator under the name "plain".
package mlp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/janpfeifer/snakeGo/internal/ai"
	"github.com/janpfeifer/snakeGo/internal/estimators"
	"github.com/janpfeifer/snakeGo/internal/generics"
	"github.com/janpfeifer/snakeGo/internal/parameters"
	"github.com/patrikeh/go-deep"
	"github.com/patrikeh/go-deep/training"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Name of the estimator in the configuration string.
const Name = "plain"

// DefaultWeightsName is the file where the weights are saved at the end of a run.
const DefaultWeightsName = "plain-weights.json"

// Config of the network. It is saved along with the weights.
type Config struct {
	HiddenLayers []int
	LearningRate float64
	Momentum     float64

	// Weights, indexed by layer, neuron and input (the bias is the last input), as given by deep.Neural.Dump.
	Weights [][][]float64 `json:",omitempty"`
}

// DefaultConfig returns the configuration matching the trunk of the dueling model.
func DefaultConfig() Config {
	return Config{
		HiddenLayers: []int{120, 120},
		LearningRate: 0.001,
		Momentum:     0.0,
	}
}

// Estimator implements ai.QEstimator with a deep.Neural network.
type Estimator struct {
	config  Config
	network *deep.Neural

	// solver keeps the SGD moments across calls to Fit. deltas is the backpropagation buffer, one per neuron.
	solver   training.Solver
	deltas   [][]float64
	numSteps int

	loadedFrom string
}

var _ ai.QEstimator = (*Estimator)(nil)

func init() {
	estimators.Register(Name, func(params parameters.Params, weightsPath string) (ai.QEstimator, error) {
		return New(params, weightsPath)
	})
}

// New creates a plain estimator. If weightsPath is given, the configuration and weights are loaded from the file.
// Parameters "learning_rate", "momentum" and "hidden_nodes" (the width of each of the 2 hidden layers,
// only used if not loading weights) can be given in params.
func New(params parameters.Params, weightsPath string) (*Estimator, error) {
	config := DefaultConfig()
	if weightsPath != "" {
		var err error
		config, err = loadConfig(weightsPath)
		if err != nil {
			return nil, err
		}
	}

	var err error
	if config.LearningRate, err = parameters.PopParamOr(params, "learning_rate", config.LearningRate); err != nil {
		return nil, err
	}
	if config.Momentum, err = parameters.PopParamOr(params, "momentum", config.Momentum); err != nil {
		return nil, err
	}
	hiddenNodes, err := parameters.PopParamOr(params, "hidden_nodes", 0)
	if err != nil {
		return nil, err
	}
	if hiddenNodes > 0 {
		if config.Weights != nil {
			return nil, errors.Errorf("model %s: hidden_nodes cannot be changed when loading weights from %q", Name, weightsPath)
		}
		config.HiddenLayers = []int{hiddenNodes, hiddenNodes}
	}
	if config.LearningRate <= 0 {
		return nil, errors.Errorf("model %s: learning_rate must be > 0, got %g", Name, config.LearningRate)
	}

	e := &Estimator{config: config}
	e.network = deep.NewNeural(&deep.Config{
		Inputs:     ai.StateDim,
		Layout:     append(append([]int{}, config.HiddenLayers...), ai.NumActions),
		Activation: deep.ActivationReLU,
		Mode:       deep.ModeRegression,
		Weight:     deep.NewNormal(0.0, 0.1),
		Bias:       true,
	})
	if config.Weights != nil {
		if err := checkWeights(config.Weights, ai.StateDim, e.network); err != nil {
			return nil, errors.WithMessagef(err, "weights in %q are not compatible with model %s", weightsPath, Name)
		}
		e.network.ApplyWeights(config.Weights)
		e.loadedFrom = weightsPath
	}
	e.solver = training.NewSGD(config.LearningRate, config.Momentum, 0.0, false)
	e.solver.Init(e.network.NumWeights())
	e.deltas = make([][]float64, len(e.network.Layers))
	for layerIdx, layer := range e.network.Layers {
		e.deltas[layerIdx] = make([]float64, len(layer.Neurons))
	}
	return e, nil
}

// String implements fmt.Stringer and ai.QEstimator.
func (e *Estimator) String() string {
	name := fmt.Sprintf("%s[go-deep %v]", Name, e.config.HiddenLayers)
	if e.loadedFrom != "" {
		name += "@" + e.loadedFrom
	}
	return name
}

// QValues implements ai.QEstimator.
func (e *Estimator) QValues(state []float32) []float32 {
	return toFloat32(e.network.Predict(toFloat64(state)))
}

// Fit implements ai.QEstimator: it takes one stochastic gradient descent step on the example.
func (e *Estimator) Fit(state, qTargets []float32) (loss float32) {
	q := e.QValues(state)
	for ii, target := range qTargets {
		diff := q[ii] - target
		loss += diff * diff
	}
	loss /= float32(len(qTargets))
	e.numSteps++
	e.backpropagate(toFloat64(qTargets))
	e.update()
	return loss
}

// backpropagate the loss gradient into e.deltas. It assumes the network was just run forward on the example.
func (e *Estimator) backpropagate(targets []float64) {
	layers := e.network.Layers
	lossFn := deep.GetLoss(e.network.Config.Loss)
	last := len(layers) - 1
	for ii, neuron := range layers[last].Neurons {
		e.deltas[last][ii] = lossFn.Df(neuron.Value, targets[ii], neuron.DActivate(neuron.Value))
	}
	for layerIdx := last - 1; layerIdx >= 0; layerIdx-- {
		for ii, neuron := range layers[layerIdx].Neurons {
			var sum float64
			for outIdx, synapse := range neuron.Out {
				sum += synapse.Weight * e.deltas[layerIdx+1][outIdx]
			}
			e.deltas[layerIdx][ii] = neuron.DActivate(neuron.Value) * sum
		}
	}
}

// update every weight (bias included) with the solver, indexed in the same order as deep.Neural.NumWeights.
func (e *Estimator) update() {
	var idx int
	for layerIdx, layer := range e.network.Layers {
		for ii, neuron := range layer.Neurons {
			for _, synapse := range neuron.In {
				synapse.Weight += e.solver.Update(synapse.Weight, e.deltas[layerIdx][ii]*synapse.In, e.numSteps, idx)
				idx++
			}
		}
	}
}

// DefaultWeightsName implements ai.QEstimator.
func (e *Estimator) DefaultWeightsName() string {
	return DefaultWeightsName
}

// Save implements ai.QEstimator: the configuration and weights are written as JSON to the file path.
func (e *Estimator) Save(path string) error {
	config := e.config
	config.Weights = e.network.Dump().Weights
	data, err := json.Marshal(config)
	if err != nil {
		return errors.Wrapf(err, "failed to encode model %s weights", Name)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create directory for %q", path)
		}
	}
	if err = os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to save model %s weights", Name)
	}
	klog.Infof("Saved %s weights to %q", e, path)
	return nil
}

func loadConfig(path string) (Config, error) {
	var config Config
	data, err := os.ReadFile(path)
	if err != nil {
		return config, errors.Wrapf(err, "cannot load weights for model %s", Name)
	}
	if err = json.Unmarshal(data, &config); err != nil {
		return config, errors.Wrapf(err, "failed to parse weights for model %s from %q", Name, path)
	}
	if len(config.Weights) == 0 {
		return config, errors.Errorf("no weights for model %s found in %q", Name, path)
	}
	return config, nil
}

// checkWeights verifies the weights have the shape of the network: ApplyWeights doesn't.
func checkWeights(weights [][][]float64, inputs int, network *deep.Neural) error {
	layout := network.Config.Layout
	if len(weights) != len(layout) {
		return errors.Errorf("expected %d layers, got %d", len(layout), len(weights))
	}
	for layerIdx, layer := range weights {
		if len(layer) != layout[layerIdx] {
			return errors.Errorf("layer #%d: expected %d neurons, got %d", layerIdx, layout[layerIdx], len(layer))
		}
		// One weight per input plus the bias, except for the output layer in regression mode, which has no bias.
		want := inputs + 1
		if layerIdx == len(layout)-1 && network.Config.Mode == deep.ModeRegression {
			want = inputs
		}
		for neuronIdx, neuron := range layer {
			if len(neuron) != want {
				return errors.Errorf("layer #%d, neuron #%d: expected %d weights, got %d",
					layerIdx, neuronIdx, want, len(neuron))
			}
		}
		inputs = layout[layerIdx]
	}
	return nil
}

func toFloat64(values []float32) []float64 {
	return generics.SliceMap(values, func(v float32) float64 { return float64(v) })
}

func toFloat32(values []float64) []float32 {
	return generics.SliceMap(values, func(v float64) float32 { return float32(v) })
}
