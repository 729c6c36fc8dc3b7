package gomlx

import (
	"fmt"

	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/layers"
	"github.com/gomlx/gomlx/ml/layers/activations"
	"github.com/gomlx/gomlx/ml/train/losses"
	"github.com/gomlx/gomlx/ml/train/optimizers"
	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/snakeGo/internal/ai"
)

const (
	// ParamHiddenNodes is the width of every hidden layer, in the trunk and in the heads.
	ParamHiddenNodes = "hidden_nodes"

	// ParamTrunkLayers is the number of hidden layers shared by the value and the advantage heads.
	ParamTrunkLayers = "trunk_layers"

	// ParamHeadActivation is the activation applied to the output of both heads: "softmax" or "linear".
	ParamHeadActivation = "head_activation"

	// ParamSeed for the random initialization of the weights and the dropout. 0 means random.
	ParamSeed = "seed"
)

// HeadActivations supported by ParamHeadActivation.
var HeadActivations = []string{"softmax", "linear"}

// DuelingFNN implements a feed-forward dueling model: a shared trunk of dense layers followed by a value head
// (one output) and an advantage head (one output per action).
type DuelingFNN struct {
	ctx *context.Context
}

// NewDuelingFNN creates a DuelingFNN model with a fresh context, initialized with hyperparameters set to their defaults.
func NewDuelingFNN() *DuelingFNN {
	fnn := &DuelingFNN{ctx: context.New()}
	fnn.ctx.SetParams(map[string]any{
		optimizers.ParamOptimizer:    "adam",
		optimizers.ParamLearningRate: 0.0005,
		optimizers.ParamAdamEpsilon:  1e-7,
		layers.ParamDropoutRate:      0.15,

		ParamHiddenNodes: 120,
		ParamTrunkLayers: 2,

		// "softmax" over the heads outputs is the default head, but it
		// is a poor choice for a regression: the value head (1 output) becomes constant.
		ParamHeadActivation: "softmax",
		ParamSeed:           0,
	})
	fnn.ctx = fnn.ctx.Checked(false)
	return fnn
}

// Context used by the model: with both its weights and hyperparameters.
func (fnn *DuelingFNN) Context() *context.Context {
	return fnn.ctx
}

// CreateInputs for a batch of states, shaped [batch, ai.StateDim].
func (fnn *DuelingFNN) CreateInputs(states [][]float32) *tensors.Tensor {
	statesT := tensors.FromShape(shapes.Make(dtypes.Float32, len(states), ai.StateDim))
	tensors.MutableFlatData(statesT, func(flat []float32) {
		for stateIdx, state := range states {
			copy(flat[stateIdx*ai.StateDim:], state)
		}
	})
	return statesT
}

// CreateLabels for a batch of value labels and advantages labels, shaped [batch, 1] and
// [batch, ai.NumActions] respectively.
func (fnn *DuelingFNN) CreateLabels(valueLabels []float32, advantagesLabels [][]float32) []*tensors.Tensor {
	valueLabelsT := tensors.FromShape(shapes.Make(dtypes.Float32, len(valueLabels), 1))
	tensors.MutableFlatData(valueLabelsT, func(flat []float32) {
		copy(flat, valueLabels)
	})
	advantagesLabelsT := tensors.FromShape(shapes.Make(dtypes.Float32, len(advantagesLabels), ai.NumActions))
	tensors.MutableFlatData(advantagesLabelsT, func(flat []float32) {
		for exampleIdx, labels := range advantagesLabels {
			copy(flat[exampleIdx*ai.NumActions:], labels)
		}
	})
	return []*tensors.Tensor{valueLabelsT, advantagesLabelsT}
}

// ForwardGraph returns the value of the states, shaped [batch, 1], and the advantages of each action,
// shaped [batch, ai.NumActions].
//
// Dropout is only applied if the context is set for training.
func (fnn *DuelingFNN) ForwardGraph(ctx *context.Context, states *Node) (value, advantages *Node) {
	batchSize := states.Shape().Dim(0)
	numTrunkLayers := context.GetParamOr(ctx, ParamTrunkLayers, 2)
	x := states
	for layerIdx := range numTrunkLayers {
		x = fnn.hiddenLayer(ctx.In(fmt.Sprintf("trunk_%d", layerIdx)), x)
	}
	value = fnn.head(ctx.In("value"), x, 1)
	advantages = fnn.head(ctx.In("advantage"), x, ai.NumActions)
	value.AssertDims(batchSize, 1)
	advantages.AssertDims(batchSize, ai.NumActions)
	return
}

// hiddenLayer is a dense layer followed by a ReLU and dropout.
func (fnn *DuelingFNN) hiddenLayer(ctx *context.Context, x *Node) *Node {
	numHiddenNodes := context.GetParamOr(ctx, ParamHiddenNodes, 120)
	dropoutRate := context.GetParamOr(ctx, layers.ParamDropoutRate, 0.15)
	x = layers.Dense(ctx, x, true, numHiddenNodes)
	x = activations.Relu(x)
	if dropoutRate > 0 {
		x = layers.DropoutStatic(ctx, x, dropoutRate)
	}
	return x
}

// head is a hidden layer followed by a dense projection to outputDim and the head activation.
func (fnn *DuelingFNN) head(ctx *context.Context, x *Node, outputDim int) *Node {
	x = fnn.hiddenLayer(ctx.In("hidden"), x)
	x = layers.Dense(ctx.In("output"), x, true, outputDim)
	switch activation := context.GetParamOr(ctx, ParamHeadActivation, "softmax"); activation {
	case "softmax":
		return Softmax(x, -1)
	case "linear":
		return x
	default:
		exceptions.Panicf("unknown %s=%q, valid values are %q", ParamHeadActivation, activation, HeadActivations)
	}
	return nil
}

// QGraph combines value and advantages into the Q-values: value + (advantages - mean(advantages)).
// It is the graph version of ai.CombineQ.
func QGraph(value, advantages *Node) *Node {
	dims := advantages.Shape().Dimensions
	meanAdvantages := ReduceAndKeep(advantages, ReduceMean, -1)
	centered := Sub(advantages, BroadcastToDims(meanAdvantages, dims...))
	return Add(BroadcastToDims(value, dims...), centered)
}

// LossGraph is the sum of the mean squared errors of the value and of the advantages heads.
// It returns a scalar.
func (fnn *DuelingFNN) LossGraph(ctx *context.Context, states, valueLabels, advantagesLabels *Node) *Node {
	value, advantages := fnn.ForwardGraph(ctx, states)
	valueLoss := losses.MeanSquaredError([]*Node{valueLabels}, []*Node{value})
	advantagesLoss := losses.MeanSquaredError([]*Node{advantagesLabels}, []*Node{advantages})
	if !valueLoss.IsScalar() {
		// Some losses may return one value per example of the batch.
		valueLoss = ReduceAllMean(valueLoss)
	}
	if !advantagesLoss.IsScalar() {
		advantagesLoss = ReduceAllMean(advantagesLoss)
	}
	return Add(valueLoss, advantagesLoss)
}
