package gomlx

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/context/checkpoints"
	"github.com/gomlx/gomlx/ml/train"
	"github.com/gomlx/gomlx/ml/train/optimizers"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/janpfeifer/snakeGo/internal/ai"
	"github.com/janpfeifer/snakeGo/internal/parameters"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Estimator implements ai.DuelingEstimator with a DuelingFNN model.
//
// It is not meant to be used concurrently, but it is safe to do so: executions are serialized.
type Estimator struct {
	model *DuelingFNN

	// Executors.
	predictExec, trainStepExec *context.Exec

	// optimizer used when training the model.
	optimizer optimizers.Interface

	// loadedFrom is the checkpoint directory the weights were loaded from, if any.
	loadedFrom string

	// mu serializes the executions and saving.
	mu sync.Mutex

	// NumCompilations of computation graphs.
	NumCompilations int
}

var (
	// Assert Estimator is an ai.DuelingEstimator.
	_ ai.DuelingEstimator = (*Estimator)(nil)
)

// New creates a dueling estimator configured by params.
// If weightsPath is not empty, the weights (and the hyperparameters they were trained with) are loaded from
// the checkpoint directory: hyperparameters given in params take precedence.
//
// The parameter "help" lists the hyperparameters and returns an error.
func New(params parameters.Params, weightsPath string) (*Estimator, error) {
	e := &Estimator{model: NewDuelingFNN()}
	ctx := e.model.Context()

	// Help if requested.
	if _, found := params["help"]; found {
		e.writeHyperparametersHelp()
		return nil, errors.Errorf("model %s help requested", Name)
	}

	if weightsPath != "" {
		if err := e.load(weightsPath); err != nil {
			return nil, err
		}
	}

	// Overwrite hyperparameters from given params.
	if err := extractParams(Name, params, ctx); err != nil {
		return nil, err
	}
	headActivation := context.GetParamOr(ctx, ParamHeadActivation, "softmax")
	if !slices.Contains(HeadActivations, headActivation) {
		return nil, errors.Errorf("model %s: invalid %s=%q, valid values are %q",
			Name, ParamHeadActivation, headActivation, HeadActivations)
	}
	if headActivation == "softmax" {
		klog.Warningf("Model %s is using %s=softmax: the value head outputs a constant 1, and advantages are "+
			"bounded to [0, 1] while the Q-value targets are not. Consider %s=linear.",
			Name, ParamHeadActivation, ParamHeadActivation)
	}
	if seed := context.GetParamOr(ctx, ParamSeed, 0); seed != 0 {
		ctx.RngStateFromSeed(int64(seed))
	} else if weightsPath == "" {
		ctx.RngStateReset()
	}

	// Create optimizer to be used in training.
	e.optimizer = optimizers.FromContext(ctx)
	e.createExecutors()

	// Force creating (or checking the loaded) variables: incompatible weights panic here.
	err := exceptions.TryCatch[error](func() {
		_ = e.QValues(make([]float32, ai.StateDim))
	})
	if err != nil {
		if weightsPath != "" {
			return nil, errors.WithMessagef(err, "weights in %q are not compatible with model %s", weightsPath, Name)
		}
		return nil, errors.WithMessagef(err, "failed to build model %s", Name)
	}
	return e, nil
}

func (e *Estimator) createExecutors() {
	ctx := e.model.Context()
	e.predictExec = context.NewExec(backend(), ctx,
		func(ctx *context.Context, inputs []*graph.Node) []*graph.Node {
			e.NumCompilations++
			value, advantages := e.model.ForwardGraph(ctx, inputs[0])
			return []*graph.Node{value, advantages, QGraph(value, advantages)}
		})
	e.trainStepExec = context.NewExec(backend(), ctx,
		func(ctx *context.Context, inputsAndLabels []*graph.Node) *graph.Node {
			e.NumCompilations++
			g := inputsAndLabels[0].Graph()
			ctx.SetTraining(g, true)
			states, valueLabels, advantagesLabels := inputsAndLabels[0], inputsAndLabels[1], inputsAndLabels[2]
			loss := e.model.LossGraph(ctx, states, valueLabels, advantagesLabels)
			e.optimizer.UpdateGraph(ctx, g, loss)
			train.ExecPerStepUpdateGraphFn(ctx, g)
			return loss
		})
}

// String implements fmt.Stringer and ai.QEstimator.
func (e *Estimator) String() string {
	if e == nil {
		return "<nil>[GoMLX]"
	}
	gomlxName := fmt.Sprintf("[GoMLX/%s]", backend().Name())
	if e.loadedFrom == "" {
		return Name + gomlxName
	}
	return fmt.Sprintf("%s%s@%s", Name, gomlxName, e.loadedFrom)
}

// predict returns the value, the advantages and the Q-values for state.
func (e *Estimator) predict(state []float32) (value float32, advantages, q []float32) {
	statesT := e.model.CreateInputs([][]float32{state})
	e.mu.Lock()
	defer e.mu.Unlock()
	outputs := e.predictExec.Call(graph.DonateTensorBuffer(statesT, backend()))
	value = tensors.CopyFlatData[float32](outputs[0])[0]
	advantages = tensors.CopyFlatData[float32](outputs[1])
	q = tensors.CopyFlatData[float32](outputs[2])
	return
}

// Predict implements ai.DuelingEstimator.
func (e *Estimator) Predict(state []float32) (value float32, advantages []float32) {
	value, advantages, _ = e.predict(state)
	return
}

// QValues implements ai.QEstimator.
func (e *Estimator) QValues(state []float32) []float32 {
	_, _, q := e.predict(state)
	return q
}

// Fit implements ai.QEstimator: it takes one training step.
//
// The advantages head is trained towards qTargets, and the value head towards its own current prediction.
func (e *Estimator) Fit(state, qTargets []float32) (loss float32) {
	value, _, _ := e.predict(state)
	statesT := e.model.CreateInputs([][]float32{state})
	labels := e.model.CreateLabels([]float32{value}, [][]float32{qTargets})
	e.mu.Lock()
	defer e.mu.Unlock()
	lossT := e.trainStepExec.Call(
		graph.DonateTensorBuffer(statesT, backend()),
		graph.DonateTensorBuffer(labels[0], backend()),
		graph.DonateTensorBuffer(labels[1], backend()))[0]
	return tensors.ToScalar[float32](lossT)
}

// DefaultWeightsName implements ai.QEstimator.
func (e *Estimator) DefaultWeightsName() string {
	return DefaultWeightsName
}

// Save implements ai.QEstimator. It writes a checkpoint with the weights and the hyperparameters in the
// directory dir, replacing any previous content.
func (e *Estimator) Save(dir string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrapf(err, "failed to remove previous weights in %q", dir)
	}
	checkpoint, err := checkpoints.Build(e.model.Context()).Dir(dir).Immediate().Keep(1).Done()
	if err != nil {
		return errors.WithMessagef(err, "failed to create checkpoint for model %s in %q", Name, dir)
	}
	if err = checkpoint.Save(); err != nil {
		return errors.WithMessagef(err, "failed to save model %s to %q", Name, dir)
	}
	klog.Infof("Saved %s weights to %q", e, dir)
	return nil
}

// load the latest checkpoint in dir. It fails if dir doesn't exist or has no checkpoints.
func (e *Estimator) load(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return errors.Wrapf(err, "cannot load weights for model %s", Name)
	}
	checkpoint, err := checkpoints.Build(e.model.Context()).Dir(dir).Immediate().Done()
	if err != nil {
		return errors.WithMessagef(err, "failed to load weights for model %s from %q", Name, dir)
	}
	names, err := checkpoint.ListCheckpoints()
	if err != nil {
		return errors.WithMessagef(err, "failed to list checkpoints in %q", dir)
	}
	if len(names) == 0 {
		return errors.Errorf("no checkpoints for model %s found in %q", Name, dir)
	}
	e.loadedFrom = dir
	klog.V(1).Infof("Loaded model %s from checkpoint %q", Name, names[len(names)-1])
	return nil
}

// writeHyperparametersHelp enumerates all the hyperparameters set in the context.
func (e *Estimator) writeHyperparametersHelp() {
	buf := &bytes.Buffer{}
	_, _ = fmt.Fprintf(buf, "Model %s parameters:\n", Name)
	e.model.Context().EnumerateParams(func(scope, key string, value any) {
		if scope != context.RootScope {
			return
		}
		_, _ = fmt.Fprintf(buf, "\t%q: default value is %v\n", key, value)
	})
	klog.Info(buf)
}
