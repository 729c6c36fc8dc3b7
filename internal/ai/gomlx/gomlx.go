// Package gomlx implements the dueling Q-value estimator with GoMLX.
//
// The model (DuelingFNN) estimates separately the value of the state and the advantage of each action,
// and the Q-values are given by value + (advantages - mean(advantages)). The Estimator wraps the model
// with its executors, optimizer and checkpoints, and implements ai.DuelingEstimator.
//
// Importing this package registers the estimator under the name "dueling".
package gomlx

import (
	"sync"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/janpfeifer/snakeGo/internal/ai"
	"github.com/janpfeifer/snakeGo/internal/estimators"
	"github.com/janpfeifer/snakeGo/internal/parameters"
	"github.com/pkg/errors"
)

// Name of the estimator in the configuration string.
const Name = "dueling"

// DefaultWeightsName is the checkpoint directory where the weights are saved at the end of a run.
const DefaultWeightsName = "dueling-weights"

var (
	// Backend is a singleton, the same for all estimators.
	backend = sync.OnceValue(func() backends.Backend { return backends.New() })
)

// init registers New as an estimator, so end users can use it.
func init() {
	estimators.Register(Name, func(params parameters.Params, weightsPath string) (ai.QEstimator, error) {
		return New(params, weightsPath)
	})
}

// extractParams and write them as context hyperparameters
func extractParams(modelName string, params parameters.Params, ctx *context.Context) error {
	var err error
	ctx.EnumerateParams(func(scope, key string, valueAny any) {
		if err != nil {
			// If error happened skip the rest.
			return
		}
		if scope != context.RootScope {
			return
		}
		switch defaultValue := valueAny.(type) {
		case string:
			err = overwriteParam(ctx, params, key, defaultValue)
		case int:
			err = overwriteParam(ctx, params, key, defaultValue)
		case float64:
			err = overwriteParam(ctx, params, key, defaultValue)
		case float32:
			err = overwriteParam(ctx, params, key, defaultValue)
		case bool:
			err = overwriteParam(ctx, params, key, defaultValue)
		default:
			err = errors.Errorf("parameter %q is of unknown type %T", key, defaultValue)
		}
		if err != nil {
			err = errors.WithMessagef(err, "model %s", modelName)
		}
	})
	return err
}

// overwriteParam in the context with the value in params, if present.
func overwriteParam[T parameters.Value](ctx *context.Context, params parameters.Params, key string, defaultValue T) error {
	value, err := parameters.PopParamOr(params, key, defaultValue)
	if err != nil {
		return errors.WithMessagef(err, "parsing %q (%T)", key, defaultValue)
	}
	ctx.SetParam(key, value)
	return nil
}
