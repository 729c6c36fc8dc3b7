// Package estimators provides a factory of Q-value estimators from configuration strings.
// It also allows estimator providers to register themselves.
package estimators

import (
	"slices"
	"strings"

	"github.com/janpfeifer/snakeGo/internal/ai"
	"github.com/janpfeifer/snakeGo/internal/parameters"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Factory creates an estimator from its parameters. If weightsPath is not empty, the weights are
// loaded from there.
//
// The factory should pop from params the parameters it uses: any left over is reported as an error.
type Factory func(params parameters.Params, weightsPath string) (ai.QEstimator, error)

var (
	// Registered estimator factories, by name.
	registered = make(map[string]Factory)

	// DefaultConfig is used if no configuration is given.
	DefaultConfig = "dueling"
)

// Register a factory under the given name, the first element of the configuration string.
func Register(name string, factory Factory) {
	registered[name] = factory
}

// Names of the registered estimators, sorted.
func Names() []string {
	names := make([]string, 0, len(registered))
	for name := range registered {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// New creates a new estimator given the configuration string.
//
// Args:
//
//	config: the estimator name, followed by a comma-separated list of optional parameters with optional values
//		associated, e.g.: "dueling,learning_rate=0.001,head_activation=linear". If empty, DefaultConfig is used.
//	weightsPath: if not empty, the estimator loads its weights from there.
func New(config, weightsPath string) (ai.QEstimator, error) {
	if config == "" {
		config = DefaultConfig
	}
	name, paramsConfig, _ := strings.Cut(config, ",")
	name = strings.TrimSpace(name)
	factory, found := registered[name]
	if !found {
		return nil, errors.Errorf("unknown estimator %q, registered estimators are %q", name, Names())
	}
	params := parameters.NewFromConfigString(paramsConfig)
	estimator, err := factory(params, weightsPath)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create estimator %q", name)
	}
	if err = parameters.CheckAllUsed(params, name); err != nil {
		return nil, err
	}
	klog.V(1).Infof("Created estimator %s from %q", estimator, config)
	return estimator, nil
}
