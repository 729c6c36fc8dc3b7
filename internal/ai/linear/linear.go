// Package linear implements a pure Go linear Q-value estimator: one weight per state feature plus a bias,
// for each action. It defines its own gradient, and is trained with a simple SGD.
//
// Importing this package registers the estimator under the name "linear".
package linear

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/janpfeifer/snakeGo/internal/ai"
	"github.com/janpfeifer/snakeGo/internal/estimators"
	"github.com/janpfeifer/snakeGo/internal/parameters"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Name of the estimator in the configuration string.
const Name = "linear"

// DefaultWeightsName is the file where the weights are saved at the end of a run.
const DefaultWeightsName = "linear-weights.txt"

// rowDim is the number of weights per action: one per feature plus the bias (last).
const rowDim = ai.StateDim + 1

// Estimator is a linear model of the Q-value of each action.
// It implements ai.QEstimator.
type Estimator struct {
	// weights has one row of rowDim weights per action.
	weights []float32

	// LearningRate to use when training the linear model and L2Reg to use.
	LearningRate, L2Reg float32

	// GradientL2Clip clips the gradient to this l2 length before applying. 0 disables it.
	GradientL2Clip float32

	// Linearize training.
	muLearning sync.Mutex

	loadedFrom string
}

var _ ai.QEstimator = (*Estimator)(nil)

func init() {
	estimators.Register(Name, func(params parameters.Params, weightsPath string) (ai.QEstimator, error) {
		return New(params, weightsPath)
	})
}

// NewWithWeights creates a new Estimator with the given weights: NumActions rows of StateDim weights
// followed by the bias. Ownership of the weights is transferred.
func NewWithWeights(weights ...float32) (*Estimator, error) {
	if len(weights) != ai.NumActions*rowDim {
		return nil, errors.Errorf("model %s requires %d weights (%d actions x (%d features + bias)), got %d",
			Name, ai.NumActions*rowDim, ai.NumActions, ai.StateDim, len(weights))
	}
	return &Estimator{
		weights:        weights,
		LearningRate:   0.01,
		L2Reg:          0,
		GradientL2Clip: 10.0,
	}, nil
}

// New creates a linear estimator, zero-initialized or loaded from weightsPath.
// Parameters "learning_rate", "l2_reg" and "gradient_clip" can be given in params.
func New(params parameters.Params, weightsPath string) (e *Estimator, err error) {
	if weightsPath != "" {
		e, err = Load(weightsPath)
	} else {
		e, err = NewWithWeights(make([]float32, ai.NumActions*rowDim)...)
	}
	if err != nil {
		return nil, err
	}
	if e.LearningRate, err = parameters.PopParamOr(params, "learning_rate", e.LearningRate); err != nil {
		return nil, err
	}
	if e.L2Reg, err = parameters.PopParamOr(params, "l2_reg", e.L2Reg); err != nil {
		return nil, err
	}
	if e.GradientL2Clip, err = parameters.PopParamOr(params, "gradient_clip", e.GradientL2Clip); err != nil {
		return nil, err
	}
	if e.LearningRate <= 0 {
		return nil, errors.Errorf("model %s: learning_rate must be > 0, got %g", Name, e.LearningRate)
	}
	return e, nil
}

// String implements fmt.Stringer and ai.QEstimator.
func (e *Estimator) String() string {
	if e.loadedFrom != "" {
		return Name + "@" + e.loadedFrom
	}
	return Name
}

// DefaultWeightsName implements ai.QEstimator.
func (e *Estimator) DefaultWeightsName() string {
	return DefaultWeightsName
}

func (e *Estimator) row(action int) []float32 {
	return e.weights[action*rowDim : (action+1)*rowDim]
}

// QValues implements ai.QEstimator.
func (e *Estimator) QValues(state []float32) []float32 {
	if len(state) != ai.StateDim {
		klog.Fatalf("State dimension is %d, but model %s takes %d features", len(state), Name, ai.StateDim)
	}
	q := make([]float32, ai.NumActions)
	for action := range q {
		row := e.row(action)
		// Sum starts with the bias.
		sum := row[ai.StateDim]
		for ii, feature := range state {
			sum += feature * row[ii]
		}
		q[action] = sum
	}
	return q
}

// Fit implements ai.QEstimator, with one step of gradient descent.
func (e *Estimator) Fit(state, qTargets []float32) (loss float32) {
	e.muLearning.Lock()
	defer e.muLearning.Unlock()

	grad := make([]float32, len(e.weights))
	loss = e.calculateGradient(state, qTargets, grad)
	if e.GradientL2Clip > 0 {
		clipL2(grad, e.GradientL2Clip)
	}
	for ii := range grad {
		e.weights[ii] -= e.LearningRate * grad[ii]
	}
	return loss
}

// calculateGradient of the MSE (MeanSquaredError) loss, and returns the loss:
//
//	  x, x_i: input (state features) and x term i
//	  w_a, w_a,i: weights of action a, and its term i
//	  b_a: bias of action a
//	  q_a: w_a*x+b_a
//	Loss = sum_a (q_a - t_a)^2/A + L2Reg*|w|^2
//	  dLoss/dw_a,i = 2*(q_a - t_a)*x_i/A + 2*L2Reg*w_a,i
//	  dLoss/db_a = 2*(q_a - t_a)/A + 2*L2Reg*b_a
func (e *Estimator) calculateGradient(state, qTargets, gradient []float32) (loss float32) {
	q := e.QValues(state)
	numActions := float32(len(q))
	for action, qValue := range q {
		diff := qValue - qTargets[action]
		loss += diff * diff / numActions
		c := 2 * diff / numActions
		gradRow := gradient[action*rowDim : (action+1)*rowDim]
		for ii, x := range state {
			gradRow[ii] = c * x
		}
		gradRow[ai.StateDim] = c
	}
	if e.L2Reg > 0 {
		for ii, w := range e.weights {
			gradient[ii] += 2 * w * e.L2Reg
			loss += e.L2Reg * w * w
		}
	}
	return loss
}

func l2Len(vec []float32) float32 {
	total := float32(0.0)
	for _, value := range vec {
		total += value * value
	}
	return float32(math.Sqrt(float64(total)))
}

// clipL2 clips the L2 length of the vector.
func clipL2(vec []float32, maxLen float32) {
	l2 := l2Len(vec)
	if l2 > maxLen {
		ratio := maxLen / l2
		klog.V(3).Infof("clip: l2=%g, maxLen=%g, ratio=%g", l2, maxLen, ratio)
		for ii := range vec {
			vec[ii] *= ratio
		}
	}
}

// Save implements ai.QEstimator: one weight per line, with a comment line before the weights of each action.
// An existing file is renamed with a "~" suffix.
func (e *Estimator) Save(path string) error {
	e.muLearning.Lock()
	defer e.muLearning.Unlock()

	// Rename existing file, if it exists.
	if _, err := os.Stat(path); err == nil {
		err = os.Rename(path, path+"~")
		if err != nil {
			return errors.Wrapf(err, "failed to rename %s to %s", path, path+"~")
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to stat %s", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create directory for %q", path)
		}
	}

	var sb strings.Builder
	for action := range ai.NumActions {
		_, _ = fmt.Fprintf(&sb, "# %s: %d weights + bias\n", ai.Action(action), ai.StateDim)
		for _, value := range e.row(action) {
			_, _ = fmt.Fprintf(&sb, "%g\n", value)
		}
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return errors.Wrapf(err, "failed to save %s", path)
	}
	klog.Infof("Saved %s weights to %q", e, path)
	return nil
}

// Load model from fileName, as written by Save. Empty lines and comments ("#" or "//") are skipped.
func Load(fileName string) (*Estimator, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot load weights for model %s", Name)
	}
	valuesStr := strings.Split(string(data), "\n")
	weights := make([]float32, 0, len(valuesStr))
	for lineNum, valueStr := range valuesStr {
		valueStr = strings.TrimSpace(valueStr)
		if valueStr == "" || strings.HasPrefix(valueStr, "#") || strings.HasPrefix(valueStr, "//") {
			// Skip empty lines and comments.
			continue
		}
		f64, err := strconv.ParseFloat(valueStr, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse value in file %s, at line number #%d",
				fileName, lineNum+1)
		}
		weights = append(weights, float32(f64))
	}
	e, err := NewWithWeights(weights...)
	if err != nil {
		return nil, errors.WithMessagef(err, "invalid weights in %s", fileName)
	}
	e.loadedFrom = fileName
	return e, nil
}
