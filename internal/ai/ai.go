// Package ai (Artificial Intelligence) defines the interfaces that Q-value estimators for the snake game
// have to implement, and the math shared among them.
package ai

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/janpfeifer/snakeGo/internal/game"
)

const (
	// StateDim is the length of the state features vector given to the estimators.
	StateDim = game.StateDim

	// NumActions is the number of actions the snake can take at each step: straight, right or left.
	NumActions = 3
)

// Action is the index of the move the snake takes, relative to its current heading.
// The index matches game.Move: 0 = straight, 1 = turn right, 2 = turn left.
type Action int

// Move converts the action to the move applied to the game.
func (a Action) Move() game.Move {
	return game.Move(a)
}

func (a Action) String() string {
	return a.Move().String()
}

// OneHot encodes the action as a vector of NumActions elements.
func (a Action) OneHot() []float32 {
	return OneHotEncoding(NumActions, int(a))
}

// ActionFromOneHot returns the index of the largest element of the one-hot encoded action.
func ActionFromOneHot(vec []float32) Action {
	return Action(ArgMax(vec))
}

// QEstimator is a trainable estimator of Q-values: the expected discounted reward of taking
// each of the actions from a given state.
//
// The training loop only depends on this interface, implemented by the dueling network
// (package ai/gomlx) and by a plain feed-forward network (package ai/mlp).
type QEstimator interface {
	fmt.Stringer

	// QValues returns the estimated Q-value of each action for the given state.
	// The state must have StateDim elements, and NumActions values are returned.
	QValues(state []float32) []float32

	// Fit takes one training step towards the given Q-value targets for the state.
	// It returns the loss before the update.
	Fit(state, qTargets []float32) (loss float32)

	// Save the model parameters to the given path. What is created at path (a file or a
	// directory) depends on the estimator.
	Save(path string) error

	// DefaultWeightsName is the path used to save the weights if none is configured.
	DefaultWeightsName() string
}

// DuelingEstimator is a QEstimator that estimates separately the value of the state and the
// advantage of each action.
type DuelingEstimator interface {
	QEstimator

	// Predict returns the value of the state and the advantages of each action.
	// The Q-values are given by CombineQ(value, advantages).
	Predict(state []float32) (value float32, advantages []float32)
}

// CombineQ returns the Q-values of a dueling model: value + (advantages - mean(advantages)).
func CombineQ(value float32, advantages []float32) []float32 {
	mean := Mean(advantages)
	q := make([]float32, len(advantages))
	for ii, adv := range advantages {
		q[ii] = value + (adv - mean)
	}
	return q
}

// Mean of the values, or 0 if empty.
func Mean(values []float32) float32 {
	if len(values) == 0 {
		return 0
	}
	var sum float32
	for _, v := range values {
		sum += v
	}
	return sum / float32(len(values))
}

// ArgMax returns the index of the largest value. Ties are resolved to the lowest index.
// It returns -1 for an empty slice.
func ArgMax(values []float32) int {
	best, bestValue := -1, math32.Inf(-1)
	for ii, v := range values {
		if best == -1 || v > bestValue {
			best, bestValue = ii, v
		}
	}
	return best
}

// Max returns the largest value, or -Inf for an empty slice.
func Max(values []float32) float32 {
	maxValue := math32.Inf(-1)
	for _, v := range values {
		maxValue = math32.Max(maxValue, v)
	}
	return maxValue
}

// OneHotEncoding returns a slice of float32 with one element set to 1, and all others to 0.
func OneHotEncoding(total, selected int) (vec []float32) {
	vec = make([]float32, total)
	if total > 0 {
		vec[selected] = 1
	}
	return
}
