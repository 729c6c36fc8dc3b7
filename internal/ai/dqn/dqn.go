// Package dqn implements the Deep Q-Network agent: epsilon-greedy action selection, the
// temporal-difference updates after each step, and the replay of remembered transitions at the
// end of each episode.
//
// The agent only depends on the ai.QEstimator capability, so it works with both the dueling
// network and the plain one.
package dqn

import (
	"math/rand/v2"

	"github.com/janpfeifer/snakeGo/internal/ai"
	"github.com/janpfeifer/snakeGo/internal/settings"
	"k8s.io/klog/v2"
)

// Agent learns to play by estimating Q-values with its estimator.
type Agent struct {
	Estimator ai.QEstimator
	Memory    *Memory

	// Gamma is the discount of future rewards in the TD target.
	Gamma float32

	// EpsilonBase and EpsilonRange configure the exploration, see Epsilon.
	EpsilonBase, EpsilonRange int

	// ReplaySize is the maximum number of transitions replayed by Replay.
	ReplaySize int

	rng *rand.Rand
}

// New creates an agent with an empty memory that owns the given estimator.
func New(s *settings.Settings, estimator ai.QEstimator, rng *rand.Rand) *Agent {
	return &Agent{
		Estimator:    estimator,
		Memory:       &Memory{},
		Gamma:        s.Gamma,
		EpsilonBase:  s.EpsilonBase,
		EpsilonRange: s.EpsilonRange,
		ReplaySize:   s.ReplaySize,
		rng:          rng,
	}
}

// Epsilon returns the exploration threshold for the episode g (0-based).
// It becomes <= 0 at episode EpsilonBase, after which the agent always acts greedily.
func (a *Agent) Epsilon(g int) int {
	return a.EpsilonBase - g
}

// Act returns the action to take in state, during the episode g.
//
// A random integer in [0, EpsilonRange) is drawn: if it is < Epsilon(g) the action is random,
// otherwise it is the greedy one.
func (a *Agent) Act(state []float32, g int) ai.Action {
	if a.rng.IntN(a.EpsilonRange) < a.Epsilon(g) {
		return ai.Action(a.rng.IntN(ai.NumActions))
	}
	return a.Greedy(state)
}

// Greedy returns the action with the highest estimated Q-value. Ties go to the lowest index.
func (a *Agent) Greedy(state []float32) ai.Action {
	return ai.Action(ai.ArgMax(a.Estimator.QValues(state)))
}

// TDTarget returns the temporal-difference target for the action taken in the transition:
// the reward if it ended the game, or reward + Gamma * max(Q(next state)) otherwise.
func (a *Agent) TDTarget(t Transition) float32 {
	if t.Done {
		return t.Reward
	}
	return t.Reward + a.Gamma*ai.Max(a.Estimator.QValues(t.NextState))
}

// TrainShortMemory fits the estimator on one transition: the target Q-values are the current
// estimates for the state, with the action taken replaced by its TD target.
// It returns the loss reported by the estimator.
func (a *Agent) TrainShortMemory(t Transition) float32 {
	target := a.TDTarget(t)
	qTargets := a.Estimator.QValues(t.State)
	qTargets[t.Action] = target
	return a.Estimator.Fit(t.State, qTargets)
}

// Remember appends the transition to the memory.
func (a *Agent) Remember(t Transition) {
	a.Memory.Append(t)
}

// Replay trains on up to ReplaySize transitions sampled from memory, one fit per transition.
// If the memory holds no more than ReplaySize transitions, all are used, in insertion order.
// It returns the mean loss.
func (a *Agent) Replay() float32 {
	batch := a.Memory.Sample(a.ReplaySize, a.rng)
	if len(batch) == 0 {
		return 0
	}
	var sumLoss float32
	for _, t := range batch {
		sumLoss += a.TrainShortMemory(t)
	}
	meanLoss := sumLoss / float32(len(batch))
	klog.V(2).Infof("Replayed %d transitions out of %d: mean loss %.4f", len(batch), a.Memory.Len(), meanLoss)
	return meanLoss
}
