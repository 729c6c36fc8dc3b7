package dqn

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/janpfeifer/snakeGo/internal/ai"
	"github.com/janpfeifer/snakeGo/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEstimator returns fixed Q-values (optionally per state) and records every call to Fit.
type fakeEstimator struct {
	q        []float32
	qByState map[float32][]float32 // Keyed by state[0].
	fits     [][2][]float32
	qCalls   int
}

var _ ai.QEstimator = (*fakeEstimator)(nil)

func (f *fakeEstimator) String() string { return "fake" }

func (f *fakeEstimator) QValues(state []float32) []float32 {
	f.qCalls++
	if q, found := f.qByState[state[0]]; found {
		return slices.Clone(q)
	}
	return slices.Clone(f.q)
}

func (f *fakeEstimator) Fit(state, qTargets []float32) float32 {
	f.fits = append(f.fits, [2][]float32{slices.Clone(state), slices.Clone(qTargets)})
	return 1
}

func (f *fakeEstimator) Save(string) error { return nil }

func (f *fakeEstimator) DefaultWeightsName() string { return "fake-weights" }

func newTestAgent(estimator ai.QEstimator) *Agent {
	return New(settings.Default(), estimator, rand.New(rand.NewPCG(42, 0)))
}

func stateWith(first float32) []float32 {
	state := make([]float32, ai.StateDim)
	state[0] = first
	return state
}

func TestEpsilon(t *testing.T) {
	agent := newTestAgent(&fakeEstimator{q: []float32{0, 0, 1}})
	for g := range 200 {
		assert.Equal(t, 80-g, agent.Epsilon(g))
	}

	// From episode 80 on, it is always greedy.
	for g := 80; g < 150; g++ {
		for range 50 {
			require.Equal(t, ai.Action(2), agent.Act(stateWith(0), g))
		}
	}

	// At episode 0 some actions must be random: epsilon=80 over a range of 200.
	counts := make([]int, ai.NumActions)
	for range 1000 {
		counts[agent.Act(stateWith(0), 0)]++
	}
	assert.Greater(t, counts[0], 0)
	assert.Greater(t, counts[1], 0)
	assert.Greater(t, counts[2], counts[0])
}

func TestGreedyTies(t *testing.T) {
	agent := newTestAgent(&fakeEstimator{q: []float32{3, 3, 1}})
	assert.Equal(t, ai.Action(0), agent.Greedy(stateWith(0)))
}

func TestTDTarget(t *testing.T) {
	estimator := &fakeEstimator{q: []float32{1, 5, 2}}
	agent := newTestAgent(estimator)

	// Terminal transitions don't look at the next state.
	target := agent.TDTarget(Transition{State: stateWith(0), NextState: stateWith(1), Reward: -10, Done: true})
	assert.Equal(t, float32(-10), target)
	assert.Zero(t, estimator.qCalls)

	target = agent.TDTarget(Transition{State: stateWith(0), NextState: stateWith(1), Reward: 10})
	assert.InDelta(t, 10+0.9*5, target, 1e-5)
}

func TestTrainShortMemory(t *testing.T) {
	estimator := &fakeEstimator{
		qByState: map[float32][]float32{
			0: {1, 2, 3},
			1: {4, 0, -1},
		},
	}
	agent := newTestAgent(estimator)
	agent.TrainShortMemory(Transition{State: stateWith(0), Action: 1, Reward: 0, NextState: stateWith(1)})
	require.Len(t, estimator.fits, 1)
	assert.Equal(t, stateWith(0), estimator.fits[0][0])
	assert.InDeltaSlice(t, []float32{1, 0.9 * 4, 3}, estimator.fits[0][1], 1e-5)
}

func TestReplayInOrder(t *testing.T) {
	estimator := &fakeEstimator{q: []float32{0, 0, 0}}
	agent := newTestAgent(estimator)
	for ii := range 3 {
		agent.Remember(Transition{
			State:     stateWith(float32(ii + 10)),
			Action:    ai.Action(ii),
			Reward:    float32(ii),
			NextState: stateWith(float32(ii + 11)),
			Done:      ii == 2,
		})
	}
	agent.Replay()
	require.Len(t, estimator.fits, 3)
	for ii, fit := range estimator.fits {
		assert.Equal(t, float32(ii+10), fit[0][0], "fit #%d out of order", ii)
		want := []float32{0, 0, 0}
		want[ii] = float32(ii)
		assert.InDeltaSlice(t, want, fit[1], 1e-5)
	}
}

func TestMemorySample(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 0))
	memory := &Memory{}
	for ii := range 500 {
		memory.Append(Transition{Reward: float32(ii)})
	}

	// Small memory: everything, in order.
	sample := memory.Sample(1000, rng)
	require.Len(t, sample, 500)
	for ii, tr := range sample {
		assert.Equal(t, float32(ii), tr.Reward)
	}

	// Large memory: exactly 1000 distinct transitions.
	for ii := 500; ii < 2500; ii++ {
		memory.Append(Transition{Reward: float32(ii)})
	}
	require.Equal(t, 2500, memory.Len())
	sample = memory.Sample(1000, rng)
	require.Len(t, sample, 1000)
	seen := make(map[float32]bool)
	for _, tr := range sample {
		assert.False(t, seen[tr.Reward], "transition %g sampled twice", tr.Reward)
		seen[tr.Reward] = true
		assert.GreaterOrEqual(t, tr.Reward, float32(0))
		assert.Less(t, tr.Reward, float32(2500))
	}

	// Sampling doesn't change the memory.
	for ii := range memory.Len() {
		require.Equal(t, float32(ii), memory.At(ii).Reward)
	}

	// Exact boundary: equal to the replay size uses the whole memory.
	memory = &Memory{}
	for ii := range 1000 {
		memory.Append(Transition{Reward: float32(ii)})
	}
	sample = memory.Sample(1000, rng)
	for ii, tr := range sample {
		require.Equal(t, float32(ii), tr.Reward)
	}
}
