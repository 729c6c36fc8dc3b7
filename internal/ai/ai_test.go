package ai

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombineQCentering(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 0))
	for range 100 {
		advantages := make([]float32, NumActions)
		for ii := range advantages {
			advantages[ii] = 100 * (rng.Float32() - 0.5)
		}
		value := 10 * (rng.Float32() - 0.5)
		q := CombineQ(value, advantages)
		require.Len(t, q, NumActions)

		// Centered advantages have zero mean, so Q has mean equal to the value.
		centered := make([]float32, NumActions)
		for ii := range q {
			centered[ii] = q[ii] - value
		}
		assert.InDelta(t, 0, Mean(centered), 1e-4)
		assert.InDelta(t, value, Mean(q), 1e-4)

		// Centering doesn't change the ranking of the actions.
		assert.Equal(t, ArgMax(advantages), ArgMax(q))
	}
}

func TestCombineQ(t *testing.T) {
	assert.InDeltaSlice(t, []float32{0, 1, 2}, CombineQ(1, []float32{-1, 0, 1}), 1e-6)
	assert.InDeltaSlice(t, []float32{5, 5, 5}, CombineQ(5, []float32{7, 7, 7}), 1e-6)
}

func TestArgMax(t *testing.T) {
	assert.Equal(t, -1, ArgMax(nil))
	assert.Equal(t, 2, ArgMax([]float32{-3, 0, 1}))
	// Ties go to the lowest index.
	assert.Equal(t, 0, ArgMax([]float32{1, 1, 1}))
	assert.Equal(t, 1, ArgMax([]float32{-1, 4, 4}))
}

func TestMax(t *testing.T) {
	assert.Equal(t, float32(4), Max([]float32{-1, 4, 2}))
	assert.Equal(t, float32(-2), Max([]float32{-3, -2}))
}

func TestActionOneHot(t *testing.T) {
	for _, a := range []Action{0, 1, 2} {
		vec := a.OneHot()
		require.Len(t, vec, NumActions)
		assert.Equal(t, float32(1), vec[a])
		assert.Equal(t, a, ActionFromOneHot(vec))
	}
	assert.Equal(t, "straight", Action(0).String())
	assert.Equal(t, "right", Action(1).String())
	assert.Equal(t, "left", Action(2).String())
}
