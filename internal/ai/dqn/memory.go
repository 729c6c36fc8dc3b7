package dqn

import (
	"math/rand/v2"

	"github.com/janpfeifer/snakeGo/internal/ai"
)

// Transition observed in one step of the game.
type Transition struct {
	State     []float32
	Action    ai.Action
	Reward    float32
	NextState []float32

	// Done is set if the action ended the game.
	Done bool
}

// Memory of all transitions observed during a run, in the order they happened.
// It is never pruned.
type Memory struct {
	transitions []Transition
}

// Append transition to the memory.
func (m *Memory) Append(t Transition) {
	m.transitions = append(m.transitions, t)
}

// Len returns the number of transitions remembered.
func (m *Memory) Len() int {
	return len(m.transitions)
}

// At returns the i-th transition remembered.
func (m *Memory) At(i int) Transition {
	return m.transitions[i]
}

// Sample returns n transitions drawn uniformly without replacement.
// If the memory holds n or fewer transitions, all of them are returned in insertion order.
func (m *Memory) Sample(n int, rng *rand.Rand) []Transition {
	total := len(m.transitions)
	if total <= n {
		return append([]Transition(nil), m.transitions...)
	}

	// Partial Fisher-Yates shuffle of the indices: only the first n positions are drawn.
	indices := make([]int, total)
	for ii := range indices {
		indices[ii] = ii
	}
	sample := make([]Transition, n)
	for ii := range n {
		jj := ii + rng.IntN(total-ii)
		indices[ii], indices[jj] = indices[jj], indices[ii]
		sample[ii] = m.transitions[indices[ii]]
	}
	return sample
}
