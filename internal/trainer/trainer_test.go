package trainer

import (
	"bytes"
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/janpfeifer/snakeGo/internal/ai"
	"github.com/janpfeifer/snakeGo/internal/ai/dqn"
	"github.com/janpfeifer/snakeGo/internal/game"
	"github.com/janpfeifer/snakeGo/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zeroEstimator always estimates Q=0, so the greedy action is always straight.
type zeroEstimator struct {
	numFits int
	savedTo []string
}

var _ ai.QEstimator = (*zeroEstimator)(nil)

func (z *zeroEstimator) String() string              { return "zero" }
func (z *zeroEstimator) QValues([]float32) []float32 { return make([]float32, ai.NumActions) }
func (z *zeroEstimator) Fit(_, _ []float32) float32  { z.numFits++; return 0 }
func (z *zeroEstimator) Save(path string) error      { z.savedTo = append(z.savedTo, path); return nil }
func (z *zeroEstimator) DefaultWeightsName() string  { return "zero-weights" }

type countingDisplay struct {
	numShows, lastEpisode int
}

func (d *countingDisplay) Show(_ *game.Game, episode, _ int) {
	d.numShows++
	d.lastEpisode = episode
}

// newTestTrainer creates a trainer with a greedy-only agent, so every game is deterministic: the snake
// goes straight until it hits the right wall.
func newTestTrainer(t *testing.T, s *settings.Settings) (*Trainer, *zeroEstimator, *bytes.Buffer) {
	rng := rand.New(rand.NewPCG(7, 0))
	estimator := &zeroEstimator{}
	agent := dqn.New(s, estimator, rng)
	trainer, err := New(s, agent, rng)
	require.NoError(t, err)
	buf := &bytes.Buffer{}
	trainer.Out = buf
	trainer.Spinner = false
	return trainer, estimator, buf
}

func testSettings() *settings.Settings {
	s := settings.Default()
	s.Episodes = 3
	s.EpsilonBase = 0
	s.Speed = 0
	s.PlotPath = ""
	s.Color = false
	return s
}

func TestRun(t *testing.T) {
	s := testSettings()
	trainer, estimator, buf := newTestTrainer(t, s)
	var plotted []int
	trainer.Plotter = func(scores []int, runID string) error {
		plotted = append(plotted, scores...)
		assert.Equal(t, trainer.RunID, runID)
		return nil
	}
	require.NoError(t, trainer.Run(context.Background()))

	assert.Equal(t, []int{0, 0, 0}, trainer.Scores)
	assert.Equal(t, trainer.Scores, plotted)
	assert.Equal(t, []string{"zero-weights"}, estimator.savedTo)

	// Each game: one forced move (180->200) plus 11 steps straight until crashing at x=420.
	assert.Equal(t, 3*12, trainer.Agent.Memory.Len())
	last := trainer.Agent.Memory.At(trainer.Agent.Memory.Len() - 1)
	assert.True(t, last.Done)
	assert.Equal(t, float32(game.CrashReward), last.Reward)

	output := buf.String()
	for _, line := range []string{"Game 1      Score: 0", "Game 2      Score: 0", "Game 3      Score: 0"} {
		assert.Contains(t, output, line)
	}
	assert.Contains(t, output, "Summary:")
}

func TestRunWeightsOut(t *testing.T) {
	s := testSettings()
	s.Episodes = 1
	s.WeightsOut = filepath.Join(t.TempDir(), "my-weights")
	trainer, estimator, _ := newTestTrainer(t, s)
	require.NoError(t, trainer.Run(context.Background()))
	assert.Equal(t, []string{s.WeightsOut}, estimator.savedTo)
}

func TestRunWritesPlot(t *testing.T) {
	s := testSettings()
	s.Episodes = 2
	s.PlotPath = filepath.Join(t.TempDir(), "scores.html")
	trainer, _, _ := newTestTrainer(t, s)
	require.NoError(t, trainer.Run(context.Background()))
	contents, err := os.ReadFile(s.PlotPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(contents), trainer.RunID))
}

func TestRunInterrupted(t *testing.T) {
	trainer, estimator, buf := newTestTrainer(t, testSettings())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := trainer.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, trainer.Scores)
	assert.Empty(t, estimator.savedTo)
	assert.NotContains(t, buf.String(), "Game 1")
}

func TestDisplay(t *testing.T) {
	s := testSettings()
	s.Episodes = 2
	s.DisplayOption = true
	trainer, _, _ := newTestTrainer(t, s)
	display := &countingDisplay{}
	trainer.Display = display
	require.NoError(t, trainer.Run(context.Background()))
	// Per game: the board after the forced first move, plus one per step.
	assert.Equal(t, 2*12, display.numShows)
	assert.Equal(t, 2, display.lastEpisode)
}

func TestNewWithBadModeFile(t *testing.T) {
	s := testSettings()
	s.ModeFile = filepath.Join(t.TempDir(), "missing.json")
	_, err := New(s, dqn.New(s, &zeroEstimator{}, rand.New(rand.NewPCG(1, 0))), nil)
	require.Error(t, err)
}

func TestBarriersFromModeFile(t *testing.T) {
	s := testSettings()
	s.Episodes = 1
	s.ModeFile = filepath.Join(t.TempDir(), "mode.json")
	// A barrier right in front of the snake: it crashes right after the forced first move.
	require.NoError(t, os.WriteFile(s.ModeFile, []byte(`[[220, 220]]`), 0o644))
	trainer, _, _ := newTestTrainer(t, s)
	require.Len(t, trainer.Barriers, 1)
	require.NoError(t, trainer.Run(context.Background()))
	assert.Equal(t, 2, trainer.Agent.Memory.Len())
}
