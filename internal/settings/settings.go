// Package settings holds the configuration of a training run.
//
// Settings are created once, usually from the command-line flags, validated, and then passed by
// pointer to the agent, the environment and the trainer. Nothing modifies them after that.
package settings

import (
	"time"

	"github.com/pkg/errors"
)

// Settings of a training run.
type Settings struct {
	// WeightsPath, if set, is loaded into the estimator when it is created.
	WeightsPath string

	// WeightsOut is where the estimator weights are saved at the end of the run. If empty,
	// the estimator's default name is used.
	WeightsOut string

	// DisplayOption enables rendering the board at every step.
	DisplayOption bool

	// Speed is the delay after each frame rendered. Only used with DisplayOption.
	Speed time.Duration

	// ModeFile is an optional JSON file with the list of barriers. Empty means no barriers.
	ModeFile string

	// Episodes is the number of games played in the run.
	Episodes int

	// BoardWidth and BoardHeight in pixels. Both must be multiples of the cell size.
	BoardWidth, BoardHeight int

	// Gamma is the discount factor of future rewards.
	Gamma float32

	// EpsilonBase and EpsilonRange define the exploration: at episode g, a random action is taken
	// if a random integer in [0, EpsilonRange) is < EpsilonBase-g.
	EpsilonBase, EpsilonRange int

	// ReplaySize is the maximum number of transitions replayed at the end of each episode.
	ReplaySize int

	// PlotPath is where the HTML plot of scores is written at the end of the run. Empty disables it.
	PlotPath string

	// Seed for the random number generators. 0 means a time-based seed.
	Seed uint64

	// Color enables colors in the console output.
	Color bool
}

// Default returns the settings of the classic recipe.
func Default() *Settings {
	return &Settings{
		Speed:        50 * time.Millisecond,
		Episodes:     150,
		BoardWidth:   440,
		BoardHeight:  440,
		Gamma:        0.9,
		EpsilonBase:  80,
		EpsilonRange: 200,
		ReplaySize:   1000,
		PlotPath:     "scores.html",
		Color:        true,
	}
}

// cellSize matches game.CellSize: it is repeated here to keep settings free of dependencies.
const cellSize = 20

// Validate returns an error describing the first invalid setting found.
func (s *Settings) Validate() error {
	if s.Episodes <= 0 {
		return errors.Errorf("the number of episodes must be > 0, got %d", s.Episodes)
	}
	if s.BoardWidth < 4*cellSize || s.BoardHeight < 4*cellSize {
		return errors.Errorf("board must be at least %dx%d pixels, got %dx%d", 4*cellSize, 4*cellSize, s.BoardWidth, s.BoardHeight)
	}
	if s.BoardWidth%cellSize != 0 || s.BoardHeight%cellSize != 0 {
		return errors.Errorf("board dimensions must be multiples of %d pixels, got %dx%d", cellSize, s.BoardWidth, s.BoardHeight)
	}
	if s.Gamma < 0 || s.Gamma > 1 {
		return errors.Errorf("gamma must be in [0, 1], got %g", s.Gamma)
	}
	if s.EpsilonRange <= 0 {
		return errors.Errorf("epsilon range must be > 0, got %d", s.EpsilonRange)
	}
	if s.ReplaySize <= 0 {
		return errors.Errorf("replay size must be > 0, got %d", s.ReplaySize)
	}
	if s.Speed < 0 {
		return errors.Errorf("speed (delay per frame) must be >= 0, got %s", s.Speed)
	}
	return nil
}
