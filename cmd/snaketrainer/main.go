// snaketrainer trains an agent to play snake with deep Q-learning.
//
// It plays -episodes games: after every step the agent learns from the transition observed, and at the end of
// every game it replays (learns again from) up to -replay_size transitions sampled from its memory.
// At the end the weights are saved and the scores are plotted in an HTML file.
//
// The estimator of Q-values is configured with -ai, e.g. "-ai=dueling,head_activation=linear" or
// "-ai=plain,learning_rate=0.01". Use "-ai=dueling,help" to list the hyperparameters of the dueling network.
//
// See -help for flags.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/janpfeifer/must"
	"github.com/janpfeifer/snakeGo/internal/ai/dqn"
	"github.com/janpfeifer/snakeGo/internal/estimators"
	_ "github.com/janpfeifer/snakeGo/internal/estimators/default"
	"github.com/janpfeifer/snakeGo/internal/profilers"
	"github.com/janpfeifer/snakeGo/internal/settings"
	"github.com/janpfeifer/snakeGo/internal/trainer"
	"github.com/janpfeifer/snakeGo/internal/ui/spinning"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	defaults = settings.Default()

	flagAIConfig = flag.String("ai", "", fmt.Sprintf(
		"Configuration of the Q-value estimator: its name followed by comma-separated parameters, "+
			"e.g. \"dueling,learning_rate=0.001\". Registered estimators: %q. If empty, the default one is used.",
		estimators.Names()))
	flagWeights    = flag.String("weights", "", "Load pretrained network weights from the given path before training.")
	flagWeightsOut = flag.String("weights_out", "", "Where to save the weights at the end of the run. "+
		"Defaults to a name fixed by the estimator, e.g. \"dueling-weights\".")
	flagDisplay  = flag.Bool("display", false, "Display the board in the terminal at every step.")
	flagSpeed    = flag.Duration("speed", defaults.Speed, "Delay after each frame displayed. Only used with -display.")
	flagModeFile = flag.String("mode", "", "JSON file with a list of barriers, as [x, y] pixel coordinates.")
	flagEpisodes = flag.Int("episodes", defaults.Episodes, "Number of games to play.")
	flagWidth    = flag.Int("width", defaults.BoardWidth, "Board width in pixels, including the walls.")
	flagHeight   = flag.Int("height", defaults.BoardHeight, "Board height in pixels, including the walls.")
	flagGamma    = flag.Float64("gamma", float64(defaults.Gamma), "Discount factor of future rewards.")
	flagEpsilon  = flag.Int("epsilon", defaults.EpsilonBase, "Exploration: at game g (0-based) the action "+
		"is random with probability (epsilon-g)/epsilon_range.")
	flagEpsilonRange = flag.Int("epsilon_range", defaults.EpsilonRange, "See -epsilon.")
	flagReplaySize   = flag.Int("replay_size", defaults.ReplaySize, "Max number of transitions replayed at the end of each game.")
	flagPlot         = flag.String("plot", defaults.PlotPath, "HTML file where to plot the scores. Empty disables it.")
	flagSeed         = flag.Uint64("seed", 0, "Seed for the random number generator. 0 uses a time-based seed.")
	flagColor        = flag.Bool("color", defaults.Color, "Use colors in the console output.")
)

// Globals
var (
	// globalCtx used everywhere. It is cancelled when the program is about to exit either by
	// an interrupt (ctrl+C) or by reaching the end.
	globalCtx = context.Background()
)

func settingsFromFlags() (*settings.Settings, error) {
	s := &settings.Settings{
		WeightsPath:   *flagWeights,
		WeightsOut:    *flagWeightsOut,
		DisplayOption: *flagDisplay,
		Speed:         *flagSpeed,
		ModeFile:      *flagModeFile,
		Episodes:      *flagEpisodes,
		BoardWidth:    *flagWidth,
		BoardHeight:   *flagHeight,
		Gamma:         float32(*flagGamma),
		EpsilonBase:   *flagEpsilon,
		EpsilonRange:  *flagEpsilonRange,
		ReplaySize:    *flagReplaySize,
		PlotPath:      *flagPlot,
		Seed:          *flagSeed,
		Color:         *flagColor,
	}
	if s.Seed == 0 {
		s.Seed = uint64(time.Now().UnixNano())
	}
	if err := s.Validate(); err != nil {
		return nil, errors.WithMessage(err, "invalid flags")
	}
	return s, nil
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	// Capture Control+C
	var globalCancel func()
	globalCtx, globalCancel = context.WithCancel(context.Background())
	spinning.SafeInterrupt(globalCancel, 5*time.Second)
	defer globalCancel()

	// Profilers: HTTP profiler server and CPU profile.
	must.M(profilers.Setup(globalCtx))
	defer profilers.OnQuit()

	s := must.M1(settingsFromFlags())
	klog.V(1).Infof("Seed: %d", s.Seed)
	rng := rand.New(rand.NewPCG(s.Seed, s.Seed^0x5eed))

	estimator := must.M1(estimators.New(*flagAIConfig, s.WeightsPath))
	if s.WeightsPath != "" {
		fmt.Printf("Using pretrained network weights from %s\n", s.WeightsPath)
	}
	agent := dqn.New(s, estimator, rng)
	t := must.M1(trainer.New(s, agent, rng))
	if err := t.Run(globalCtx); err != nil {
		if globalCtx.Err() != nil {
			klog.Errorf("Interrupted after %d games, weights not saved: %v", t.Episode(), err)
			return
		}
		klog.Fatalf("Training failed: %+v", err)
	}
}
