// Package trainer runs the training loop: it plays the configured number of games (episodes), with the agent
// learning after every step and replaying its memory at the end of every game.
//
// The loop is strictly sequential: one game, one agent. The context is only checked between steps, so an
// interrupt (Ctrl+C) stops the run promptly, without saving anything.
package trainer

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/janpfeifer/snakeGo/internal/ai"
	"github.com/janpfeifer/snakeGo/internal/ai/dqn"
	"github.com/janpfeifer/snakeGo/internal/game"
	"github.com/janpfeifer/snakeGo/internal/plot"
	"github.com/janpfeifer/snakeGo/internal/settings"
	"github.com/janpfeifer/snakeGo/internal/ui/cli"
	"github.com/janpfeifer/snakeGo/internal/ui/spinning"
	"github.com/logrusorgru/aurora"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Display renders the game, after every step.
type Display interface {
	Show(g *game.Game, episode, record int)
}

// Plotter renders the scores of all games at the end of the run.
type Plotter func(scores []int, runID string) error

// Trainer holds the state of a training run.
type Trainer struct {
	Settings *settings.Settings
	Agent    *dqn.Agent

	// Barriers loaded from Settings.ModeFile, used in every game.
	Barriers []game.Point

	// Display is used if Settings.DisplayOption is set. It defaults to the terminal display (package ui/cli).
	Display Display

	// Plotter is called at the end of the run. It defaults to writing the HTML plot to Settings.PlotPath,
	// or nil if PlotPath is empty.
	Plotter Plotter

	// Out is where the per-game results are printed. Defaults to os.Stdout.
	Out io.Writer

	// RunID identifies the run in the logs and in the plot.
	RunID string

	// Scores of each game played so far, and the best of them.
	Scores []int
	Record int

	// Spinner enables a spinning symbol while replaying the memory.
	Spinner bool

	rng    *rand.Rand
	colors aurora.Aurora
}

// New creates a trainer for the agent. It fails if the mode file (barriers) can't be loaded.
func New(s *settings.Settings, agent *dqn.Agent, rng *rand.Rand) (*Trainer, error) {
	barriers, err := game.LoadBarriers(s.ModeFile)
	if err != nil {
		return nil, err
	}
	t := &Trainer{
		Settings: s,
		Agent:    agent,
		Barriers: barriers,
		Out:      os.Stdout,
		RunID:    uuid.New().String(),
		Spinner:  true,
		rng:      rng,
		colors:   aurora.NewAurora(s.Color),
	}
	if s.DisplayOption {
		t.Display = cli.New(s.Color, true)
	}
	if s.PlotPath != "" {
		t.Plotter = func(scores []int, runID string) error {
			return plot.WriteScores(s.PlotPath, scores, runID)
		}
	}
	return t, nil
}

// Episode returns the number of games finished so far.
func (t *Trainer) Episode() int {
	return len(t.Scores)
}

// Run plays games until Settings.Episodes are finished, and then saves the estimator weights and plots
// the scores.
//
// If ctx is cancelled, it returns immediately with the context error, and nothing is saved.
func (t *Trainer) Run(ctx context.Context) error {
	klog.Infof("Run %s: training %s for %d games", t.RunID, t.Agent.Estimator, t.Settings.Episodes)
	start := time.Now()
	for t.Episode() < t.Settings.Episodes {
		if _, err := t.RunEpisode(ctx); err != nil {
			return err
		}
	}
	klog.Infof("Run %s: %d games played in %s", t.RunID, t.Episode(), time.Since(start))
	return t.finish()
}

// RunEpisode plays one game until the snake crashes, and replays the memory at the end.
// It returns the score of the game.
func (t *Trainer) RunEpisode(ctx context.Context) (score int, err error) {
	episode := t.Episode()
	g := game.New(t.Settings.BoardWidth, t.Settings.BoardHeight, t.Barriers, t.rng)
	t.firstMove(ctx, g)
	t.show(g)

	var numSteps int
	for !g.Crash {
		if err = ctx.Err(); err != nil {
			return 0, errors.WithMessagef(err, "training interrupted in game %d", episode+1)
		}
		state := g.State()
		action := t.Agent.Act(state, episode)
		g.DoMove(action.Move())
		transition := dqn.Transition{
			State:     state,
			Action:    action,
			Reward:    g.Reward(),
			NextState: g.State(),
			Done:      g.Crash,
		}
		t.Agent.TrainShortMemory(transition)
		t.Agent.Remember(transition)
		numSteps++
		previousRecord := t.Record
		t.Record = max(t.Record, g.Score)
		if t.Record > previousRecord {
			klog.V(2).Infof("Game %d: new record %d", episode+1, t.Record)
		}
		t.show(g)
	}

	// Game over: replay memory.
	loss := t.replay(ctx)
	if err = ctx.Err(); err != nil {
		return 0, errors.WithMessagef(err, "training interrupted in game %d", episode+1)
	}
	isRecord := g.Score > 0 && g.Score > maxScore(t.Scores)
	t.Scores = append(t.Scores, g.Score)
	t.printEpisode(g.Score, isRecord)
	klog.V(1).Infof("Game %d: %d steps, score %d, replay loss %.4f, memory %d transitions, epsilon %d",
		episode+1, numSteps, g.Score, loss, t.Agent.Memory.Len(), t.Agent.Epsilon(episode))
	return g.Score, nil
}

// firstMove moves the snake straight, and learns from it by replaying the memory.
func (t *Trainer) firstMove(ctx context.Context, g *game.Game) {
	state := g.State()
	action := ai.Action(game.MoveStraight)
	g.DoMove(action.Move())
	t.Agent.Remember(dqn.Transition{
		State:     state,
		Action:    action,
		Reward:    g.Reward(),
		NextState: g.State(),
		Done:      g.Crash,
	})
	t.replay(ctx)
}

// replay the agent memory, with a spinner if enabled.
func (t *Trainer) replay(ctx context.Context) float32 {
	if t.Spinner && t.Display == nil {
		spinner := spinning.New(ctx, fmt.Sprintf("Replaying %d transitions", min(t.Agent.Memory.Len(), t.Agent.ReplaySize)))
		defer spinner.Done()
	}
	return t.Agent.Replay()
}

// show the game and pause, if display is enabled.
func (t *Trainer) show(g *game.Game) {
	if !t.Settings.DisplayOption || t.Display == nil {
		return
	}
	t.Display.Show(g, t.Episode()+1, t.Record)
	if t.Settings.Speed > 0 {
		time.Sleep(t.Settings.Speed)
	}
}

func (t *Trainer) printEpisode(score int, isRecord bool) {
	line := fmt.Sprintf("Game %d      Score: %d", t.Episode(), score)
	if isRecord {
		_, _ = fmt.Fprintln(t.Out, t.colors.Green(line+"  (record)"))
		return
	}
	_, _ = fmt.Fprintln(t.Out, line)
}

// finish saves the weights, plots the scores and prints the summary of the run.
func (t *Trainer) finish() error {
	weightsPath := t.Settings.WeightsOut
	if weightsPath == "" {
		weightsPath = t.Agent.Estimator.DefaultWeightsName()
	}
	if err := t.Agent.Estimator.Save(weightsPath); err != nil {
		return errors.WithMessagef(err, "failed to save weights of %s", t.Agent.Estimator)
	}
	if t.Plotter != nil {
		if err := t.Plotter(t.Scores, t.RunID); err != nil {
			return errors.WithMessage(err, "failed to plot scores")
		}
	}
	summary := plot.Summarize(t.Scores)
	_, _ = fmt.Fprintf(t.Out, "%s %s\n", t.colors.Yellow("Summary:"), summary)
	return nil
}

func maxScore(scores []int) int {
	best := 0
	for _, score := range scores {
		best = max(best, score)
	}
	return best
}
