// Package plot renders the scores of a training run: an HTML chart (go-echarts) of the score per episode
// with its moving average, and summary statistics.
package plot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/janpfeifer/snakeGo/internal/generics"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MovingAverageWindow is the number of episodes averaged in the moving average series.
const MovingAverageWindow = 10

// WriteScores writes to path an HTML page with the chart of scores per episode.
func WriteScores(path string, scores []int, runID string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create directory for plot %q", path)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create plot file %q", path)
	}
	if err = RenderScores(f, scores, runID); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return errors.Wrapf(err, "failed to write plot file %q", path)
	}
	return nil
}

// RenderScores renders the HTML page with the chart of scores per episode to w.
func RenderScores(w io.Writer, scores []int, runID string) error {
	values := toFloat64(scores)
	episodes := make([]string, len(scores))
	for ii := range episodes {
		episodes[ii] = fmt.Sprintf("%d", ii+1)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Score per game",
			Subtitle: fmt.Sprintf("Run %s: %s", runID, Summarize(scores)),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Game"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Score"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Right: "10%"}),
	)
	line.SetXAxis(episodes).
		AddSeries("Score", lineData(values)).
		AddSeries(fmt.Sprintf("Moving average (%d games)", MovingAverageWindow),
			lineData(MovingAverage(values, MovingAverageWindow)))

	page := components.NewPage()
	page.PageTitle = "snakeGo scores"
	page.AddCharts(line)
	if err := page.Render(w); err != nil {
		return errors.Wrap(err, "failed to render scores plot")
	}
	return nil
}

func lineData(values []float64) []opts.LineData {
	items := make([]opts.LineData, 0, len(values))
	for _, v := range values {
		items = append(items, opts.LineData{Value: v})
	}
	return items
}

// MovingAverage returns, for each position, the mean of the last window values up to it.
// The first positions average over fewer values.
func MovingAverage(values []float64, window int) []float64 {
	averages := make([]float64, len(values))
	for ii := range values {
		start := max(0, ii+1-window)
		averages[ii] = stat.Mean(values[start:ii+1], nil)
	}
	return averages
}

// Summary statistics of the scores of a run.
type Summary struct {
	Games        int
	Mean, StdDev float64
	Best         float64
}

// Summarize the scores. StdDev is 0 with fewer than 2 scores.
func Summarize(scores []int) Summary {
	s := Summary{Games: len(scores)}
	if len(scores) == 0 {
		return s
	}
	values := toFloat64(scores)
	s.Best = floats.Max(values)
	if len(values) == 1 {
		s.Mean = values[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%d games, mean score %.2f (stddev %.2f), best %.0f", s.Games, s.Mean, s.StdDev, s.Best)
}

func toFloat64(scores []int) []float64 {
	return generics.SliceMap(scores, func(score int) float64 { return float64(score) })
}
