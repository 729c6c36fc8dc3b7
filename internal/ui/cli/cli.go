// Package cli implements a command-line display of the snake game.
package cli

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/janpfeifer/snakeGo/internal/game"
	"golang.org/x/term"
)

// CharsPerCell is the width of each cell of the board in the terminal.
const CharsPerCell = 2

var ansiFilter = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// displayWidth of s removes its color/control sequences and returns the length of what is left.
func displayWidth(s string) int {
	return len([]rune(ansiFilter.ReplaceAllString(s, "")))
}

// printCentered writes block to w, with each line indented to center it in the terminal.
func printCentered(w io.Writer, block string) {
	lines := strings.Split(block, "\n")
	terminalWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		terminalWidth = 0
	}
	blockWidth := 0
	for _, line := range lines {
		blockWidth = max(blockWidth, displayWidth(line))
	}
	indent := max((terminalWidth-blockWidth)/2, 0)
	for _, line := range lines {
		if len(line) == 0 {
			_, _ = fmt.Fprintln(w)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", indent), line)
	}
}

// UI renders the board of a game at every step.
type UI struct {
	color, clearScreen bool
	out                io.Writer

	wall, barrier, head, body, food, empty string
}

// New creates a UI that writes to stdout.
func New(color bool, clearScreen bool) *UI {
	return NewWithWriter(os.Stdout, color, clearScreen)
}

// NewWithWriter creates a UI that writes to w.
func NewWithWriter(w io.Writer, color bool, clearScreen bool) *UI {
	ui := &UI{color: color, clearScreen: clearScreen, out: w}
	cell := func(symbol string, fg, bg string) string {
		if !color {
			return symbol
		}
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
		if bg != "" {
			style = style.Background(lipgloss.Color(bg))
		}
		return style.Render(symbol)
	}
	ui.wall = cell("##", "8", "8")
	ui.barrier = cell("XX", "9", "")
	ui.head = cell("@@", "10", "")
	ui.body = cell("oo", "2", "")
	ui.food = cell("<>", "11", "")
	ui.empty = cell(" .", "8", "")
	return ui
}

// Show renders the current state of g: the header with the episode number, score and record, and the board.
func (ui *UI) Show(g *game.Game, episode, record int) {
	if ui.clearScreen {
		_, _ = fmt.Fprint(ui.out, "\033c")
	}
	printCentered(ui.out, ui.Header(g, episode, record)+"\n\n"+ui.Board(g))
}

// Header returns a one-line summary of the game.
func (ui *UI) Header(g *game.Game, episode, record int) string {
	header := fmt.Sprintf("Game %d   Score: %d   Record: %d", episode, g.Score, record)
	if g.Crash {
		header += "   *** CRASH ***"
	}
	if !ui.color {
		return header
	}
	return lipgloss.NewStyle().
		Background(lipgloss.Color("13")).
		Foreground(lipgloss.Color("0")).
		Padding(0, 2).
		Render(header)
}

// Board returns the board of g, one line per row of cells. The outer band of cells is the wall.
func (ui *UI) Board(g *game.Game) string {
	var buf strings.Builder
	head := g.Player.Head()
	food := g.Food.Point()
	numCols, numRows := g.Width/game.CellSize, g.Height/game.CellSize
	for row := range numRows {
		if row > 0 {
			buf.WriteByte('\n')
		}
		for col := range numCols {
			p := game.Point{X: col * game.CellSize, Y: row * game.CellSize}
			switch {
			case p == head:
				buf.WriteString(ui.head)
			case slices.Contains(g.Player.Position, p):
				buf.WriteString(ui.body)
			case g.IsBarrier(p):
				buf.WriteString(ui.barrier)
			case p == food:
				buf.WriteString(ui.food)
			case !g.InBounds(p):
				buf.WriteString(ui.wall)
			default:
				buf.WriteString(ui.empty)
			}
		}
	}
	return buf.String()
}
