package game

import (
	"slices"

	"github.com/janpfeifer/snakeGo/internal/generics"
)

// initialFood is where the first food item of a game is placed, if the cell is free.
var initialFood = Point{240, 200}

// Food item position, in pixels.
type Food struct {
	X, Y int
}

func newFood(g *Game) *Food {
	f := &Food{X: initialFood.X, Y: initialFood.Y}
	if !g.InBounds(initialFood) || g.IsBarrier(initialFood) || slices.Contains(g.Player.Position, initialFood) {
		f.spawn(g)
	}
	return f
}

// Point returns the food position.
func (f *Food) Point() Point {
	return Point{f.X, f.Y}
}

// spawn moves the food to a uniformly chosen free cell: in bounds, not a barrier, not the snake and
// not where the head is moving to. If the board is full the food stays where it is.
func (f *Food) spawn(g *Game) {
	occupied := generics.SetWith(g.Player.Position...)
	occupied.Insert(g.Player.Head())
	var free []Point
	for y := CellSize; y <= g.Height-2*CellSize; y += CellSize {
		for x := CellSize; x <= g.Width-2*CellSize; x += CellSize {
			p := Point{x, y}
			if occupied.Has(p) || g.IsBarrier(p) {
				continue
			}
			free = append(free, p)
		}
	}
	if len(free) == 0 {
		return
	}
	p := free[g.rng.IntN(len(free))]
	f.X, f.Y = p.X, p.Y
}
