// Package game implements the snake environment the agent is trained on.
//
// Coordinates are in pixels, with the snake, the food and the barriers always aligned to a grid of
// CellSize pixels. The outermost band of cells is a wall: the snake crashes when it enters it,
// when it runs into its own body or when it hits a barrier.
package game

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/janpfeifer/snakeGo/internal/generics"
)

const (
	// CellSize in pixels.
	CellSize = 20

	// DefaultWidth and DefaultHeight of the board in pixels.
	DefaultWidth, DefaultHeight = 440, 440

	// CrashReward is given when the move ends the game.
	CrashReward = float32(-10)

	// EatReward is given when the move eats the food.
	EatReward = float32(10)
)

// Move is relative to the current heading of the snake.
type Move int

const (
	MoveStraight Move = iota
	MoveRight
	MoveLeft
)

func (m Move) String() string {
	switch m {
	case MoveStraight:
		return "straight"
	case MoveRight:
		return "right"
	case MoveLeft:
		return "left"
	}
	return fmt.Sprintf("Move(%d)", int(m))
}

// Point in pixel coordinates. Y grows downwards.
type Point struct {
	X, Y int
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Y + q.Y}
}

// Game is one episode of snake: it owns the snake (Player), the food and the barriers.
type Game struct {
	Width, Height int

	// Crash is set once the snake hits a wall, a barrier or itself. The game is over then.
	Crash bool

	// Score is the number of food items eaten.
	Score int

	Player *Snake
	Food   *Food

	// Barriers as loaded from the mode file, in the order given.
	Barriers   []Point
	barrierSet generics.Set[Point]

	rng *rand.Rand
}

// New creates a game of the given size in pixels, with the snake and the food at their starting positions.
// The barriers are usually loaded with LoadBarriers, and may be nil.
func New(width, height int, barriers []Point, rng *rand.Rand) *Game {
	g := &Game{
		Width:      width,
		Height:     height,
		Barriers:   barriers,
		barrierSet: generics.SetWith(barriers...),
		rng:        rng,
	}
	g.Player = newSnake(width, height)
	g.Food = newFood(g)
	return g
}

// InBounds returns whether p is inside the playable area, that is, not on the wall.
func (g *Game) InBounds(p Point) bool {
	return p.X >= CellSize && p.X <= g.Width-2*CellSize &&
		p.Y >= CellSize && p.Y <= g.Height-2*CellSize
}

// IsBarrier returns whether there is a barrier at p.
func (g *Game) IsBarrier(p Point) bool {
	return g.barrierSet.Has(p)
}

// IsDanger returns whether the snake would crash if its head moved to p.
func (g *Game) IsDanger(p Point) bool {
	return !g.InBounds(p) || g.IsBarrier(p) || slices.Contains(g.Player.Position, p)
}

// DoMove moves the snake one cell, turning first if the move asks for it.
// It updates Crash, Score and the food position. Calling it after a crash is allowed, the recipe
// this environment follows doesn't prevent it, but the results are meaningless.
func (g *Game) DoMove(move Move) {
	p := g.Player
	if p.Eaten {
		// The body grows by keeping the cell the head is leaving.
		p.Position = append(p.Position, p.Head())
		p.Eaten = false
		p.Length++
	}
	p.Heading = turn(p.Heading, move)
	head := p.Head().Add(p.Heading)
	p.X, p.Y = head.X, head.Y
	if !g.InBounds(head) || g.IsBarrier(head) || slices.Contains(p.Position, head) {
		g.Crash = true
	}
	g.eat()
	p.updatePosition(head)
}

// eat the food if the head is on it, and spawn a new one.
func (g *Game) eat() {
	if g.Player.X != g.Food.X || g.Player.Y != g.Food.Y {
		return
	}
	g.Food.spawn(g)
	g.Player.Eaten = true
	g.Score++
}

// Reward for the last move: CrashReward if it crashed, EatReward if it ate, 0 otherwise.
func (g *Game) Reward() float32 {
	if g.Crash {
		return CrashReward
	}
	if g.Player.Eaten {
		return EatReward
	}
	return 0
}

// turn heading according to move: right turns are clockwise on the screen (y grows downwards).
func turn(heading Point, move Move) Point {
	switch move {
	case MoveRight:
		return Point{-heading.Y, heading.X}
	case MoveLeft:
		return Point{heading.Y, -heading.X}
	}
	return heading
}
