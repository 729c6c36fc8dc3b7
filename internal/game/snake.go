package game

// Snake is the player: a head position, a heading and the list of cells it occupies.
type Snake struct {
	// X, Y of the head.
	X, Y int

	// Position of every cell of the snake, tail first, head last.
	Position []Point

	// Length of the snake, that is, 1 + the number of food items eaten. It matches len(Position).
	Length int

	// Eaten is set by the move that eats the food, and consumed (the snake grows) by the next move.
	Eaten bool

	// Heading is the displacement of the last move: one of (±CellSize, 0), (0, ±CellSize).
	Heading Point
}

// newSnake places a snake of length 1 a bit left of the center of the board, heading right.
func newSnake(width, height int) *Snake {
	x := width * 45 / 100
	x -= x % CellSize
	y := height / 2
	y -= y % CellSize
	return &Snake{
		X:        x,
		Y:        y,
		Position: []Point{{x, y}},
		Length:   1,
		Heading:  Point{CellSize, 0},
	}
}

// Head returns the position of the head.
func (s *Snake) Head() Point {
	return Point{s.X, s.Y}
}

// updatePosition shifts the body one cell towards the new head position.
func (s *Snake) updatePosition(head Point) {
	last := len(s.Position) - 1
	if s.Position[last] == head {
		return
	}
	copy(s.Position, s.Position[1:])
	s.Position[last] = head
}
