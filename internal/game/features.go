package game

// StateDim is the number of features returned by Game.State.
const StateDim = 11

// State returns the features describing the game from the point of view of the snake head:
//
//	0-2: danger straight, right and left (moving there would crash).
//	3-6: heading left, right, up and down.
//	7-10: food to the left, right, above and below the head.
//
// Each feature is 0 or 1.
func (g *Game) State() []float32 {
	p := g.Player
	head := p.Head()
	state := []bool{
		g.IsDanger(head.Add(turn(p.Heading, MoveStraight))),
		g.IsDanger(head.Add(turn(p.Heading, MoveRight))),
		g.IsDanger(head.Add(turn(p.Heading, MoveLeft))),
		p.Heading.X < 0,
		p.Heading.X > 0,
		p.Heading.Y < 0,
		p.Heading.Y > 0,
		g.Food.X < p.X,
		g.Food.X > p.X,
		g.Food.Y < p.Y,
		g.Food.Y > p.Y,
	}
	features := make([]float32, StateDim)
	for ii, on := range state {
		if on {
			features[ii] = 1
		}
	}
	return features
}
