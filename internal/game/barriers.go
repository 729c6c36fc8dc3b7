package game

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// UnmarshalJSON reads a point as a 2-elements array [x, y], the format used by mode files.
func (p *Point) UnmarshalJSON(data []byte) error {
	var xy []int
	if err := json.Unmarshal(data, &xy); err != nil {
		return err
	}
	if len(xy) != 2 {
		return errors.Errorf("a point must have exactly 2 coordinates [x, y], got %v", xy)
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// MarshalJSON writes the point as [x, y].
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.X, p.Y})
}

// LoadBarriers reads a mode file: a JSON list of barrier coordinates [[x0, y0], [x1, y1], ...] in pixels.
// An empty path means no barriers. Coordinates are used verbatim.
func LoadBarriers(modeFile string) ([]Point, error) {
	if modeFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(modeFile)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read mode file %q", modeFile)
	}
	var barriers []Point
	if err := json.Unmarshal(data, &barriers); err != nil {
		return nil, errors.Wrapf(err, "failed to parse barriers from mode file %q", modeFile)
	}
	return barriers, nil
}
