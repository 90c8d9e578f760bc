// Package tilt decides, for a single frame, whether the user's head is
// tilted past a fixed angle and toward which side.
package tilt

import (
	"fmt"
	"math"

	"gocv.io/x/gocv"

	"github.com/ayusman/pageturner/internal/geometry"
)

// DefaultAngle is the candidate tilt magnitude in degrees.
const DefaultAngle = 30.0

// Direction is the page-turn direction implied by a tilt.
type Direction int

const (
	// Previous comes from a negative winning angle.
	Previous Direction = -1
	// Next comes from a positive winning angle.
	Next Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Previous:
		return "previous"
	case Next:
		return "next"
	default:
		return "none"
	}
}

// MarshalText encodes the direction by name.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a direction name.
func (d *Direction) UnmarshalText(text []byte) error {
	v, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// ParseDirection parses "previous", "next" or "none".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "previous":
		return Previous, nil
	case "next":
		return Next, nil
	case "none", "":
		return 0, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

// DirectionOf returns the direction for a winning angle.
func DirectionOf(angleDegrees float64) Direction {
	if angleDegrees < 0 {
		return Previous
	}
	return Next
}

// Finder returns candidate boxes for frame rotated by angleDegrees, in the
// rotated frame's coordinates. detector.Adapter implements it.
type Finder interface {
	Detect(frame gocv.Mat, angleDegrees float64) []geometry.Box
}

// Result is a detected tilt.
type Result struct {
	Direction Direction    `json:"direction"`
	Angle     float64      `json:"angle"`
	Box       geometry.Box `json:"box"` // original frame coordinates
}

// Evaluator scans a fixed, ordered pair of candidate angles.
type Evaluator struct {
	finder Finder
	angles [2]float64
}

// NewEvaluator creates an Evaluator scanning -|angle| then +|angle|.
func NewEvaluator(f Finder, angleDegrees float64) *Evaluator {
	a := math.Abs(angleDegrees)
	return &Evaluator{
		finder: f,
		angles: [2]float64{-a, a},
	}
}

// Angles returns the scan order.
func (e *Evaluator) Angles() []float64 {
	return e.angles[:]
}

// Evaluate runs one detection pass over frame.
//
// Angles are tried in scan order. The first angle with at least one box
// wins and the remaining angle is not evaluated. The winning box is the
// last one the finder returned, mapped back into frame coordinates.
// Returns false if no angle produced a box.
func (e *Evaluator) Evaluate(frame gocv.Mat) (Result, bool) {
	width, height := frame.Cols(), frame.Rows()

	for _, angle := range e.angles {
		boxes := e.finder.Detect(frame, angle)
		if len(boxes) == 0 {
			continue
		}

		best := boxes[len(boxes)-1]
		return Result{
			Direction: DirectionOf(angle),
			Angle:     angle,
			Box:       geometry.MapPointBack(best, width, height, -angle),
		}, true
	}

	return Result{}, false
}
