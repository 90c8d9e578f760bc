// Package detector wraps an externally supplied object detector and runs it
// over rotated copies of a frame.
package detector

import (
	"image"

	"gocv.io/x/gocv"
)

// Detector is the opaque detection capability.
type Detector interface {
	// DetectLargest runs detection over frame and returns candidate boxes in
	// frame coordinates. Returns an empty slice if nothing qualifies.
	DetectLargest(frame gocv.Mat, params Params) []image.Rectangle

	// Close releases any resources held by the detector.
	Close() error
}

// Params holds the tuning constants for a detection call.
type Params struct {
	// ScaleFactor is the image pyramid step between search scales.
	ScaleFactor float64

	// MinNeighbors is how many overlapping raw hits a candidate needs.
	MinNeighbors int

	// MinSize is the smallest object reported.
	MinSize image.Point

	// FindBiggest asks the detector to report only the largest object.
	FindBiggest bool

	// RoughSearch trades accuracy for speed once an object is found.
	RoughSearch bool
}

// DefaultParams returns the tuning used for face tilt detection.
func DefaultParams() Params {
	return Params{
		ScaleFactor:  1.3,
		MinNeighbors: 3,
		MinSize:      image.Pt(120, 120),
		FindBiggest:  true,
		RoughSearch:  true,
	}
}
