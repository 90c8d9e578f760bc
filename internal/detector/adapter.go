package detector

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/pageturner/internal/geometry"
)

// Adapter runs a Detector over a frame rotated by a candidate tilt angle.
type Adapter struct {
	detector Detector
	params   Params
}

// NewAdapter creates an Adapter with fixed tuning params.
func NewAdapter(d Detector, params Params) *Adapter {
	return &Adapter{
		detector: d,
		params:   params,
	}
}

// Detect rotates frame by angleDegrees and returns the detector's boxes in
// the rotated frame's coordinates, in the order the detector produced them.
// Returns nil if nothing was found.
func (a *Adapter) Detect(frame gocv.Mat, angleDegrees float64) []geometry.Box {
	rotated := geometry.Rotate(frame, angleDegrees)
	defer rotated.Close()

	rects := a.detector.DetectLargest(rotated, a.params)
	if len(rects) == 0 {
		return nil
	}

	boxes := make([]geometry.Box, len(rects))
	for i, r := range rects {
		boxes[i] = geometry.BoxFromRect(r)
	}
	return boxes
}

// Params returns the tuning params passed to the detector.
func (a *Adapter) Params() Params {
	return a.params
}
