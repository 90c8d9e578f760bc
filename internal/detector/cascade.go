package detector

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// DefaultClassifier is the frontal face cascade shipped with OpenCV.
const DefaultClassifier = "haarcascade_frontalface_alt2.xml"

// OpenCV CascadeClassifier flag bits.
const (
	cascadeFindBiggestObject = 4
	cascadeDoRoughSearch     = 8
)

// ErrLoad is returned when a classifier artifact cannot be loaded.
var ErrLoad = errors.New("failed to load classifier")

// Cascade implements Detector using an OpenCV Haar/LBP cascade.
type Cascade struct {
	path       string
	classifier gocv.CascadeClassifier
	mu         sync.Mutex
	closed     bool
}

// LoadCascade loads the cascade at path. A missing or unparsable artifact
// is reported as ErrLoad so callers can fail before capture starts.
func LoadCascade(path string) (*Cascade, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrLoad, path, err)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("%w: %s", ErrLoad, path)
	}

	return &Cascade{
		path:       path,
		classifier: classifier,
	}, nil
}

// Path returns the artifact the cascade was loaded from.
func (c *Cascade) Path() string {
	return c.path
}

// DetectLargest runs the cascade over frame.
func (c *Cascade) DetectLargest(frame gocv.Mat, params Params) []image.Rectangle {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || frame.Empty() {
		return nil
	}

	return c.classifier.DetectMultiScaleWithParams(
		frame,
		params.ScaleFactor,
		params.MinNeighbors,
		params.flags(),
		params.MinSize,
		image.Point{},
	)
}

// Close releases the underlying classifier. It is safe to call more than once.
func (c *Cascade) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.classifier.Close()
}

func (p Params) flags() int {
	flags := 0
	if p.FindBiggest {
		flags |= cascadeFindBiggestObject
	}
	if p.RoughSearch {
		flags |= cascadeDoRoughSearch
	}
	return flags
}
