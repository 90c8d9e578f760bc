package detector

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It returns scripted results per call.
type MockDetector struct {
	mu      sync.Mutex
	script  [][]image.Rectangle
	fn      func(call int) []image.Rectangle
	calls   int
	params  []Params
	closed  bool
	lastDim image.Point
}

// NewMockDetector creates a new MockDetector that finds nothing.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetResults scripts the result of each successive call. Calls past the
// end of the script find nothing.
func (m *MockDetector) SetResults(results ...[]image.Rectangle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = results
	m.fn = nil
}

// SetFunc makes each call return fn(call), where call counts from 0.
func (m *MockDetector) SetFunc(fn func(call int) []image.Rectangle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = fn
	m.script = nil
}

// DetectLargest returns the scripted result for this call.
func (m *MockDetector) DetectLargest(frame gocv.Mat, params Params) []image.Rectangle {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := m.calls
	m.calls++
	m.params = append(m.params, params)
	m.lastDim = image.Pt(frame.Cols(), frame.Rows())

	if m.fn != nil {
		return m.fn(call)
	}
	if call < len(m.script) {
		return m.script[call]
	}
	return nil
}

// Calls returns how many times DetectLargest has run.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Params returns the params passed to each call, in order.
func (m *MockDetector) Params() []Params {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Params(nil), m.params...)
}

// LastFrameSize returns the width and height of the last frame seen.
func (m *MockDetector) LastFrameSize() image.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastDim
}

// Close marks the mock closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
