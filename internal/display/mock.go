package display

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/pageturner/internal/geometry"
)

// MockDisplay records rendered boxes and requests exit after a set number of polls.
type MockDisplay struct {
	mu        sync.Mutex
	boxes     []*geometry.Box
	polls     int
	exitAfter int
	closed    bool
}

// NewMockDisplay creates a MockDisplay. Poll returns true from poll
// number exitAfter onwards; zero never exits.
func NewMockDisplay(exitAfter int) *MockDisplay {
	return &MockDisplay{exitAfter: exitAfter}
}

func (m *MockDisplay) Render(frame *gocv.Mat, box *geometry.Box) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if box != nil {
		b := *box
		box = &b
	}
	m.boxes = append(m.boxes, box)
}

func (m *MockDisplay) Poll() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.polls++
	return m.exitAfter > 0 && m.polls >= m.exitAfter
}

func (m *MockDisplay) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Boxes returns the box passed to each Render call, nil where none was drawn.
func (m *MockDisplay) Boxes() []*geometry.Box {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*geometry.Box, len(m.boxes))
	copy(out, m.boxes)
	return out
}

// Polls returns the number of Poll calls.
func (m *MockDisplay) Polls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polls
}

// Closed reports whether Close was called.
func (m *MockDisplay) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
