// Package display presents annotated frames and reports exit key presses.
package display

import (
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/pageturner/internal/geometry"
)

// WindowName is the title of the preview window.
const WindowName = "OpenCV Page Turner"

// PollDelay is how long, in milliseconds, Poll waits for a key press.
const PollDelay = 5

// Key codes reported by highgui for the keys we send ourselves.
const (
	keyPageUp   = 65365
	keyPageDown = 65366
	keyEscape   = 27
)

// BoxColor is the outline color for the detection box.
var BoxColor = color.RGBA{0, 255, 0, 0}

// BoxThickness is the outline thickness for the detection box.
const BoxThickness = 2

// Display shows frames to the user and reports when they asked to exit.
type Display interface {
	// Render presents frame with box outlined. A nil box draws nothing.
	Render(frame *gocv.Mat, box *geometry.Box)
	// Poll waits briefly for input and reports whether an exit was requested.
	Poll() bool
	Close() error
}

// DrawBox outlines box on frame in place.
func DrawBox(frame *gocv.Mat, box geometry.Box) {
	gocv.Rectangle(frame, box.Rect(), BoxColor, BoxThickness)
}

// IsExitKey reports whether a key code returned by WaitKey asks to exit.
// Page Up and Page Down are ignored since the window may receive the
// keys emitted for a page turn.
func IsExitKey(key int) bool {
	if key < 0 || key == keyPageUp || key == keyPageDown {
		return false
	}
	switch key & 0xFF {
	case 'q', keyEscape:
		return true
	}
	return false
}

// Window presents frames in a highgui window. It must be created and used
// on the main OS thread.
type Window struct {
	window *gocv.Window
}

// NewWindow opens the preview window.
func NewWindow() *Window {
	return &Window{window: gocv.NewWindow(WindowName)}
}

// Render draws box on frame and shows it.
func (w *Window) Render(frame *gocv.Mat, box *geometry.Box) {
	if frame == nil || frame.Empty() {
		return
	}
	if box != nil {
		DrawBox(frame, *box)
	}
	w.window.IMShow(*frame)
}

// Poll waits PollDelay milliseconds for a key.
func (w *Window) Poll() bool {
	return IsExitKey(w.window.WaitKey(PollDelay))
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.window.Close()
}

// Headless discards frames and never requests an exit.
type Headless struct{}

func (Headless) Render(*gocv.Mat, *geometry.Box) {}
func (Headless) Poll() bool { return false }
func (Headless) Close() error { return nil }
