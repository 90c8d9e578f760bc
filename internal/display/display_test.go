package display

import (
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/pageturner/internal/geometry"
)

func TestIsExitKey(t *testing.T) {
	tests := []struct {
		name string
		key  int
		want bool
	}{
		{name: "no key", key: -1, want: false},
		{name: "q", key: 'q', want: true},
		{name: "escape", key: 27, want: true},
		{name: "escape with modifier bits", key: 0x10001B, want: true},
		{name: "Q upper case", key: 'Q', want: false},
		{name: "space", key: ' ', want: false},
		{name: "page up", key: 65365, want: false},
		{name: "page down", key: 65366, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsExitKey(tt.key); got != tt.want {
				t.Errorf("IsExitKey(%d) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestHeadless(t *testing.T) {
	var d Display = Headless{}

	d.Render(nil, &geometry.Box{X: 1, Y: 2, W: 3, H: 4})
	if d.Poll() {
		t.Error("headless display should never request exit")
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestMockDisplay(t *testing.T) {
	m := NewMockDisplay(3)

	box := geometry.Box{X: 10, Y: 20, W: 30, H: 40}
	m.Render(nil, &box)
	m.Render(nil, nil)
	box.X = 99

	boxes := m.Boxes()
	if len(boxes) != 2 {
		t.Fatalf("len(Boxes()) = %d, want 2", len(boxes))
	}
	if boxes[0] == nil || boxes[0].X != 10 {
		t.Errorf("first box = %+v, want a copy with X=10", boxes[0])
	}
	if boxes[1] != nil {
		t.Errorf("second box = %+v, want nil", boxes[1])
	}

	for i, want := range []bool{false, false, true, true} {
		if got := m.Poll(); got != want {
			t.Errorf("poll %d = %v, want %v", i+1, got, want)
		}
	}

	m.Close()
	if !m.Closed() {
		t.Error("Closed() = false after Close()")
	}
}

func TestDrawBox(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping OpenCV test in short mode")
	}

	frame := gocv.NewMatWithSize(100, 100, gocv.MatTypeCV8UC3)
	defer frame.Close()
	frame.SetTo(gocv.NewScalar(0, 0, 0, 0))

	DrawBox(&frame, geometry.Box{X: 10, Y: 10, W: 50, H: 50})

	// BGR: green channel set on the top edge, interior untouched.
	if got := frame.GetUCharAt(10, 30*3+1); got != 255 {
		t.Errorf("edge green = %d, want 255", got)
	}
	if got := frame.GetUCharAt(35, 35*3+1); got != 0 {
		t.Errorf("interior green = %d, want 0", got)
	}
}
