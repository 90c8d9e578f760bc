// Package geometry provides the 2D transforms used by tilt detection:
// rotating a frame about its centre and mapping detections back into the
// unrotated frame.
package geometry

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// Transform constants.
const (
	// RotationScale shrinks the rotated frame so its corners stay on the canvas.
	RotationScale = 0.9
	// ReferenceFraction locates the back-mapping pivot at 40% of width and height.
	// It intentionally differs from the 50% pivot used by Rotate.
	ReferenceFraction = 0.4
)

// Box is an axis-aligned rectangle in pixel coordinates.
// The coordinate frame (rotated or original) is tracked by the caller.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// BoxFromRect converts an image.Rectangle into a Box.
func BoxFromRect(r image.Rectangle) Box {
	return Box{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Rect returns the box as an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H)
}

// Affine is a 2x3 affine transform in OpenCV row-major layout.
type Affine [2][3]float64

// RotationMatrix returns the transform that rotates by angleDegrees
// (counter-clockwise on screen) about (cx, cy) while scaling by scale.
// It matches cv::getRotationMatrix2D but keeps a fractional centre.
func RotationMatrix(cx, cy, angleDegrees, scale float64) Affine {
	rad := angleDegrees * math.Pi / 180
	a := scale * math.Cos(rad)
	b := scale * math.Sin(rad)

	return Affine{
		{a, b, (1-a)*cx - b*cy},
		{-b, a, b*cx + (1-a)*cy},
	}
}

// Apply transforms the point (x, y).
func (m Affine) Apply(x, y float64) (float64, float64) {
	return m[0][0]*x + m[0][1]*y + m[0][2],
		m[1][0]*x + m[1][1]*y + m[1][2]
}

// Mat converts the transform into a CV_64F Mat for gocv.WarpAffine.
// The caller is responsible for closing the returned Mat.
func (m Affine) Mat() gocv.Mat {
	mat := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	for row := 0; row < 2; row++ {
		for col := 0; col < 3; col++ {
			mat.SetDoubleAt(row, col, m[row][col])
		}
	}
	return mat
}

// Rotate rotates src about its centre by angleDegrees, scaled by
// RotationScale, using bilinear resampling. The output has the same size
// as the input. The caller is responsible for closing the returned Mat.
func Rotate(src gocv.Mat, angleDegrees float64) gocv.Mat {
	w, h := src.Cols(), src.Rows()

	m := RotationMatrix(float64(w)*0.5, float64(h)*0.5, angleDegrees, RotationScale).Mat()
	defer m.Close()

	dst := gocv.NewMat()
	gocv.WarpAffineWithParams(src, &dst, m, image.Pt(w, h), gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{})
	return dst
}

// Mirror flips src around its vertical axis so on-screen motion matches
// the user's own left and right. The caller is responsible for closing the
// returned Mat.
func Mirror(src gocv.Mat) gocv.Mat {
	dst := gocv.NewMat()
	gocv.Flip(src, &dst, 1)
	return dst
}

// MapPoint rotates (x, y) by angleDegrees about the back-mapping pivot of a
// width x height frame. Passing the negated forward angle undoes a forward
// rotation about the same pivot.
func MapPoint(x, y float64, width, height int, angleDegrees float64) (float64, float64) {
	rad := angleDegrees * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)

	px := float64(width) * ReferenceFraction
	py := float64(height) * ReferenceFraction

	dx := x - px
	dy := y - py

	return dx*cos + dy*sin + px,
		-dx*sin + dy*cos + py
}

// MapPointBack maps a box detected in a rotated frame into the original
// frame's coordinates. Callers pass the negated forward angle. Only the
// origin moves; width and height pass through. Coordinates are truncated
// toward zero.
func MapPointBack(b Box, width, height int, angleDegrees float64) Box {
	x, y := MapPoint(float64(b.X), float64(b.Y), width, height, angleDegrees)
	return Box{X: int(x), Y: int(y), W: b.W, H: b.H}
}
