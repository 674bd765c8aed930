package tracker

import (
	"math"
)

// Rect is a bounding box in top-left, width, height form
type Rect struct {
	X      float32
	Y      float32
	Width  float32
	Height float32
}

// NewRect creates a Rect with the given top-left coordinates and dimensions
func NewRect(x, y, width, height float32) Rect {
	return Rect{
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
	}
}

// BRX returns the bottom-right x coordinate of the rectangle
func (r Rect) BRX() float32 {
	return r.X + r.Width
}

// BRY returns the bottom-right y coordinate of the rectangle
func (r Rect) BRY() float32 {
	return r.Y + r.Height
}

// CenterX returns the x coordinate of the rectangle centre
func (r Rect) CenterX() float32 {
	return r.X + r.Width/2
}

// CenterY returns the y coordinate of the rectangle centre
func (r Rect) CenterY() float32 {
	return r.Y + r.Height/2
}

// Xyah converts the rectangle to the centre x, centre y, aspect ratio,
// height form used by the Kalman filter state
func (r Rect) Xyah() [4]float32 {
	return [4]float32{
		r.CenterX(),
		r.CenterY(),
		r.Width / r.Height,
		r.Height,
	}
}

// RectFromXyah converts centre x, centre y, aspect ratio, height form back
// into a rectangle
func RectFromXyah(xyah [4]float32) Rect {

	width := xyah[2] * xyah[3]

	return NewRect(xyah[0]-width/2, xyah[1]-xyah[3]/2, width, xyah[3])
}

// IoU calculates the Intersection over Union with another rectangle using
// inclusive pixel dimensions
func (r Rect) IoU(other Rect) float32 {

	iw := float32(math.Min(float64(r.BRX()), float64(other.BRX()))-
		math.Max(float64(r.X), float64(other.X))) + 1

	if iw <= 0 {
		return 0
	}

	ih := float32(math.Min(float64(r.BRY()), float64(other.BRY()))-
		math.Max(float64(r.Y), float64(other.Y))) + 1

	if ih <= 0 {
		return 0
	}

	union := (r.Width+1)*(r.Height+1) + (other.Width+1)*(other.Height+1) -
		iw*ih

	return iw * ih / union
}
