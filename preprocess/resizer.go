package preprocess

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Resizer scales frames to a fixed display canvas whilst maintaining the
// source aspect ratio, padding the leftover area with a solid color the
// way a letterbox does
type Resizer struct {
	// srcWidth and srcHeight are the source frame dimensions
	srcWidth  int
	srcHeight int
	// destWidth and destHeight are the canvas dimensions to fit to
	destWidth  int
	destHeight int
	// tempMat holds the intermediate scaled image between the resize and
	// border padding steps
	tempMat gocv.Mat
	// scale is the factor applied to the source dimensions
	scale float32
	// xPad and yPad are the border sizes centering the scaled image
	xPad int
	yPad int
	// resizeW and resizeH are the scaled image dimensions
	resizeW int
	resizeH int
}

// NewResizer returns a Resizer that fits frames of srcWidth x srcHeight
// into a destWidth x destHeight canvas
func NewResizer(srcWidth, srcHeight, destWidth, destHeight int) *Resizer {

	r := &Resizer{
		srcWidth:   srcWidth,
		srcHeight:  srcHeight,
		destWidth:  destWidth,
		destHeight: destHeight,
		tempMat:    gocv.NewMat(),
	}

	// precalculate scaling dimensions, frames of the same source size
	// reuse them every iteration
	r.preCalc()

	return r
}

// Close frees memory allocated during the resize process
func (r *Resizer) Close() error {
	return r.tempMat.Close()
}

// preCalc works out the scale factor and centering pads for the source
// and canvas dimensions
func (r *Resizer) preCalc() {

	r.resizeW = r.destWidth
	r.resizeH = r.destHeight

	scaleW := float32(r.destWidth) / float32(r.srcWidth)
	scaleH := float32(r.destHeight) / float32(r.srcHeight)
	r.scale = scaleH

	if scaleW < scaleH {
		r.scale = scaleW
		r.resizeH = int(float32(r.srcHeight) * r.scale)
	} else {
		r.resizeW = int(float32(r.srcWidth) * r.scale)
	}

	r.xPad = (r.destWidth - r.resizeW) / 2
	r.yPad = (r.destHeight - r.resizeH) / 2
}

// LetterBoxResize scales src into dest maintaining the source aspect
// ratio and pads the remaining border area with the given color
func (r *Resizer) LetterBoxResize(src gocv.Mat, dest *gocv.Mat, c color.RGBA) {

	gocv.Resize(src, &r.tempMat, image.Pt(r.resizeW, r.resizeH),
		0, 0, gocv.InterpolationArea)

	gocv.CopyMakeBorder(r.tempMat, dest, r.yPad,
		r.destHeight-r.resizeH-r.yPad, r.xPad,
		r.destWidth-r.resizeW-r.xPad, gocv.BorderConstant, c)
}

// ScaleFactor returns the scale factor applied to the source dimensions
func (r *Resizer) ScaleFactor() float32 {
	return r.scale
}

// XPad returns the horizontal letterbox padding
func (r *Resizer) XPad() int {
	return r.xPad
}

// YPad returns the vertical letterbox padding
func (r *Resizer) YPad() int {
	return r.yPad
}

// SrcWidth returns the width of the source frame
func (r *Resizer) SrcWidth() int {
	return r.srcWidth
}

// SrcHeight returns the height of the source frame
func (r *Resizer) SrcHeight() int {
	return r.srcHeight
}

// DestWidth returns the width of the canvas being fitted to
func (r *Resizer) DestWidth() int {
	return r.destWidth
}

// DestHeight returns the height of the canvas being fitted to
func (r *Resizer) DestHeight() int {
	return r.destHeight
}
