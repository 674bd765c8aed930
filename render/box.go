package render

import (
	"fmt"
	"github.com/mzocca/go-personcounter/postprocess"
	"github.com/mzocca/go-personcounter/tracker"
	"gocv.io/x/gocv"
	"image"
	"image/color"
)

// boxLabel defines where the detection object label should be rendered on
// source image
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// DetectionBoxes renders the bounding boxes around each detected person
func DetectionBoxes(img *gocv.Mat, detectResults []postprocess.DetectResult,
	classNames []string, font Font, lineThickness int) {

	// keep a record of all box labels for later rendering
	boxLabels := make([]boxLabel, 0)

	// draw detection boxes
	for _, detResult := range detectResults {

		// draw rectangle around detected object
		rect := image.Rect(detResult.Box.Left, detResult.Box.Top, detResult.Box.Right,
			detResult.Box.Bottom)
		gocv.Rectangle(img, rect, Green, lineThickness)

		// create text for label
		text := fmt.Sprintf("%s %.2f", classNames[detResult.Class], detResult.Probability)

		boxLabels = append(boxLabels, makeBoxLabel(text, Green, font,
			detResult.Box.Left, detResult.Box.Top, detResult.Box.Right,
			lineThickness))
	}

	drawBoxLabels(img, boxLabels, font)
}

// TrackerBoxes renders the bounding boxes around each tracked person using
// a color fixed to the track identity
func TrackerBoxes(img *gocv.Mat, trackResults []*tracker.Track,
	classNames []string, font Font, lineThickness int) {

	// keep a record of all box labels for later rendering
	boxLabels := make([]boxLabel, 0)

	for _, tResult := range trackResults {

		// calculate the coordinates in the original image
		boxLeft := int(tResult.Rect().X)
		boxTop := int(tResult.Rect().Y)
		boxRight := int(tResult.Rect().BRX())
		boxBottom := int(tResult.Rect().BRY())

		// Get the color for this track
		colorIndex := tResult.Num % len(classColors)
		useClr := classColors[colorIndex]

		// draw rectangle around detected object
		rect := image.Rect(boxLeft, boxTop, boxRight, boxBottom)
		gocv.Rectangle(img, rect, useClr, lineThickness)

		// create text for label
		text := fmt.Sprintf("%s %d", classNames[tResult.Label], tResult.Num)

		boxLabels = append(boxLabels, makeBoxLabel(text, useClr, font,
			boxLeft, boxTop, boxRight, lineThickness))
	}

	drawBoxLabels(img, boxLabels, font)
}

// makeBoxLabel calculates the position of a label placed along the top edge
// of a bounding box
func makeBoxLabel(text string, clr color.RGBA, font Font,
	boxLeft, boxTop, boxRight, lineThickness int) boxLabel {

	textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

	// Calculate the alignment of text label
	var centerX int

	switch font.Alignment {
	case Center:
		centerX = (boxLeft + boxRight) / 2

	case Right:
		centerX = boxRight - (textSize.X / 2) - font.RightPad + (lineThickness / 2)

	case Left:
		fallthrough
	default:
		centerX = boxLeft + (textSize.X / 2) + font.LeftPad - (lineThickness / 2)
	}

	// Adjust the label position so the text is centered horizontally
	labelPosition := image.Pt(centerX-textSize.X/2, boxTop-font.BottomPad)

	// create box for placing text on
	bRect := image.Rect(centerX-textSize.X/2-font.LeftPad,
		boxTop-textSize.Y-font.TopPad-font.BottomPad,
		centerX+textSize.X/2+font.RightPad, boxTop)

	return boxLabel{
		rect:    bRect,
		clr:     clr,
		text:    text,
		textPos: labelPosition,
	}
}

// drawBoxLabels draws all precalculated box labels so they are the top most
// layer on the image and don't get overlapped by the boxes themselves
func drawBoxLabels(img *gocv.Mat, boxLabels []boxLabel, font Font) {

	for _, box := range boxLabels {
		// draw box text gets written on
		gocv.Rectangle(img, box.rect, box.clr, -1)

		// Draw the label over box
		gocv.PutTextWithParams(img, box.text, box.textPos,
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}
}
