package render

import (
	"fmt"
	"github.com/mzocca/go-personcounter/counter"
	"gocv.io/x/gocv"
	"image"
)

// CountOverlay draws the live person count, the running total, the session
// peak, and the measured frame rate in the top left corner of the frame
func CountOverlay(img *gocv.Mat, stats counter.Stats) {

	font := HUDFont()

	gocv.PutTextWithParams(img, fmt.Sprintf("Persons: %d", stats.Current),
		image.Pt(10, 30), font.Face, font.Scale, White, font.Thickness,
		font.LineType, false)

	gocv.PutTextWithParams(img, fmt.Sprintf("Total: %d", stats.Total),
		image.Pt(10, 60), font.Face, font.Scale, Green, font.Thickness,
		font.LineType, false)

	gocv.PutTextWithParams(img, fmt.Sprintf("Max: %d", stats.Max),
		image.Pt(10, 90), font.Face, font.Scale, Yellow, font.Thickness,
		font.LineType, false)

	if stats.FPS > 0 {
		gocv.PutTextWithParams(img, fmt.Sprintf("FPS: %.1f", stats.FPS),
			image.Pt(10, 120), font.Face, font.Scale, White, font.Thickness,
			font.LineType, false)
	}
}

// CountOverlayTTF draws the same overlay as CountOverlay using a TrueType
// font face
func CountOverlayTTF(img *gocv.Mat, stats counter.Stats, ttf *TTF) error {

	if err := ttf.PutText(img, fmt.Sprintf("Persons: %d", stats.Current),
		10, 30, White); err != nil {
		return err
	}

	if err := ttf.PutText(img, fmt.Sprintf("Total: %d", stats.Total),
		10, 60, Green); err != nil {
		return err
	}

	if err := ttf.PutText(img, fmt.Sprintf("Max: %d", stats.Max),
		10, 90, Yellow); err != nil {
		return err
	}

	if stats.FPS > 0 {
		if err := ttf.PutText(img, fmt.Sprintf("FPS: %.1f", stats.FPS),
			10, 120, White); err != nil {
			return err
		}
	}

	return nil
}
