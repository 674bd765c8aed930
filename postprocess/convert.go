package postprocess

import "github.com/mzocca/go-personcounter/tracker"

// DetectionsToObjects takes post processed object detection results and
// converts them into tracker objects for feeding to the object tracker
func DetectionsToObjects(dets []DetectResult) []tracker.Object {

	var objs []tracker.Object

	for _, det := range dets {

		x := float32(det.Box.Left)
		y := float32(det.Box.Top)
		width := float32(det.Box.Width())
		height := float32(det.Box.Height())

		objs = append(objs, tracker.Object{
			Rect:  tracker.NewRect(x, y, width, height),
			Label: det.Class,
			Prob:  det.Probability,
		})
	}

	return objs
}
