package postprocess

// Postprocessor defines a function that filters or modifies an incoming
// slice of detection results
type Postprocessor func([]DetectResult) []DetectResult

// NewClassFilter returns a function that keeps only the detections whose
// class is in the given set of class ID's
func NewClassFilter(ids ...int) Postprocessor {

	keep := make(map[int]bool, len(ids))

	for _, id := range ids {
		keep[id] = true
	}

	return func(in []DetectResult) []DetectResult {
		out := make([]DetectResult, 0, len(in))

		for _, d := range in {
			if keep[d.Class] {
				out = append(out, d)
			}
		}

		return out
	}
}

// NewScoreFilter returns a function that filters out detections below a
// certain confidence
func NewScoreFilter(conf float32) Postprocessor {

	return func(in []DetectResult) []DetectResult {
		out := make([]DetectResult, 0, len(in))

		for _, d := range in {
			if d.Probability >= conf {
				out = append(out, d)
			}
		}

		return out
	}
}

// NewAreaFilter returns a function that filters out detections whose
// bounding box covers less than a certain pixel area
func NewAreaFilter(area int) Postprocessor {

	return func(in []DetectResult) []DetectResult {
		out := make([]DetectResult, 0, len(in))

		for _, d := range in {
			if d.Box.Width()*d.Box.Height() >= area {
				out = append(out, d)
			}
		}

		return out
	}
}
