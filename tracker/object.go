package tracker

// Object is a detected object fed to the tracker for association
type Object struct {
	// Rect is the bounding box of the detection
	Rect Rect
	// Label is the class label of the detection
	Label int
	// Prob is the confidence score of the detection
	Prob float32
}
