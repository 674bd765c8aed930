package postprocess

import (
	"gocv.io/x/gocv"

	"github.com/mzocca/go-personcounter"
)

// YOLOv4 defines the struct for YOLOv4 model inference post processing
type YOLOv4 struct {
	// Params are the Model configuration parameters
	Params YOLOv4Params
}

// YOLOv4Params defines the struct containing the YOLOv4 parameters to use
// for post processing operations
type YOLOv4Params struct {
	// BoxThreshold is the minimum class probability score required for a
	// bounding box region to be detected as an object
	BoxThreshold float32
	// NMSThreshold is the Non-Maximum Suppression threshold used for defining
	// the maximum allowed Intersection Over Union (IoU) between two
	// bounding boxes for both to be kept
	NMSThreshold float32
	// ObjectClassNum is the number of different object classes the Model has
	// been trained with
	ObjectClassNum int
	// ProbBoxSize is the length of the array elements describing each
	// bounding box, 4 box coordinates plus objectness plus the class
	// probabilities, so ObjectClassNum+5
	ProbBoxSize int
	// MaxObjectNumber is the maximum number of objects detected that can be
	// returned
	MaxObjectNumber int
}

// YOLOv4TinyCOCOParams returns an instance of YOLOv4Params configured with
// default values for a YOLOv4-tiny Model trained on the COCO dataset
// featuring:
// - Object Classes: 80
// - Box Threshold: 0.4
// - NMS Threshold: 0.4
// - Prob Box Size: 85
// - Max Object Number: 64
func YOLOv4TinyCOCOParams() YOLOv4Params {
	return YOLOv4Params{
		BoxThreshold:    0.4,
		NMSThreshold:    0.4,
		ObjectClassNum:  80,
		ProbBoxSize:     85,
		MaxObjectNumber: 64,
	}
}

// NewYOLOv4 returns an instance of the YOLOv4 post processor
func NewYOLOv4(p YOLOv4Params) *YOLOv4 {
	return &YOLOv4{
		Params: p,
	}
}

// regionData is a struct used to hold the detection candidates accumulated
// across all model output layers during post processing
type regionData struct {
	// filterBoxes is a slice of detected bounding boxes in groups of four
	// pixel values (x, y, width, height)
	filterBoxes []float32
	// objProbs is a slice of object probabilities for the detected boxes
	objProbs []float32
	// classID is a slice of the class ID's corresponding to the detected boxes
	classID []int
	// width and height are the dimensions of the source frame the
	// bounding box coordinates get scaled to
	width  int
	height int
}

// newRegionData returns an initialised instance of regionData
func newRegionData(outputs *personcounter.Outputs) *regionData {
	return &regionData{
		filterBoxes: make([]float32, 0),
		objProbs:    make([]float32, 0),
		classID:     make([]int, 0),
		width:       outputs.FrameWidth,
		height:      outputs.FrameHeight,
	}
}

// DetectObjects takes the model outputs and runs the object detection process
// over each output layer returning the results
func (y *YOLOv4) DetectObjects(outputs *personcounter.Outputs) []DetectResult {

	data := newRegionData(outputs)
	validCount := 0

	// process each output layer
	for i := range outputs.Mats {
		validCount += y.processRegion(outputs.Mats[i], data)
	}

	if validCount <= 0 {
		// no object detected
		return nil
	}

	// indexArray is used to keep an index of the detected objects contained
	// in the "data" variable
	var indexArray []int

	for i := 0; i < validCount; i++ {
		indexArray = append(indexArray, i)
	}

	quickSortIndiceInverse(data.objProbs, 0, validCount-1, indexArray)

	// create a map of all unique class ID's detected
	classSet := make(map[int]bool)

	for _, id := range data.classID {
		classSet[id] = true
	}

	// for each classID in the classSet run the NMS algorithm
	for c := range classSet {
		nms(validCount, data.filterBoxes, data.classID, indexArray, c,
			y.Params.NMSThreshold)
	}

	var group []DetectResult
	lastCount := 0

	// collate the detected objects into the result for returning
	for i := 0; i < validCount; i++ {

		if indexArray[i] == -1 || lastCount >= y.Params.MaxObjectNumber {
			continue
		}

		n := indexArray[i]

		x1 := data.filterBoxes[n*4+0]
		y1 := data.filterBoxes[n*4+1]
		x2 := x1 + data.filterBoxes[n*4+2]
		y2 := y1 + data.filterBoxes[n*4+3]
		classID := data.classID[n]
		objConf := data.objProbs[i]

		result := DetectResult{
			Box: BoxRect{
				Left:   int(clamp(x1, 0, uint32(data.width))),
				Top:    int(clamp(y1, 0, uint32(data.height))),
				Right:  int(clamp(x2, 0, uint32(data.width))),
				Bottom: int(clamp(y2, 0, uint32(data.height))),
			},
			Probability: objConf,
			Class:       classID,
		}

		group = append(group, result)
		lastCount++
	}

	return group
}

// processRegion decodes the detection candidates from a single model output
// layer.  Each row of the layer holds the bounding box centre coordinates
// and size normalised to the frame dimensions, an objectness score, and the
// per class probabilities.  Returns the number of candidates that passed
// the box threshold
func (y *YOLOv4) processRegion(out gocv.Mat, data *regionData) int {

	if out.Empty() || out.Cols() < y.Params.ProbBoxSize {
		return 0
	}

	rows := out.Rows()
	validCount := 0

	for r := 0; r < rows; r++ {

		// find the class with the highest probability, columns 0-3 hold the
		// box, column 4 the objectness score, and the class probabilities
		// start at column 5
		maxClassProbs := out.GetFloatAt(r, 5)
		maxClassID := 0

		for k := 1; k < y.Params.ObjectClassNum; k++ {
			prob := out.GetFloatAt(r, 5+k)

			if prob > maxClassProbs {
				maxClassID = k
				maxClassProbs = prob
			}
		}

		if maxClassProbs > y.Params.BoxThreshold {

			// scale the normalised centre box back to frame pixel
			// coordinates
			boxCX := out.GetFloatAt(r, 0) * float32(data.width)
			boxCY := out.GetFloatAt(r, 1) * float32(data.height)
			boxW := out.GetFloatAt(r, 2) * float32(data.width)
			boxH := out.GetFloatAt(r, 3) * float32(data.height)

			boxX := boxCX - boxW/2
			boxY := boxCY - boxH/2

			data.filterBoxes = append(data.filterBoxes,
				boxX, boxY, boxW, boxH)
			data.objProbs = append(data.objProbs, maxClassProbs)
			data.classID = append(data.classID, maxClassID)
			validCount++
		}
	}

	return validCount
}
