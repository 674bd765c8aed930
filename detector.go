package personcounter

import (
	"errors"
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"
)

// ErrModelLoad indicates the model weights or config files could not be
// located or loaded into the DNN runtime
var ErrModelLoad = errors.New("model load failed")

// Detector wraps an OpenCV DNN network loaded with a pretrained YOLO model.
// A Detector is not safe for concurrent use, create one per goroutine or
// use a Pool.
type Detector struct {
	// net is the loaded DNN network
	net gocv.Net
	// inputSize is the width and height of the model input tensor
	inputSize image.Point
	// scaleFactor normalizes pixel values, eg: 1/255 for models trained
	// on 0..1 inputs
	scaleFactor float64
	// mean is subtracted from each channel during blob creation
	mean gocv.Scalar
	// swapRB swaps the first and last channels, used as OpenCV reads
	// frames as BGR whilst YOLO models are trained on RGB
	swapRB bool
	// outputNames caches the unconnected output layer names of the Model
	outputNames []string
}

// NewDetector returns a Detector running the given darknet model.  Provide
// the full path and filename of the weights and network config files.
func NewDetector(weightsFile, configFile string) (*Detector, error) {

	d := &Detector{
		inputSize:   image.Pt(320, 320),
		scaleFactor: 1.0 / 255.0,
		mean:        gocv.NewScalar(0, 0, 0, 0),
		swapRB:      true,
	}

	err := d.init(weightsFile, configFile)

	if err != nil {
		return nil, err
	}

	return d, nil
}

// init loads the network from the given model files and caches the output
// layer names
func (d *Detector) init(weightsFile, configFile string) error {

	// check files exist in Go, before passing to OpenCV
	err := checkFile(weightsFile)

	if err != nil {
		return fmt.Errorf("%w: weights %s: %s", ErrModelLoad, weightsFile, err)
	}

	err = checkFile(configFile)

	if err != nil {
		return fmt.Errorf("%w: config %s: %s", ErrModelLoad, configFile, err)
	}

	d.net = gocv.ReadNet(weightsFile, configFile)

	if d.net.Empty() {
		return fmt.Errorf("%w: reading network from %s", ErrModelLoad,
			weightsFile)
	}

	// cache the output layer names used for the forward pass.  OpenCV
	// layer ids are 1-based
	layerNames := d.net.GetLayerNames()

	for _, i := range d.net.GetUnconnectedOutLayers() {
		if i-1 >= 0 && i-1 < len(layerNames) {
			d.outputNames = append(d.outputNames, layerNames[i-1])
		}
	}

	if len(d.outputNames) == 0 {
		return fmt.Errorf("%w: network has no output layers", ErrModelLoad)
	}

	return nil
}

// checkFile returns an error if the given path does not exist or is a
// directory
func checkFile(file string) error {

	info, err := os.Stat(file)

	if err != nil {
		return fmt.Errorf("file does not exist at %s", file)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory", file)
	}

	return nil
}

// SetInputSize overrides the default 320x320 model input tensor size
func (d *Detector) SetInputSize(width, height int) {
	d.inputSize = image.Pt(width, height)
}

// InputSize returns the model input tensor size
func (d *Detector) InputSize() image.Point {
	return d.inputSize
}

// OutputNames returns the cached output layer names of the loaded model
func (d *Detector) OutputNames() []string {
	return d.outputNames
}

// SetBackendAndTarget selects the DNN computation backend and target
// device, eg: backend "opencv" with target "cpu" or backend "cuda" with
// target "cuda".  Unknown values fall back to OpenCV defaults.
func (d *Detector) SetBackendAndTarget(backend, target string) error {

	err := d.net.SetPreferableBackend(parseBackend(backend))

	if err != nil {
		return fmt.Errorf("set backend %s: %w", backend, err)
	}

	err = d.net.SetPreferableTarget(parseTarget(target))

	if err != nil {
		return fmt.Errorf("set target %s: %w", target, err)
	}

	return nil
}

// parseBackend maps a backend name to the gocv constant
func parseBackend(backend string) gocv.NetBackendType {

	switch backend {
	case "opencv":
		return gocv.NetBackendOpenCV
	case "cuda":
		return gocv.NetBackendCUDA
	case "openvino":
		return gocv.NetBackendOpenVINO
	case "vulkan":
		return gocv.NetBackendVKCOM
	default:
		return gocv.NetBackendDefault
	}
}

// parseTarget maps a target device name to the gocv constant
func parseTarget(target string) gocv.NetTargetType {

	switch target {
	case "opencl":
		return gocv.NetTargetFP32
	case "opencl16":
		return gocv.NetTargetFP16
	case "cuda":
		return gocv.NetTargetCUDA
	case "cuda16":
		return gocv.NetTargetCUDAFP16
	case "vulkan":
		return gocv.NetTargetVulkan
	default:
		return gocv.NetTargetCPU
	}
}

// Outputs holds the raw output tensors of a forward pass along with the
// dimensions of the source frame they were produced from
type Outputs struct {
	// Mats are the raw output tensors, one per output layer
	Mats []gocv.Mat
	// FrameWidth is the width of the source frame
	FrameWidth int
	// FrameHeight is the height of the source frame
	FrameHeight int
}

// Free releases the C memory backing the output tensors.  Call after post
// processing is finished.
func (o *Outputs) Free() error {

	for i := range o.Mats {
		err := o.Mats[i].Close()

		if err != nil {
			return fmt.Errorf("closing output tensor %d: %w", i, err)
		}
	}

	o.Mats = nil
	return nil
}

// Forward runs a single forward pass of the network on the given frame.
// The frame is converted to the model input blob using the configured
// preprocessing parameters.  Call Free() on the returned Outputs once post
// processing is complete.
func (d *Detector) Forward(img gocv.Mat) (*Outputs, error) {

	if img.Empty() {
		return nil, fmt.Errorf("source frame is empty")
	}

	blob := gocv.BlobFromImage(img, d.scaleFactor, d.inputSize,
		d.mean, d.swapRB, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	mats := d.net.ForwardLayers(d.outputNames)

	if len(mats) == 0 {
		return nil, fmt.Errorf("forward pass produced no outputs")
	}

	return &Outputs{
		Mats:        mats,
		FrameWidth:  img.Cols(),
		FrameHeight: img.Rows(),
	}, nil
}

// Close unloads the network and releases all resources
func (d *Detector) Close() error {
	return d.net.Close()
}
