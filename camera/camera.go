// Package camera opens capture devices, video files, and stream URLs and
// reads frames from them as gocv Mats.
package camera

import (
	"errors"
	"fmt"
	"strconv"

	"gocv.io/x/gocv"
)

// ErrDevice indicates the capture device or video file could not be opened
var ErrDevice = errors.New("capture device open failed")

// ErrFrameRead indicates the capture source stopped producing frames
var ErrFrameRead = errors.New("frame read failed")

// Config are the capture properties applied when opening a camera device.
// Video files and stream URLs keep their native properties.
type Config struct {
	// Width and Height are the captured frame dimensions in pixels
	Width  int
	Height int
	// FPS is the capture frame rate
	FPS int
}

// DefaultConfig returns the default capture properties of 640x480 at 15 FPS
func DefaultConfig() Config {
	return Config{
		Width:  640,
		Height: 480,
		FPS:    15,
	}
}

// Camera wraps a capture source producing a lazy sequence of frames
type Camera struct {
	cap    *gocv.VideoCapture
	source string
	device bool
}

// Open opens the given capture source.  A numeric source is treated as a
// camera device index and has the capture properties of cfg applied to it,
// anything else is opened as a video file or stream URL.  Open failures
// wrap ErrDevice.
func Open(source string, cfg Config) (*Camera, error) {

	c := &Camera{
		source: source,
	}

	var err error

	// resolve the source type ourselves so capture properties only get
	// applied to camera devices
	if idx, convErr := strconv.Atoi(source); convErr == nil {
		c.device = true
		c.cap, err = gocv.OpenVideoCapture(idx)
	} else {
		c.cap, err = gocv.OpenVideoCapture(source)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: source %s: %s", ErrDevice, source, err)
	}

	if !c.cap.IsOpened() {
		c.cap.Close()
		return nil, fmt.Errorf("%w: source %s", ErrDevice, source)
	}

	if c.device {
		c.applyConfig(cfg)
	}

	return c, nil
}

// applyConfig sets the capture properties on the opened device
func (c *Camera) applyConfig(cfg Config) {

	if cfg.Width > 0 {
		c.cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}

	if cfg.Height > 0 {
		c.cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}

	if cfg.FPS > 0 {
		c.cap.Set(gocv.VideoCaptureFPS, float64(cfg.FPS))
	}
}

// Source returns the source string the camera was opened with
func (c *Camera) Source() string {
	return c.source
}

// IsDevice returns true when the source is a camera device rather than a
// video file or stream URL
func (c *Camera) IsDevice() bool {
	return c.device
}

// Read reads the next frame into dst.  Returns ErrFrameRead once the
// source stops producing frames, the caller should end its capture loop.
// A nil error with an empty dst is possible and the frame should be
// skipped.
func (c *Camera) Read(dst *gocv.Mat) error {

	if ok := c.cap.Read(dst); !ok {
		return fmt.Errorf("%w: source %s", ErrFrameRead, c.source)
	}

	return nil
}

// Close releases the capture device handle
func (c *Camera) Close() error {
	return c.cap.Close()
}
