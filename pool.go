package personcounter

import (
	"sync"
)

// Pool is a simple pool of Detectors used to process frames in parallel.
// OpenCV DNN networks are not safe for concurrent forward passes, so each
// worker takes its own Detector from the pool.
type Pool struct {
	// pool of detectors
	detectors chan *Detector
	// size of pool
	size  int
	close sync.Once
}

// NewPool creates a new detector pool, loading the model size times
func NewPool(size int, weightsFile, configFile string) (*Pool, error) {

	p := &Pool{
		detectors: make(chan *Detector, size),
		size:      size,
	}

	for i := 0; i < size; i++ {
		det, err := NewDetector(weightsFile, configFile)

		if err != nil {
			// close any instances that may have been created before
			// receiving the error
			p.Close()
			return nil, err
		}

		// attach to pool
		p.Return(det)
	}

	return p, nil
}

// Size returns the number of detectors the pool was created with
func (p *Pool) Size() int {
	return p.size
}

// Gets a detector from the pool
func (p *Pool) Get() *Detector {
	return <-p.detectors
}

// Return a detector to the pool
func (p *Pool) Return(det *Detector) {
	select {
	case p.detectors <- det:
	default:
		// pool is full or closed
	}
}

// SetInputSize sets the model input tensor size on all detectors in the
// pool
func (p *Pool) SetInputSize(width, height int) {

	for i := 0; i < p.size; i++ {
		det := p.Get()
		det.SetInputSize(width, height)
		p.Return(det)
	}
}

// SetBackendAndTarget sets the DNN backend and target device on all
// detectors in the pool
func (p *Pool) SetBackendAndTarget(backend, target string) error {

	for i := 0; i < p.size; i++ {
		det := p.Get()

		err := det.SetBackendAndTarget(backend, target)
		p.Return(det)

		if err != nil {
			return err
		}
	}

	return nil
}

// Close the pool and all detectors in it
func (p *Pool) Close() {
	p.close.Do(func() {
		// close channel
		close(p.detectors)

		// close all detectors
		for next := range p.detectors {
			_ = next.Close()
		}
	})
}
