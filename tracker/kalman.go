package tracker

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// MotionState is the Kalman state of a single track, an 8 element mean of
// (centre x, centre y, aspect ratio, height) with appended velocities and
// the matching covariance
type MotionState struct {
	mean [8]float32
	cov  *mat.Dense
}

// Xyah returns the position components of the state
func (s *MotionState) Xyah() [4]float32 {
	return [4]float32{s.mean[0], s.mean[1], s.mean[2], s.mean[3]}
}

// KalmanFilter implements the constant velocity motion model shared by all
// tracks.  Position and velocity uncertainty scale with the box height.
type KalmanFilter struct {
	stdWeightPosition float32
	stdWeightVelocity float32
	// motionMat is the 8x8 state transition matrix
	motionMat *mat.Dense
	// updateMat is the 4x8 projection into measurement space
	updateMat *mat.Dense
}

// NewKalmanFilter initializes and returns a new KalmanFilter
func NewKalmanFilter(stdWeightPosition, stdWeightVelocity float32) *KalmanFilter {

	ndim := 4
	dt := 1.0

	// identity with one frame of velocity feeding position
	motionMat := mat.NewDense(8, 8, nil)

	for i := 0; i < 8; i++ {
		motionMat.Set(i, i, 1.0)
	}

	for i := 0; i < ndim; i++ {
		motionMat.Set(i, ndim+i, dt)
	}

	// projection keeping the four position components
	updateMat := mat.NewDense(4, 8, nil)

	for i := 0; i < ndim; i++ {
		updateMat.Set(i, i, 1.0)
	}

	return &KalmanFilter{
		stdWeightPosition: stdWeightPosition,
		stdWeightVelocity: stdWeightVelocity,
		motionMat:         motionMat,
		updateMat:         updateMat,
	}
}

// Initiate returns a new motion state centred on the measurement with zero
// velocity
func (kf *KalmanFilter) Initiate(measurement [4]float32) *MotionState {

	s := &MotionState{
		cov: mat.NewDense(8, 8, nil),
	}

	copy(s.mean[:4], measurement[:])

	std := [8]float32{
		2 * kf.stdWeightPosition * measurement[3],
		2 * kf.stdWeightPosition * measurement[3],
		1e-2,
		2 * kf.stdWeightPosition * measurement[3],
		10 * kf.stdWeightVelocity * measurement[3],
		10 * kf.stdWeightVelocity * measurement[3],
		1e-5,
		10 * kf.stdWeightVelocity * measurement[3],
	}

	for i, v := range std {
		s.cov.Set(i, i, float64(v*v))
	}

	return s
}

// Predict advances the state one frame under the constant velocity model
func (kf *KalmanFilter) Predict(s *MotionState) {

	std := [8]float32{
		kf.stdWeightPosition * s.mean[3],
		kf.stdWeightPosition * s.mean[3],
		1e-2,
		kf.stdWeightPosition * s.mean[3],
		kf.stdWeightVelocity * s.mean[3],
		kf.stdWeightVelocity * s.mean[3],
		1e-5,
		kf.stdWeightVelocity * s.mean[3],
	}

	// position moves by one frame of velocity
	for i := 0; i < 4; i++ {
		s.mean[i] += s.mean[i+4]
	}

	// covariance follows the motion model with process noise added on
	// the diagonal
	mp := mat.NewDense(8, 8, nil)
	mp.Mul(kf.motionMat, s.cov)

	cov := mat.NewDense(8, 8, nil)
	cov.Mul(mp, kf.motionMat.T())

	for i, v := range std {
		cov.Set(i, i, cov.At(i, i)+float64(v*v))
	}

	s.cov = cov
}

// Update corrects the state with a new measurement
func (kf *KalmanFilter) Update(s *MotionState, measurement [4]float32) error {

	projMean, projCov := kf.project(s)

	var chol mat.Cholesky

	if ok := chol.Factorize(projCov); !ok {
		return errors.New("projected covariance is not positive definite")
	}

	// kalman gain K = P H^T S^-1, solved as S K^T = (P H^T)^T
	pht := mat.NewDense(8, 4, nil)
	pht.Mul(s.cov, kf.updateMat.T())

	var gainT mat.Dense

	err := chol.SolveTo(&gainT, pht.T())

	if err != nil {
		return fmt.Errorf("solving kalman gain: %w", err)
	}

	// innovation y = z - H x
	innovation := mat.NewVecDense(4, nil)

	for i := 0; i < 4; i++ {
		innovation.SetVec(i, float64(measurement[i]-projMean[i]))
	}

	// x = x + K y
	delta := mat.NewVecDense(8, nil)
	delta.MulVec(gainT.T(), innovation)

	for i := 0; i < 8; i++ {
		s.mean[i] += float32(delta.AtVec(i))
	}

	// P = P - K S K^T
	ks := mat.NewDense(8, 4, nil)
	ks.Mul(gainT.T(), projCov)

	ksk := mat.NewDense(8, 8, nil)
	ksk.Mul(ks, &gainT)

	s.cov.Sub(s.cov, ksk)

	return nil
}

// project maps the state into measurement space, returning the projected
// mean and the innovation covariance
func (kf *KalmanFilter) project(s *MotionState) ([4]float32, *mat.SymDense) {

	// measurement noise scales with the box height
	std := [4]float32{
		kf.stdWeightPosition * s.mean[3],
		kf.stdWeightPosition * s.mean[3],
		1e-1,
		kf.stdWeightPosition * s.mean[3],
	}

	// S = H P H^T + R
	hp := mat.NewDense(4, 8, nil)
	hp.Mul(kf.updateMat, s.cov)

	hph := mat.NewDense(4, 4, nil)
	hph.Mul(hp, kf.updateMat.T())

	projCov := mat.NewSymDense(4, nil)

	for i := 0; i < 4; i++ {
		for j := i; j < 4; j++ {
			projCov.SetSym(i, j, hph.At(i, j))
		}
	}

	for i := 0; i < 4; i++ {
		projCov.SetSym(i, i, projCov.At(i, i)+float64(std[i]*std[i]))
	}

	// the projection keeps the position components of the mean
	var projMean [4]float32

	for i := 0; i < 4; i++ {
		projMean[i] = s.mean[i]
	}

	return projMean, projCov
}
