package flow

import (
	"sync"

	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/LdDl/fbtrack-go/mot"
	"github.com/pkg/errors"
)

// KalmanPrior keeps constant velocity Kalman filter per track and
// predicts where each track should be on the next frame.
// Predictions are used as initial guesses for the estimator.
type KalmanPrior struct {
	mu       sync.Mutex
	dt       float64
	stdDevA  float64
	stdDevMx float64
	stdDevMy float64
	filters  map[int]*kalman_filter.Kalman2D
}

// NewKalmanPriorDefault creates prior with dt = 1 frame
func NewKalmanPriorDefault() *KalmanPrior {
	return NewKalmanPrior(1.0, 2.0, 0.1, 0.1)
}

// NewKalmanPrior creates prior. stdDevA is process noise (acceleration),
// stdDevMx and stdDevMy are measurement noise
func NewKalmanPrior(dt, stdDevA, stdDevMx, stdDevMy float64) *KalmanPrior {
	return &KalmanPrior{
		dt:       dt,
		stdDevA:  stdDevA,
		stdDevMx: stdDevMx,
		stdDevMy: stdDevMy,
		filters:  make(map[int]*kalman_filter.Kalman2D),
	}
}

// Observe feeds the measured position of a track. Unknown tracks get a fresh filter
// initialized at the position.
func (kp *KalmanPrior) Observe(id int, position mot.Point) error {
	kp.mu.Lock()
	defer kp.mu.Unlock()
	kf, ok := kp.filters[id]
	if !ok {
		// No control input: motion comes from the estimated velocity only
		kp.filters[id] = kalman_filter.NewKalman2D(kp.dt, 0, 0, kp.stdDevA, kp.stdDevMx, kp.stdDevMy, kalman_filter.WithState2D(position.X, position.Y))
		return nil
	}
	if err := kf.Update(position.X, position.Y); err != nil {
		return errors.Wrapf(err, "can't update kalman filter of track %d", id)
	}
	return nil
}

// Guesses advances every known filter by one step and returns predicted positions.
// Tracks without a filter keep their current position.
func (kp *KalmanPrior) Guesses(tracks []mot.TrackPosition) []mot.Point {
	kp.mu.Lock()
	defer kp.mu.Unlock()
	guesses := make([]mot.Point, len(tracks))
	for i, tp := range tracks {
		kf, ok := kp.filters[tp.ID]
		if !ok {
			guesses[i] = tp.Position
			continue
		}
		kf.Predict()
		x, y := kf.GetState()
		guesses[i] = mot.NewPoint(x, y)
	}
	return guesses
}

// Forget drops filter of the track
func (kp *KalmanPrior) Forget(id int) {
	kp.mu.Lock()
	defer kp.mu.Unlock()
	delete(kp.filters, id)
}

// Len returns number of tracks with a filter
func (kp *KalmanPrior) Len() int {
	kp.mu.Lock()
	defer kp.mu.Unlock()
	return len(kp.filters)
}
