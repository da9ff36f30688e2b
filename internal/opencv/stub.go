//go:build !opencv

package opencv

import (
	"github.com/LdDl/fbtrack-go/features"
	"github.com/LdDl/fbtrack-go/flow"
)

// Available reports whether the backend is compiled in
const Available = false

// OpenVideo is unavailable without the "opencv" build tag
func OpenVideo(path string) (FrameReader, error) {
	return nil, ErrNotCompiled
}

// NewEstimator is unavailable without the "opencv" build tag
func NewEstimator(winSize, maxLevel, maxIter int, epsilon, minEigThreshold float64) (flow.Estimator, error) {
	return nil, ErrNotCompiled
}

// NewProposer is unavailable without the "opencv" build tag
func NewProposer(history int, varThreshold float64, medianKSize int, qualityLevel, minDistance float64) (features.Proposer, error) {
	return nil, ErrNotCompiled
}

// NewVideoWriter is unavailable without the "opencv" build tag
func NewVideoWriter(path string, fps float64) (FrameWriter, error) {
	return nil, ErrNotCompiled
}
