package flow

import (
	"math"

	"github.com/LdDl/fbtrack-go/mot"
	"github.com/LdDl/fbtrack-go/vision"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// ForwardBackward tracks every position from prev to next and then back from next to prev.
// The result holds one MotionResult per track in the same order:
//   - Position is the forward estimate
//   - FlowValid requires both directions to succeed
//   - ConsistencyError is the distance between the original position and the back-tracked one
//   - ForwardResidual is the forward matching error
//
// guesses (nil allowed) are forwarded to the estimator for the forward pass only.
func ForwardBackward(est Estimator, prev, next *vision.Gray32, tracks []mot.TrackPosition, guesses []mot.Point) ([]mot.MotionResult, error) {
	results := make([]mot.MotionResult, len(tracks))
	if len(tracks) == 0 {
		return results, nil
	}
	origins := make([]mot.Point, len(tracks))
	for i, tp := range tracks {
		origins[i] = tp.Position
	}
	forward, err := est.Estimate(prev, next, origins, guesses)
	if err != nil {
		return nil, errors.Wrap(err, "forward pass")
	}
	if len(forward) != len(origins) {
		return nil, errors.Errorf("forward pass returned %d estimates for %d points", len(forward), len(origins))
	}
	moved := make([]mot.Point, len(forward))
	for i, f := range forward {
		moved[i] = f.Point
	}
	backward, err := est.Estimate(next, prev, moved, nil)
	if err != nil {
		return nil, errors.Wrap(err, "backward pass")
	}
	if len(backward) != len(moved) {
		return nil, errors.Errorf("backward pass returned %d estimates for %d points", len(backward), len(moved))
	}
	for i, tp := range tracks {
		f := forward[i]
		b := backward[i]
		fb := floats.Distance(
			[]float64{origins[i].X, origins[i].Y},
			[]float64{b.Point.X, b.Point.Y},
			2,
		)
		residual := f.Err
		if math.IsNaN(residual) {
			residual = math.Inf(1)
		}
		results[i] = mot.MotionResult{
			TrackID:          tp.ID,
			Position:         f.Point,
			FlowValid:        f.OK && b.OK,
			ConsistencyError: fb,
			ForwardResidual:  residual,
		}
	}
	return results, nil
}
