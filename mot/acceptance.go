package mot

import "image"

// MotionResult is the outcome of forward-backward flow estimation for a single active track
type MotionResult struct {
	// Track the result belongs to
	TrackID int
	// Proposed new position (forward pass)
	Position Point
	// True only if both forward and backward passes succeeded
	FlowValid bool
	// Distance between the original position and the backward-reconstructed one
	ConsistencyError float64
	// Residual reported by the forward pass
	ForwardResidual float64
}

// Verdict explains why a motion result was accepted or rejected.
// Checks run in declaration order, the first failing one wins.
type Verdict uint8

const (
	VerdictAccepted Verdict = iota
	VerdictFlowInvalid
	VerdictInconsistent
	VerdictResidual
	VerdictOutOfBounds
)

func (v Verdict) String() string {
	switch v {
	case VerdictAccepted:
		return "accepted"
	case VerdictFlowInvalid:
		return "flow_invalid"
	case VerdictInconsistent:
		return "fb_error"
	case VerdictResidual:
		return "residual"
	case VerdictOutOfBounds:
		return "out_of_bounds"
	default:
		return "unknown"
	}
}

// AcceptancePolicy holds the thresholds of the per-track accept/reject test
type AcceptancePolicy struct {
	// Round-trip reconstruction drift (pixels). Default 50.0
	FBErrThresh float64
	// Forward pass residual. Default 80.0
	ErrThresh float64
	// Frame area, proposed positions outside [0,width)x[0,height) are rejected
	Bounds Rectangle
}

// NewAcceptancePolicy creates policy for the frame of given size
func NewAcceptancePolicy(fbErrThresh, errThresh float64, width, height int) AcceptancePolicy {
	return AcceptancePolicy{
		FBErrThresh: fbErrThresh,
		ErrThresh:   errThresh,
		Bounds:      NewRectFrom(image.Rect(0, 0, width, height)),
	}
}

// Evaluate applies the acceptance predicate to a single result.
// It depends on nothing but the result itself, so tracks never influence each other.
func (policy AcceptancePolicy) Evaluate(result MotionResult) Verdict {
	if !result.FlowValid {
		return VerdictFlowInvalid
	}
	// Negated comparisons so NaN errors are rejected too
	if !(result.ConsistencyError < policy.FBErrThresh) {
		return VerdictInconsistent
	}
	if !(result.ForwardResidual < policy.ErrThresh) {
		return VerdictResidual
	}
	if !policy.Bounds.Contains(result.Position) {
		return VerdictOutOfBounds
	}
	return VerdictAccepted
}

// Accept reports whether the result passes every check
func (policy AcceptancePolicy) Accept(result MotionResult) bool {
	return policy.Evaluate(result) == VerdictAccepted
}
