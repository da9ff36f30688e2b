package mot

import (
	"math"
	"testing"
)

func TestAcceptancePolicyEvaluate(t *testing.T) {
	policy := NewAcceptancePolicy(50.0, 80.0, 320, 240)
	ok := MotionResult{Position: Point{X: 10, Y: 10}, FlowValid: true, ConsistencyError: 49.999, ForwardResidual: 79.999}
	cases := []struct {
		name   string
		mutate func(*MotionResult)
		want   Verdict
	}{
		{"accepted", func(r *MotionResult) {}, VerdictAccepted},
		{"flow invalid", func(r *MotionResult) { r.FlowValid = false }, VerdictFlowInvalid},
		{"fb equal to threshold", func(r *MotionResult) { r.ConsistencyError = 50.0 }, VerdictInconsistent},
		{"fb nan", func(r *MotionResult) { r.ConsistencyError = math.NaN() }, VerdictInconsistent},
		{"residual equal to threshold", func(r *MotionResult) { r.ForwardResidual = 80.0 }, VerdictResidual},
		{"residual inf", func(r *MotionResult) { r.ForwardResidual = math.Inf(1) }, VerdictResidual},
		{"right edge", func(r *MotionResult) { r.Position.X = 320 }, VerdictOutOfBounds},
		{"bottom edge", func(r *MotionResult) { r.Position.Y = 240 }, VerdictOutOfBounds},
		// Flow validity is checked first, so a bad position with invalid flow reports flow
		{"order", func(r *MotionResult) { r.FlowValid = false; r.Position.X = -5 }, VerdictFlowInvalid},
	}
	for _, c := range cases {
		result := ok
		c.mutate(&result)
		if got := policy.Evaluate(result); got != c.want {
			t.Errorf("%s: verdict %s, expected %s", c.name, got, c.want)
		}
		if policy.Accept(result) != (c.want == VerdictAccepted) {
			t.Errorf("%s: Accept disagrees with Evaluate", c.name)
		}
	}
}
