// Package features proposes new trackable points: Shi-Tomasi corners restricted
// to the moving foreground and kept away from points that are already tracked.
package features

import (
	"image"

	"github.com/LdDl/fbtrack-go/mot"
	"github.com/LdDl/fbtrack-go/vision"
	"github.com/pkg/errors"
)

// Proposer returns up to maxCount new points for the frame.
// Points inside the exclusion mask must not be returned; nil exclusion excludes nothing.
type Proposer interface {
	Observe(frame *vision.Gray32) error
	Propose(frame *vision.Gray32, exclusion *ExclusionMask, maxCount int) ([]mot.Point, error)
}

// MotionProposer detects corners on pixels the background model considers foreground
type MotionProposer struct {
	background *BackgroundModel
	detector   CornerDetector
	observed   *vision.Gray32
	foreground *image.Gray
}

// NewMotionProposer creates proposer from the background model and corner detector
func NewMotionProposer(background *BackgroundModel, detector CornerDetector) *MotionProposer {
	return &MotionProposer{
		background: background,
		detector:   detector,
	}
}

// NewMotionProposerDefault creates proposer with default background model and detector
func NewMotionProposerDefault() *MotionProposer {
	return NewMotionProposer(NewBackgroundModelDefault(), NewCornerDetectorDefault())
}

// Observe feeds the frame to the background model. It should be called once per frame.
func (mp *MotionProposer) Observe(frame *vision.Gray32) error {
	mask, err := mp.background.Apply(frame)
	if err != nil {
		return errors.Wrap(err, "can't update background model")
	}
	mp.observed = frame
	mp.foreground = mask
	return nil
}

// Propose returns corners of the frame inside the last foreground mask and outside the exclusion mask.
// If frame has not been observed yet it is observed first.
func (mp *MotionProposer) Propose(frame *vision.Gray32, exclusion *ExclusionMask, maxCount int) ([]mot.Point, error) {
	if mp.observed != frame {
		if err := mp.Observe(frame); err != nil {
			return nil, err
		}
	}
	if maxCount <= 0 {
		return nil, nil
	}
	if exclusion != nil {
		b := exclusion.Gray().Rect
		if b.Dx() != frame.Width || b.Dy() != frame.Height {
			return nil, errors.Errorf("exclusion mask size %dx%d differs from frame size %dx%d", b.Dx(), b.Dy(), frame.Width, frame.Height)
		}
	}
	return mp.detector.Detect(frame, exclusion.Intersect(mp.foreground), maxCount), nil
}
