package mot

import "github.com/pkg/errors"

var (
	// ErrMotionResultMismatch is returned by Advance when motion results do not correspond 1:1 to the active set.
	// It is an integration bug: the whole run must be aborted.
	ErrMotionResultMismatch = errors.New("motion results do not match active tracks")
	// ErrFrameOrder is returned by Advance when the frame index does not move forward for some track
	ErrFrameOrder = errors.New("frame index must be greater than the last sample's one")
)
