// Package opencv implements frame reading, optical flow, feature proposal and
// video writing on top of gocv. It is compiled only with the "opencv" build tag;
// without it every constructor returns ErrNotCompiled.
package opencv

import (
	"context"
	"image"

	"github.com/pkg/errors"
)

// ErrNotCompiled is returned by constructors when the binary was built without the "opencv" tag
var ErrNotCompiled = errors.New("opencv backend is not compiled in, rebuild with -tags opencv")

// FrameReader yields decoded video frames in order
type FrameReader interface {
	Read(ctx context.Context) (image.Image, bool, error)
	Close() error
}

// FrameWriter encodes frames into a video file
type FrameWriter interface {
	Write(frame image.Image) error
	Close() error
}
