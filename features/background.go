package features

import (
	"image"

	"github.com/LdDl/fbtrack-go/vision"
	"github.com/pkg/errors"
)

const (
	defaultInitialVariance = 15.0
	minVariance            = 4.0
	maxVariance            = 75.0
)

// BackgroundModel is a per-pixel running gaussian background subtractor.
// It is a single mode simplification of the mixture model used by MOG2.
type BackgroundModel struct {
	history      int
	varThreshold float64
	medianKSize  int

	width    int
	height   int
	observed int
	mean     []float32
	variance []float32
}

// NewBackgroundModel creates model. history is the number of frames after which the learning rate stops decreasing,
// varThreshold is squared Mahalanobis distance for pixel to be considered foreground,
// medianKSize is aperture of median filter applied to the foreground mask (values below 3 disable it)
func NewBackgroundModel(history int, varThreshold float64, medianKSize int) *BackgroundModel {
	if history < 1 {
		history = 1
	}
	return &BackgroundModel{
		history:      history,
		varThreshold: varThreshold,
		medianKSize:  medianKSize,
	}
}

// NewBackgroundModelDefault creates model with history 200, threshold 25 and median aperture 5
func NewBackgroundModelDefault() *BackgroundModel {
	return NewBackgroundModel(200, 25, 5)
}

// Observed returns number of frames the model has learned from
func (bg *BackgroundModel) Observed() int {
	return bg.observed
}

// Apply updates the model with the frame and returns the foreground mask (255 foreground, 0 background).
// The first frame only initializes the model, so its whole mask is foreground.
func (bg *BackgroundModel) Apply(frame *vision.Gray32) (*image.Gray, error) {
	mask := image.NewGray(frame.Bounds())
	if bg.observed == 0 {
		bg.width = frame.Width
		bg.height = frame.Height
		bg.mean = make([]float32, len(frame.Pix))
		bg.variance = make([]float32, len(frame.Pix))
		copy(bg.mean, frame.Pix)
		for i := range bg.variance {
			bg.variance[i] = defaultInitialVariance
		}
		bg.observed = 1
		for i := range mask.Pix {
			mask.Pix[i] = 255
		}
		return mask, nil
	}
	if frame.Width != bg.width || frame.Height != bg.height {
		return nil, errors.Errorf("frame size %dx%d differs from background model size %dx%d", frame.Width, frame.Height, bg.width, bg.height)
	}
	bg.observed++
	n := bg.observed
	if n > bg.history {
		n = bg.history
	}
	alpha := float32(1.0 / float64(n))
	threshold := float32(bg.varThreshold)
	for i, v := range frame.Pix {
		d := v - bg.mean[i]
		d2 := d * d
		if d2 > threshold*bg.variance[i] {
			mask.Pix[i] = 255
		}
		bg.mean[i] += alpha * d
		nv := bg.variance[i] + alpha*(d2-bg.variance[i])
		if nv < minVariance {
			nv = minVariance
		} else if nv > maxVariance {
			nv = maxVariance
		}
		bg.variance[i] = nv
	}
	if bg.medianKSize >= 3 {
		mask = vision.MedianBlur(mask, bg.medianKSize)
	}
	return mask, nil
}
