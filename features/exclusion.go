package features

import (
	"image"

	"github.com/LdDl/fbtrack-go/mot"
)

// ExclusionMask marks filled discs around existing track positions
// where new features must not be proposed
type ExclusionMask struct {
	img    *image.Gray
	radius int
}

// NewExclusionMask builds mask of given size. Disc centers are positions truncated to integer pixels.
func NewExclusionMask(width, height int, positions []mot.Point, radius int) *ExclusionMask {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	em := &ExclusionMask{
		img:    img,
		radius: radius,
	}
	for _, p := range positions {
		em.exclude(p.ImagePoint())
	}
	return em
}

func (em *ExclusionMask) exclude(center image.Point) {
	r := em.radius
	if r < 0 {
		return
	}
	b := em.img.Rect
	for dy := -r; dy <= r; dy++ {
		y := center.Y + dy
		if y < b.Min.Y || y >= b.Max.Y {
			continue
		}
		for dx := -r; dx <= r; dx++ {
			x := center.X + dx
			if x < b.Min.X || x >= b.Max.X {
				continue
			}
			if dx*dx+dy*dy <= r*r {
				em.img.Pix[em.img.PixOffset(x, y)] = 0
			}
		}
	}
}

// Allows reports whether a feature may be proposed at pixel
func (em *ExclusionMask) Allows(x, y int) bool {
	if em == nil {
		return true
	}
	if !(image.Point{X: x, Y: y}).In(em.img.Rect) {
		return false
	}
	return em.img.Pix[em.img.PixOffset(x, y)] != 0
}

// Gray returns underlying mask image (255 allowed, 0 excluded)
func (em *ExclusionMask) Gray() *image.Gray {
	return em.img
}

// Radius returns disc radius
func (em *ExclusionMask) Radius() int {
	return em.radius
}

// Intersect returns mask allowing only pixels where both mask and em allow.
// Either argument may be nil.
func (em *ExclusionMask) Intersect(mask *image.Gray) *image.Gray {
	switch {
	case em == nil && mask == nil:
		return nil
	case em == nil:
		return mask
	case mask == nil:
		return em.img
	}
	out := image.NewGray(em.img.Rect)
	for y := out.Rect.Min.Y; y < out.Rect.Max.Y; y++ {
		for x := out.Rect.Min.X; x < out.Rect.Max.X; x++ {
			if em.Allows(x, y) && mask.GrayAt(x, y).Y != 0 {
				out.Pix[out.PixOffset(x, y)] = 255
			}
		}
	}
	return out
}
