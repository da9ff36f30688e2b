// Package vision holds the small set of image primitives the estimators need:
// a float grayscale image, pyramids, gradients and median filtering.
package vision

import (
	"image"
	"math"
)

// Gray32 is a single channel image with intensities in [0, 255]
type Gray32 struct {
	Pix    []float32
	Width  int
	Height int
}

// NewGray32 creates zero filled image of given size
func NewGray32(width, height int) *Gray32 {
	return &Gray32{
		Pix:    make([]float32, width*height),
		Width:  width,
		Height: height,
	}
}

// FromImage converts any image to grayscale using BT.601 luma weights.
// The result origin is always (0, 0).
func FromImage(img image.Image) *Gray32 {
	b := img.Bounds()
	g := NewGray32(b.Dx(), b.Dy())
	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < g.Height; y++ {
			row := src.Pix[(y+b.Min.Y-src.Rect.Min.Y)*src.Stride+(b.Min.X-src.Rect.Min.X):]
			for x := 0; x < g.Width; x++ {
				g.Pix[y*g.Width+x] = float32(row[x])
			}
		}
	case *image.YCbCr:
		// Luma plane is already the gray image
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				g.Pix[y*g.Width+x] = float32(src.Y[src.YOffset(x+b.Min.X, y+b.Min.Y)])
			}
		}
	case *image.RGBA:
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				i := src.PixOffset(x+b.Min.X, y+b.Min.Y)
				g.Pix[y*g.Width+x] = luma(src.Pix[i], src.Pix[i+1], src.Pix[i+2])
			}
		}
	case *image.NRGBA:
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				i := src.PixOffset(x+b.Min.X, y+b.Min.Y)
				g.Pix[y*g.Width+x] = luma(src.Pix[i], src.Pix[i+1], src.Pix[i+2])
			}
		}
	default:
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				r, gg, bb, _ := img.At(x+b.Min.X, y+b.Min.Y).RGBA()
				g.Pix[y*g.Width+x] = luma(uint8(r>>8), uint8(gg>>8), uint8(bb>>8))
			}
		}
	}
	return g
}

func luma(r, g, b uint8) float32 {
	return 0.299*float32(r) + 0.587*float32(g) + 0.114*float32(b)
}

// Bounds returns image rectangle
func (g *Gray32) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.Width, g.Height)
}

// At returns intensity with replicated border
func (g *Gray32) At(x, y int) float32 {
	x = clampInt(x, 0, g.Width-1)
	y = clampInt(y, 0, g.Height-1)
	return g.Pix[y*g.Width+x]
}

// Set sets intensity, out of range coordinates are ignored
func (g *Gray32) Set(x, y int, v float32) {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return
	}
	g.Pix[y*g.Width+x] = v
}

// Bilinear samples the image at sub-pixel position with replicated border
func (g *Gray32) Bilinear(x, y float64) float32 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	ax := float32(x - x0)
	ay := float32(y - y0)
	ix := int(x0)
	iy := int(y0)
	v00 := g.At(ix, iy)
	v10 := g.At(ix+1, iy)
	v01 := g.At(ix, iy+1)
	v11 := g.At(ix+1, iy+1)
	return (1-ay)*((1-ax)*v00+ax*v10) + ay*((1-ax)*v01+ax*v11)
}

// ToGray converts back to 8-bit grayscale, clamping to [0, 255]
func (g *Gray32) ToGray() *image.Gray {
	out := image.NewGray(g.Bounds())
	for i, v := range g.Pix {
		out.Pix[i] = uint8(clampFloat(v+0.5, 0, 255))
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
