package vision

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromImageLuma(t *testing.T) {
	img := image.NewRGBA(image.Rect(10, 20, 12, 21))
	img.Set(10, 20, color.RGBA{R: 255, A: 255})
	img.Set(11, 20, color.RGBA{R: 100, G: 100, B: 100, A: 255})
	g := FromImage(img)
	require.Equal(t, 2, g.Width)
	require.Equal(t, 1, g.Height)
	assert.InDelta(t, 0.299*255, g.At(0, 0), 1e-3)
	assert.InDelta(t, 100, g.At(1, 0), 1e-3)
}

func TestFromImageGrayOffset(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	img.SetGray(2, 3, color.Gray{Y: 77})
	sub := img.SubImage(image.Rect(1, 1, 4, 4))
	g := FromImage(sub)
	assert.Equal(t, 3, g.Width)
	assert.Equal(t, float32(77), g.At(1, 2))
}

func TestBilinear(t *testing.T) {
	g := NewGray32(2, 2)
	g.Set(0, 0, 0)
	g.Set(1, 0, 10)
	g.Set(0, 1, 20)
	g.Set(1, 1, 30)
	assert.InDelta(t, 15, g.Bilinear(0.5, 0.5), 1e-5)
	assert.InDelta(t, 5, g.Bilinear(0.5, 0), 1e-5)
	// Replicated border
	assert.InDelta(t, 30, g.Bilinear(5, 5), 1e-5)
}

func TestPyramidSizes(t *testing.T) {
	g := NewGray32(101, 64)
	levels := BuildPyramid(g, 3, 10)
	require.Len(t, levels, 3)
	assert.Equal(t, 51, levels[1].Width)
	assert.Equal(t, 32, levels[1].Height)
	assert.Equal(t, 26, levels[2].Width)
	assert.Equal(t, 16, levels[2].Height)
}

func TestDownsampleConstant(t *testing.T) {
	g := NewGray32(9, 9)
	for i := range g.Pix {
		g.Pix[i] = 42
	}
	d := Downsample(g)
	for _, v := range d.Pix {
		assert.InDelta(t, 42, v, 1e-4)
	}
}

func TestSobelRamp(t *testing.T) {
	g := NewGray32(8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			g.Set(x, y, float32(3*x))
		}
	}
	gx, gy := Sobel(g)
	assert.InDelta(t, 3, gx.At(4, 4), 1e-5)
	assert.InDelta(t, 0, gy.At(4, 4), 1e-5)
}

func TestMedianBlurRemovesSpeckle(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 9, 9))
	img.SetGray(4, 4, color.Gray{Y: 255})
	for y := 0; y < 3; y++ {
		for x := 6; x < 9; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	out := MedianBlur(img, 3)
	assert.Equal(t, uint8(0), out.GrayAt(4, 4).Y)
	assert.Equal(t, uint8(255), out.GrayAt(7, 1).Y)
}
