package vision

import (
	"image"
)

// Sobel computes horizontal and vertical derivatives normalized to
// intensity units per pixel (3x3 Sobel divided by 8).
func Sobel(src *Gray32) (*Gray32, *Gray32) {
	gx := NewGray32(src.Width, src.Height)
	gy := NewGray32(src.Width, src.Height)
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			tl := src.At(x-1, y-1)
			tc := src.At(x, y-1)
			tr := src.At(x+1, y-1)
			ml := src.At(x-1, y)
			mr := src.At(x+1, y)
			bl := src.At(x-1, y+1)
			bc := src.At(x, y+1)
			br := src.At(x+1, y+1)
			i := y*src.Width + x
			gx.Pix[i] = ((tr + 2*mr + br) - (tl + 2*ml + bl)) / 8
			gy.Pix[i] = ((bl + 2*bc + br) - (tl + 2*tc + tr)) / 8
		}
	}
	return gx, gy
}

// MedianBlur applies ksize x ksize median filter to 8-bit image with
// replicated border. Even or non-positive ksize returns a copy.
func MedianBlur(src *image.Gray, ksize int) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	if ksize < 3 || ksize%2 == 0 {
		copy(dst.Pix, src.Pix)
		return dst
	}
	r := ksize / 2
	half := ksize * ksize / 2
	var hist [256]int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist = [256]int{}
			for dy := -r; dy <= r; dy++ {
				sy := clampInt(y+dy, b.Min.Y, b.Max.Y-1)
				for dx := -r; dx <= r; dx++ {
					sx := clampInt(x+dx, b.Min.X, b.Max.X-1)
					hist[src.Pix[src.PixOffset(sx, sy)]]++
				}
			}
			seen := 0
			for v := 0; v < 256; v++ {
				seen += hist[v]
				if seen > half {
					dst.Pix[dst.PixOffset(x, y)] = uint8(v)
					break
				}
			}
		}
	}
	return dst
}
