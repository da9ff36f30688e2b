package vision

// 5-tap binomial kernel, same weights as the classic Burt-Adelson pyramid
var pyrKernel = [5]float32{1.0 / 16, 4.0 / 16, 6.0 / 16, 4.0 / 16, 1.0 / 16}

// Downsample blurs the image and takes every second pixel.
// Result size is ceil(w/2) x ceil(h/2).
func Downsample(src *Gray32) *Gray32 {
	w := (src.Width + 1) / 2
	h := (src.Height + 1) / 2
	// Horizontal pass on even columns only
	tmp := NewGray32(w, src.Height)
	for y := 0; y < src.Height; y++ {
		for x := 0; x < w; x++ {
			sx := 2 * x
			var acc float32
			for k := -2; k <= 2; k++ {
				acc += pyrKernel[k+2] * src.At(sx+k, y)
			}
			tmp.Pix[y*w+x] = acc
		}
	}
	dst := NewGray32(w, h)
	for y := 0; y < h; y++ {
		sy := 2 * y
		for x := 0; x < w; x++ {
			var acc float32
			for k := -2; k <= 2; k++ {
				acc += pyrKernel[k+2] * tmp.At(x, sy+k)
			}
			dst.Pix[y*w+x] = acc
		}
	}
	return dst
}

// BuildPyramid returns levels [0..maxLevel], level 0 being the source itself.
// Building stops early once a level would be smaller than minSide pixels.
func BuildPyramid(src *Gray32, maxLevel int, minSide int) []*Gray32 {
	levels := make([]*Gray32, 1, maxLevel+1)
	levels[0] = src
	for l := 1; l <= maxLevel; l++ {
		prev := levels[l-1]
		if (prev.Width+1)/2 < minSide || (prev.Height+1)/2 < minSide {
			break
		}
		levels = append(levels, Downsample(prev))
	}
	return levels
}
