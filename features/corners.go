package features

import (
	"image"
	"math"

	"github.com/LdDl/fbtrack-go/mot"
	"github.com/LdDl/fbtrack-go/vision"
)

// CornerDetector finds Shi-Tomasi corners ("good features to track")
type CornerDetector struct {
	// Corners weaker than QualityLevel * strongest response are discarded
	QualityLevel float64
	// Minimum euclidean distance between returned corners
	MinDistance float64
	// Side of the structure tensor window
	BlockSize int
}

// NewCornerDetectorDefault returns detector with quality 0.01, min distance 10 and block size 3
func NewCornerDetectorDefault() CornerDetector {
	return CornerDetector{
		QualityLevel: 0.01,
		MinDistance:  10,
		BlockSize:    3,
	}
}

// Detect returns at most maxCount corners sorted by decreasing response.
// Pixels where mask is zero are never returned; nil mask allows every pixel.
func (cd CornerDetector) Detect(frame *vision.Gray32, mask *image.Gray, maxCount int) []mot.Point {
	if maxCount <= 0 || frame.Width == 0 || frame.Height == 0 {
		return nil
	}
	response := cd.minEigenResponse(frame)
	maxResponse := float32(0)
	for _, v := range response.Pix {
		if v > maxResponse {
			maxResponse = v
		}
	}
	if maxResponse <= 0 {
		return nil
	}
	threshold := float32(cd.QualityLevel) * maxResponse

	candidates := make(responseHeap, 0, 256)
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			v := response.Pix[y*frame.Width+x]
			if v <= threshold {
				continue
			}
			if mask != nil && mask.GrayAt(x, y).Y == 0 {
				continue
			}
			if !isLocalMax(response, x, y, v) {
				continue
			}
			candidates.Push(cornerCandidate{x: x, y: y, response: v})
		}
	}

	minDistSq := cd.MinDistance * cd.MinDistance
	corners := make([]mot.Point, 0, maxCount)
	for candidates.Len() > 0 && len(corners) < maxCount {
		c := candidates.Pop()
		p := mot.NewPointFrom(image.Pt(c.x, c.y))
		if tooClose(corners, p, minDistSq) {
			continue
		}
		corners = append(corners, p)
	}
	return corners
}

// minEigenResponse is the smaller eigenvalue of the gradient covariance matrix
// accumulated over BlockSize x BlockSize neighbourhood
func (cd CornerDetector) minEigenResponse(frame *vision.Gray32) *vision.Gray32 {
	gx, gy := vision.Sobel(frame)
	w, h := frame.Width, frame.Height
	xx := newIntegral(w, h)
	xy := newIntegral(w, h)
	yy := newIntegral(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			dx := float64(gx.Pix[i])
			dy := float64(gy.Pix[i])
			xx.set(x, y, dx*dx)
			xy.set(x, y, dx*dy)
			yy.set(x, y, dy*dy)
		}
	}
	xx.accumulate()
	xy.accumulate()
	yy.accumulate()

	block := cd.BlockSize
	if block < 1 {
		block = 1
	}
	r := block / 2
	out := vision.NewGray32(w, h)
	for y := 0; y < h; y++ {
		y0, y1 := maxInt(y-r, 0), minInt(y-r+block, h)
		for x := 0; x < w; x++ {
			x0, x1 := maxInt(x-r, 0), minInt(x-r+block, w)
			a := xx.sum(x0, y0, x1, y1)
			b := xy.sum(x0, y0, x1, y1)
			c := yy.sum(x0, y0, x1, y1)
			lambda := ((a + c) - math.Sqrt((a-c)*(a-c)+4*b*b)) / 2
			if lambda < 0 {
				lambda = 0
			}
			out.Pix[y*w+x] = float32(lambda)
		}
	}
	return out
}

func isLocalMax(response *vision.Gray32, x, y int, v float32) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx < 0 || ny < 0 || nx >= response.Width || ny >= response.Height {
				continue
			}
			if response.Pix[ny*response.Width+nx] > v {
				return false
			}
		}
	}
	return true
}

func tooClose(accepted []mot.Point, p mot.Point, minDistSq float64) bool {
	for _, q := range accepted {
		dx := q.X - p.X
		dy := q.Y - p.Y
		if dx*dx+dy*dy < minDistSq {
			return true
		}
	}
	return false
}

// integral is summed-area table with one row/column of zero padding
type integral struct {
	w, h int
	data []float64
}

func newIntegral(w, h int) *integral {
	return &integral{w: w, h: h, data: make([]float64, (w+1)*(h+1))}
}

func (it *integral) set(x, y int, v float64) {
	it.data[(y+1)*(it.w+1)+x+1] = v
}

func (it *integral) accumulate() {
	stride := it.w + 1
	for y := 1; y <= it.h; y++ {
		for x := 1; x <= it.w; x++ {
			i := y*stride + x
			it.data[i] += it.data[i-1] + it.data[i-stride] - it.data[i-stride-1]
		}
	}
}

// sum over [x0, x1) x [y0, y1)
func (it *integral) sum(x0, y0, x1, y1 int) float64 {
	stride := it.w + 1
	return it.data[y1*stride+x1] - it.data[y0*stride+x1] - it.data[y1*stride+x0] + it.data[y0*stride+x0]
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
