// Package flow estimates where points move between two consecutive frames.
package flow

import (
	"math"
	"sync"

	"github.com/LdDl/fbtrack-go/mot"
	"github.com/LdDl/fbtrack-go/vision"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Estimate is outcome of tracking single point from one frame to another
type Estimate struct {
	// Estimated position in the second frame
	Point mot.Point
	// False when estimator could not follow the point
	OK bool
	// Mean absolute intensity difference between the matched windows
	Err float64
}

// Estimator tracks points from prev to next.
// guesses may be nil, otherwise it holds initial position estimates in next (one per point).
// Implementations must return exactly one Estimate per point, in the same order.
type Estimator interface {
	Estimate(prev, next *vision.Gray32, points []mot.Point, guesses []mot.Point) ([]Estimate, error)
}

// LucasKanade is iterative pyramidal Lucas-Kanade sparse optical flow
type LucasKanade struct {
	// Side of the square search window at every pyramid level
	WinSize int
	// Number of pyramid levels above the source image
	MaxLevel int
	// Iteration limit per level
	MaxIter int
	// Iteration stops when the update is shorter than Epsilon pixels
	Epsilon float64
	// Windows whose normalised structure tensor min eigenvalue is below this are rejected
	MinEigThreshold float64

	mu    sync.Mutex
	cache []*pyramid
}

// NewLucasKanadeDefault returns estimator with window 40, 3 levels, 30 iterations and epsilon 0.01
func NewLucasKanadeDefault() *LucasKanade {
	return NewLucasKanade(40, 3, 30, 0.01, 1e-4)
}

// NewLucasKanade creates estimator
func NewLucasKanade(winSize, maxLevel, maxIter int, epsilon, minEigThreshold float64) *LucasKanade {
	return &LucasKanade{
		WinSize:         winSize,
		MaxLevel:        maxLevel,
		MaxIter:         maxIter,
		Epsilon:         epsilon,
		MinEigThreshold: minEigThreshold,
	}
}

type pyramidLevel struct {
	img *vision.Gray32
	gx  *vision.Gray32
	gy  *vision.Gray32
}

type pyramid struct {
	source *vision.Gray32
	levels []pyramidLevel
}

// Each frame takes part in two consecutive steps (and in both directions inside each step),
// so the last few pyramids are kept around.
const pyramidCacheSize = 3

func (lk *LucasKanade) pyramidFor(img *vision.Gray32) *pyramid {
	lk.mu.Lock()
	defer lk.mu.Unlock()
	for _, p := range lk.cache {
		if p.source == img {
			return p
		}
	}
	minSide := lk.WinSize / 2
	if minSide < 4 {
		minSide = 4
	}
	images := vision.BuildPyramid(img, lk.MaxLevel, minSide)
	p := &pyramid{
		source: img,
		levels: make([]pyramidLevel, len(images)),
	}
	for i, level := range images {
		gx, gy := vision.Sobel(level)
		p.levels[i] = pyramidLevel{img: level, gx: gx, gy: gy}
	}
	lk.cache = append(lk.cache, p)
	if len(lk.cache) > pyramidCacheSize {
		lk.cache = lk.cache[len(lk.cache)-pyramidCacheSize:]
	}
	return p
}

// Estimate implements Estimator
func (lk *LucasKanade) Estimate(prev, next *vision.Gray32, points []mot.Point, guesses []mot.Point) ([]Estimate, error) {
	if prev.Width != next.Width || prev.Height != next.Height {
		return nil, errors.Errorf("frame sizes differ: %dx%d and %dx%d", prev.Width, prev.Height, next.Width, next.Height)
	}
	if guesses != nil && len(guesses) != len(points) {
		return nil, errors.Errorf("got %d guesses for %d points", len(guesses), len(points))
	}
	if lk.WinSize < 3 {
		return nil, errors.Errorf("window size %d is too small", lk.WinSize)
	}
	estimates := make([]Estimate, len(points))
	if len(points) == 0 {
		return estimates, nil
	}
	prevPyr := lk.pyramidFor(prev)
	nextPyr := lk.pyramidFor(next)
	levels := len(prevPyr.levels)
	if len(nextPyr.levels) < levels {
		levels = len(nextPyr.levels)
	}
	for i, p := range points {
		guess := p
		if guesses != nil {
			guess = guesses[i]
		}
		estimates[i] = lk.track(prevPyr, nextPyr, levels, p, guess)
	}
	return estimates, nil
}

func (lk *LucasKanade) track(prevPyr, nextPyr *pyramid, levels int, point, guess mot.Point) Estimate {
	half := float64(lk.WinSize-1) / 2
	n := lk.WinSize * lk.WinSize
	iv := make([]float64, n)
	ixv := make([]float64, n)
	iyv := make([]float64, n)

	// Displacement carried from coarser levels, in current level pixels
	topScale := 1.0 / float64(int(1)<<(levels-1))
	dx := (guess.X - point.X) * topScale
	dy := (guess.Y - point.Y) * topScale
	result := Estimate{Point: guess, Err: math.Inf(1)}

	for level := levels - 1; level >= 0; level-- {
		scale := 1.0 / float64(int(1)<<level)
		prev := prevPyr.levels[level]
		next := nextPyr.levels[level]
		px := point.X * scale
		py := point.Y * scale
		if !windowInside(prev.img, px, py, half) {
			return Estimate{Point: guess, Err: math.Inf(1)}
		}

		var a11, a12, a22 float64
		k := 0
		for wy := 0; wy < lk.WinSize; wy++ {
			sy := py - half + float64(wy)
			for wx := 0; wx < lk.WinSize; wx++ {
				sx := px - half + float64(wx)
				iv[k] = float64(prev.img.Bilinear(sx, sy))
				ixv[k] = float64(prev.gx.Bilinear(sx, sy))
				iyv[k] = float64(prev.gy.Bilinear(sx, sy))
				a11 += ixv[k] * ixv[k]
				a12 += ixv[k] * iyv[k]
				a22 += iyv[k] * iyv[k]
				k++
			}
		}
		// Eigenvalue on [0, 1] intensity scale averaged over the window
		norm := 255.0 * 255.0 * float64(n)
		minEig := ((a11 + a22) - math.Sqrt((a11-a22)*(a11-a22)+4*a12*a12)) / (2 * norm)
		if !(minEig >= lk.MinEigThreshold) {
			return Estimate{Point: guess, Err: math.Inf(1)}
		}
		g := mat.NewDense(2, 2, []float64{a11, a12, a12, a22})
		var gInv mat.Dense
		if err := gInv.Inverse(g); err != nil {
			return Estimate{Point: guess, Err: math.Inf(1)}
		}

		b := mat.NewVecDense(2, nil)
		var delta mat.VecDense
		for iter := 0; iter < lk.MaxIter; iter++ {
			nx := px + dx
			ny := py + dy
			if !windowInside(next.img, nx, ny, half) {
				return Estimate{Point: guess, Err: math.Inf(1)}
			}
			var b1, b2 float64
			k = 0
			for wy := 0; wy < lk.WinSize; wy++ {
				sy := ny - half + float64(wy)
				for wx := 0; wx < lk.WinSize; wx++ {
					sx := nx - half + float64(wx)
					diff := iv[k] - float64(next.img.Bilinear(sx, sy))
					b1 += diff * ixv[k]
					b2 += diff * iyv[k]
					k++
				}
			}
			b.SetVec(0, b1)
			b.SetVec(1, b2)
			delta.MulVec(&gInv, b)
			dx += delta.AtVec(0)
			dy += delta.AtVec(1)
			if delta.AtVec(0)*delta.AtVec(0)+delta.AtVec(1)*delta.AtVec(1) <= lk.Epsilon*lk.Epsilon {
				break
			}
		}

		if level > 0 {
			dx *= 2
			dy *= 2
			continue
		}

		nx := px + dx
		ny := py + dy
		if !windowInside(next.img, nx, ny, half) {
			return Estimate{Point: guess, Err: math.Inf(1)}
		}
		var sad float64
		k = 0
		for wy := 0; wy < lk.WinSize; wy++ {
			sy := ny - half + float64(wy)
			for wx := 0; wx < lk.WinSize; wx++ {
				sx := nx - half + float64(wx)
				sad += math.Abs(float64(next.img.Bilinear(sx, sy)) - iv[k])
				k++
			}
		}
		result = Estimate{
			Point: mot.NewPoint(nx, ny),
			OK:    true,
			Err:   sad / float64(n),
		}
	}
	return result
}

// windowInside reports whether the window centered at (x, y) overlaps the image at all.
// Pixels of a partially overlapping window are taken from the replicated border.
func windowInside(img *vision.Gray32, x, y, half float64) bool {
	if math.IsNaN(x) || math.IsNaN(y) {
		return false
	}
	return x > -half && y > -half && x < float64(img.Width)+half-1 && y < float64(img.Height)+half-1
}
